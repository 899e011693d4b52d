// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/curioloop/conic/accel"
	"github.com/curioloop/conic/cone"
	"github.com/curioloop/conic/linsys"
	"github.com/curioloop/conic/scaling"
	"github.com/curioloop/conic/sparse"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// Data holds the cone program
//
//	minimize ½𝐱ᵀP𝐱 + 𝐜ᵀ𝐱  subject to  A𝐱 + 𝐬 = 𝐛,  𝐬 ∈ K
//
// with m = len(B) constraints and n = len(C) variables.
type Data struct {
	P *sparse.CSC // n×n upper triangle, optional
	A *sparse.CSC // m×n, may be nil when the backend owns its matrix
	B []float64   // m
	C []float64   // n
}

// Problem specifies a solver instance.
type Problem struct {
	Data     Data
	Cone     cone.Spec
	Settings *Settings     // DefaultSettings when nil
	Backend  linsys.Backend // linsys.NewDirect when nil
	Logger   *slog.Logger  // discarded unless Verbose when nil
	Metrics  *Metrics      // optional
}

// New validates the problem, equilibrates a private copy of the data and
// factorizes the linear system. The problem may be reused afterwards.
func (p *Problem) New() (solver *Solver, err error) {
	setupStart := time.Now()

	d := p.Data
	m, n := len(d.B), len(d.C)
	set := DefaultSettings()
	if p.Settings != nil {
		set = *p.Settings
	}
	backend := p.Backend
	if backend == nil {
		backend = linsys.NewDirect()
	}
	owner, _ := backend.(linsys.MatrixOwner)
	ownsMatrix := owner != nil && owner.OwnsMatrix()

	switch {
	case n <= 0:
		err = errors.New("problem must have at least one variable")
	case m <= 0:
		err = errors.New("problem must have at least one constraint")
	case d.A == nil && !ownsMatrix:
		err = errors.New("A is required by this backend")
	case d.A != nil && (d.A.M != m || d.A.N != n):
		err = fmt.Errorf("A is %d×%d, expected %d×%d", d.A.M, d.A.N, m, n)
	case d.P != nil && (d.P.M != n || d.P.N != n):
		err = fmt.Errorf("P is %d×%d, expected %d×%d", d.P.M, d.P.N, n, n)
	case !allFinite(d.B):
		err = errors.New("b has non-finite entries")
	case !allFinite(d.C):
		err = errors.New("c has non-finite entries")
	}
	if err == nil && d.A != nil {
		err = d.A.Validate()
	}
	if err == nil && d.P != nil {
		err = d.P.ValidateUpper()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	if err = p.Cone.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCone, err)
	}
	if dim := p.Cone.Dim(); dim != m {
		return nil, fmt.Errorf("%w: cone dimension %d does not match %d constraints", ErrInvalidCone, dim, m)
	}
	if err = set.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	log := p.Logger
	if log == nil {
		if set.Verbose {
			log = slog.Default()
		} else {
			log = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
	}
	log = log.With("solver", id.String())

	if set.WriteDataFilename != "" {
		if werr := WriteProblemFile(set.WriteDataFilename, p); werr != nil {
			log.Warn("write problem data", "file", set.WriteDataFilename, "error", werr)
		}
	}

	spec := slices.Clone(p.Cone)
	l := n + m + 1
	s := &Solver{
		id:      id,
		n:       n,
		m:       m,
		l:       l,
		set:     set,
		spec:    spec,
		proj:    cone.NewProjector(spec),
		bOrig:   slices.Clone(d.B),
		cOrig:   slices.Clone(d.C),
		b:       slices.Clone(d.B),
		c:       slices.Clone(d.C),
		backend: backend,
		log:     log,
		metrics: p.Metrics,
		scale:   set.Scale,
		diagR:   make([]float64, l),
		g:       make([]float64, n+m),
		acc:     accel.New(l, set.AccelerationLookback),
	}
	if d.A != nil {
		s.a = d.A.Clone()
	}
	if d.P != nil {
		s.p = d.P.Clone()
	}
	s.st = newState(n, m)
	s.res = newResiduals(n, m)

	s.normalize()
	s.setDiagR()
	if err = backend.Init(s.p, s.a, s.diagR[:n+m]); err != nil {
		s.unnormalizeCustom()
		return nil, fmt.Errorf("initialize %s backend: %w", backend.Name(), err)
	}
	if err = s.updateWorkCache(); err != nil {
		s.Release()
		return nil, err
	}
	s.setupTime = time.Since(setupStart)
	s.logSetup()
	return s, nil
}

// normalize equilibrates A and P, then scales b and c. A backend that
// equilibrates its own matrix is preferred over the built-in scaling.
func (s *Solver) normalize() {
	if !s.set.Normalize {
		s.scal = scaling.Identity(s.m, s.n)
		return
	}
	boundaries := s.spec.Boundaries()
	if nz, ok := s.backend.(linsys.Normalizer); ok {
		if d, e, ok := nz.NormalizeA(boundaries); ok {
			s.scal = &scaling.Scaling{D: d, E: e, PrimalScale: 1, DualScale: 1}
			s.customNorm = true
			if s.a != nil {
				s.a.ScaleRowsCols(d, e)
			}
			if s.p != nil {
				s.p.ScaleRowsCols(e, e)
			}
		}
	}
	if s.scal == nil {
		if s.a == nil {
			s.log.Warn("normalization skipped: backend owns A without normalizing it")
			s.scal = scaling.Identity(s.m, s.n)
			return
		}
		s.scal = scaling.Equilibrate(s.a, s.p, boundaries)
	}
	s.scal.NormalizeBC(s.b, s.c)
	s.scaledBC = true
}

func (s *Solver) unnormalizeCustom() {
	if s.customNorm {
		s.backend.(linsys.Normalizer).UnNormalizeA(s.scal.D, s.scal.E)
		s.customNorm = false
	}
}

// Solver is a problem instance ready for repeated solves.
// A Solver must not be used by several goroutines at once; independent
// solvers may run in parallel.
type Solver struct {
	id      uuid.UUID
	n, m, l int
	set     Settings
	spec    cone.Spec
	proj    *cone.Projector

	a, p         *sparse.CSC // scaled
	b, c         []float64   // scaled
	bOrig, cOrig []float64
	scal         *scaling.Scaling
	customNorm   bool
	scaledBC     bool

	backend linsys.Backend
	log     *slog.Logger
	metrics *Metrics

	scale        float64
	scaleUpdates int
	diagR        []float64 // R_x, R_y, R_τ
	g            []float64 // K𝐠 = [𝐜; −𝐛]

	st   state
	res  residuals
	acc  *accel.Anderson
	last *Solution

	setupTime time.Duration
	busy      atomic.Bool
	released  bool
}

// ID returns the random identifier attached to logs, traces and metrics.
func (s *Solver) ID() string { return s.id.String() }

// Dims returns the number of constraints m and variables n.
func (s *Solver) Dims() (m, n int) { return s.m, s.n }

// Scale returns the current dual scale factor.
func (s *Solver) Scale() float64 { return s.scale }

// setDiagR fills R from the cone layout and the current scale.
func (s *Solver) setDiagR() {
	n := s.n
	for j := 0; j < n; j++ {
		s.diagR[j] = s.set.RhoX
	}
	off := n
	for _, b := range s.spec {
		r := 1 / s.scale
		if b.Kind == cone.Zero {
			r = 1 / (zeroConeFactor * s.scale)
		}
		dim := b.Dim()
		for i := off; i < off+dim; i++ {
			s.diagR[i] = r
		}
		off += dim
	}
	s.diagR[s.l-1] = tauFactor
}

// updateWorkCache solves K𝐠 = [𝐜; −𝐛] for the current b, c and diagonal.
func (s *Solver) updateWorkCache() error {
	n := s.n
	copy(s.g[:n], s.c)
	for i, v := range s.b {
		s.g[n+i] = -v
	}
	if err := s.backend.Solve(s.g, nil, -1); err != nil {
		return fmt.Errorf("solve for the cached direction: %w", err)
	}
	return nil
}

// Update replaces b and/or c (nil leaves a vector unchanged) without
// touching the factorization. The next solve warm-starts from the previous
// solution when WarmStart is set.
func (s *Solver) Update(b, c []float64) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)
	if s.released {
		return ErrReleased
	}
	switch {
	case b != nil && len(b) != s.m:
		return fmt.Errorf("%w: b has %d entries, expected %d", ErrInvalidData, len(b), s.m)
	case c != nil && len(c) != s.n:
		return fmt.Errorf("%w: c has %d entries, expected %d", ErrInvalidData, len(c), s.n)
	case !allFinite(b) || !allFinite(c):
		return fmt.Errorf("%w: non-finite entries", ErrInvalidData)
	}
	if b != nil {
		copy(s.bOrig, b)
	}
	if c != nil {
		copy(s.cOrig, c)
	}
	copy(s.b, s.bOrig)
	copy(s.c, s.cOrig)
	if s.scaledBC {
		s.scal.NormalizeBC(s.b, s.c)
	}
	return s.updateWorkCache()
}

// Release frees the backend. The solver cannot be used afterwards.
func (s *Solver) Release() {
	if s.released {
		return
	}
	s.released = true
	s.unnormalizeCustom()
	s.backend.Release()
	s.last = nil
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func nanVec(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

func normInf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, math.Inf(1))
}
