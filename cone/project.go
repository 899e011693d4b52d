// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cone

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// coneTol is the accuracy of the iterative sub-solvers.
	coneTol = 1e-8
	// coneThresh decides membership of a point before projecting, relative
	// to the magnitude of the block.
	coneThresh = 1e-8
	sqrt2      = math.Sqrt2
	invSqrt2   = 1 / math.Sqrt2
)

// Projector projects vectors onto a fixed cone product.
// It keeps scratch space and must not be shared between goroutines.
type Projector struct {
	spec    Spec
	offsets []int
	dim     int
	scratch []float64
	eig     map[int]*eigWork
}

// NewProjector prepares a projector for a validated spec.
func NewProjector(spec Spec) *Projector {
	p := &Projector{spec: spec, offsets: make([]int, len(spec)), eig: make(map[int]*eigWork)}
	maxBlock := 3
	for i, b := range spec {
		p.offsets[i] = p.dim
		d := b.Dim()
		p.dim += d
		if d > maxBlock {
			maxBlock = d
		}
	}
	p.scratch = make([]float64, maxBlock)
	return p
}

// Spec returns the cone product handled by p.
func (p *Projector) Spec() Spec { return p.spec }

// Dim returns the dimension of the product.
func (p *Projector) Dim() int { return p.dim }

// Project replaces v by Π_K(v), or by Π_K*(v) when dual is set.
func (p *Projector) Project(v []float64, dual bool) {
	for i := range p.spec {
		b := &p.spec[i]
		off := p.offsets[i]
		blk := v[off : off+b.Dim()]
		if len(blk) == 0 {
			continue
		}
		projectors[b.Kind](p, b, blk, dual)
	}
}

// Project is a convenience wrapper that allocates a Projector.
func Project(spec Spec, v []float64, dual bool) {
	NewProjector(spec).Project(v, dual)
}

// magnitude is the ∞-norm of a cone block, the unit of its tolerances.
func magnitude(v []float64) float64 {
	return floats.Norm(v, math.Inf(1))
}

type projectFunc func(p *Projector, b *Block, v []float64, dual bool)

var projectors [numKinds]projectFunc

func init() {
	projectors = [numKinds]projectFunc{
		Zero:        projectZero,
		Nonneg:      projectNonneg,
		Box:         projectBoxBlock,
		SecondOrder: projectSOCBlock,
		PSD:         projectPSDBlock,
		ComplexPSD:  projectComplexPSDBlock,
		Exp:         projectExpBlock,
		DualExp:     projectExpBlock,
		Power:       projectPowerBlock,
		DualPower:   projectPowerBlock,
	}
}

// moreau computes Π_K*(v) = v + Π_K(−v) given the primal projection.
func (p *Projector) moreau(v []float64, primal func([]float64)) {
	w := p.scratch[:len(v)]
	for i, vi := range v {
		w[i] = -vi
	}
	primal(w)
	floats.Add(v, w)
}

func projectZero(_ *Projector, _ *Block, v []float64, dual bool) {
	if !dual {
		clear(v)
	}
}

func projectNonneg(_ *Projector, _ *Block, v []float64, _ bool) {
	for i, vi := range v {
		if vi < 0 {
			v[i] = 0
		}
	}
}

func projectSOCBlock(_ *Projector, _ *Block, v []float64, _ bool) {
	projectSOC(v)
}

// projectSOC projects (t,𝐱) onto ‖𝐱‖₂ ≤ t.
func projectSOC(v []float64) {
	if len(v) == 1 {
		v[0] = math.Max(v[0], 0)
		return
	}
	t, x := v[0], v[1:]
	nx := floats.Norm(x, 2)
	switch {
	case nx <= t:
	case nx <= -t:
		clear(v)
	default:
		a := (t + nx) / 2
		v[0] = a
		floats.Scale(a/nx, x)
	}
}

func projectBoxBlock(p *Projector, b *Block, v []float64, dual bool) {
	primal := func(w []float64) { projectBox(w, b.Lower, b.Upper) }
	if dual {
		p.moreau(v, primal)
	} else {
		primal(v)
	}
}

func projectExpBlock(p *Projector, b *Block, v []float64, dual bool) {
	// the primal exponential cone is projected directly when either the block
	// is primal and a primal projection is wanted, or both are dual
	direct := (b.Kind == Exp) != dual
	for i := 0; i+3 <= len(v); i += 3 {
		c := v[i : i+3]
		if direct {
			projectExp(c)
		} else {
			p.moreau(c, projectExp)
		}
	}
}

func projectPowerBlock(p *Projector, b *Block, v []float64, dual bool) {
	a := b.Alpha
	primal := func(w []float64) { projectPower(w, a) }
	if (b.Kind == Power) != dual {
		primal(v)
	} else {
		p.moreau(v, primal)
	}
}
