// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsys

import (
	"errors"

	"github.com/curioloop/conic/sparse"
)

// Callbacks delegates every operation to user functions, for callers that
// keep A in their own representation. SolveFn, AccumByAFn and AccumByATFn
// are mandatory.
type Callbacks struct {
	// InitFn receives the scaled P (may be nil), the matrix passed to the
	// solver (may be nil) and the diagonal.
	InitFn func(p, a *sparse.CSC, diagR []float64) error
	// SolveFn overwrites rhs with the solution of the system.
	SolveFn func(rhs, hint []float64, iter int) error
	// AccumByAFn computes 𝐲 ← 𝐲 + A𝐱.
	AccumByAFn func(x, y []float64)
	// AccumByATFn computes 𝐲 ← 𝐲 + Aᵀ𝐱.
	AccumByATFn func(x, y []float64)
	// UpdateDiagFn rebinds to a new diagonal; InitFn is called again when nil.
	UpdateDiagFn func(diagR []float64) error
	// ReleaseFn is called once when the solver is released.
	ReleaseFn func()
	// NormalizeAFn scales A to DAE and returns D and E.
	NormalizeAFn func(boundaries []int) (d, e []float64)
	// UnNormalizeAFn restores A from DAE.
	UnNormalizeAFn func(d, e []float64)
	// Method names the callbacks in logs.
	Method string

	p, a *sparse.CSC
}

var errMissingCallback = errors.New("linsys: solve and accumulate callbacks are required")

func (c *Callbacks) Name() string {
	if c.Method != "" {
		return c.Method
	}
	return "callbacks"
}

func (c *Callbacks) OwnsMatrix() bool { return true }

func (c *Callbacks) Init(p, a *sparse.CSC, diagR []float64) error {
	if c.SolveFn == nil || c.AccumByAFn == nil || c.AccumByATFn == nil {
		return errMissingCallback
	}
	c.p, c.a = p, a
	if c.InitFn != nil {
		return c.InitFn(p, a, diagR)
	}
	return nil
}

func (c *Callbacks) Solve(rhs, hint []float64, iter int) error {
	return c.SolveFn(rhs, hint, iter)
}

func (c *Callbacks) AccumByA(x, y []float64)  { c.AccumByAFn(x, y) }
func (c *Callbacks) AccumByAT(x, y []float64) { c.AccumByATFn(x, y) }

func (c *Callbacks) UpdateDiag(diagR []float64) error {
	switch {
	case c.UpdateDiagFn != nil:
		return c.UpdateDiagFn(diagR)
	case c.InitFn != nil:
		return c.InitFn(c.p, c.a, diagR)
	}
	return nil
}

func (c *Callbacks) NormalizeA(boundaries []int) (d, e []float64, ok bool) {
	if c.NormalizeAFn == nil {
		return nil, nil, false
	}
	d, e = c.NormalizeAFn(boundaries)
	return d, e, true
}

func (c *Callbacks) UnNormalizeA(d, e []float64) {
	if c.UnNormalizeAFn != nil {
		c.UnNormalizeAFn(d, e)
	}
}

func (c *Callbacks) Release() {
	if c.ReleaseFn != nil {
		c.ReleaseFn()
	}
}
