// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linsys solves the quasi-definite systems that arise in each
// iteration of the splitting conic solver:
//
//	⎡R𝐱 + P   Aᵀ ⎤ ⎡𝐳𝐱⎤   ⎡𝐫𝐱⎤
//	⎣  A     −R𝐲 ⎦ ⎣𝐳𝐲⎦ = ⎣𝐫𝐲⎦
//
// where R𝐱 and R𝐲 are positive diagonal matrices. The diagonal is passed as
// one vector diagR of length n+m whose first n entries form R𝐱.
package linsys

import (
	"errors"

	"github.com/curioloop/conic/sparse"
)

// ErrFactorization is returned when a backend cannot factorize the system.
var ErrFactorization = errors.New("linsys: factorization failed")

// Backend is a linear-system solver bound to one problem.
//
// Implementations are not safe for concurrent use.
type Backend interface {
	// Init binds the backend to P (upper triangle, may be nil) and A and
	// prepares it for the diagonal diagR.
	Init(p, a *sparse.CSC, diagR []float64) error
	// Solve overwrites rhs with the solution of the system. hint is an
	// estimate of the solution and may be nil. A negative iter requests the
	// best accuracy the backend can deliver.
	Solve(rhs, hint []float64, iter int) error
	// AccumByA computes 𝐲 ← 𝐲 + A𝐱.
	AccumByA(x, y []float64)
	// AccumByAT computes 𝐲 ← 𝐲 + Aᵀ𝐱.
	AccumByAT(x, y []float64)
	// UpdateDiag rebinds the backend to a new diagonal without changing P or A.
	UpdateDiag(diagR []float64) error
	// Release frees the resources held by the backend.
	Release()
	// Name identifies the method in logs.
	Name() string
}

// MatrixOwner is implemented by backends that keep their own copy of A,
// in which case the solver may be given no matrix at all.
type MatrixOwner interface {
	OwnsMatrix() bool
}

// Normalizer is implemented by backends that equilibrate their own copy of A.
type Normalizer interface {
	// NormalizeA scales the backend matrix to DAE and returns D and E.
	// ok is false when the backend does not support normalization.
	NormalizeA(boundaries []int) (d, e []float64, ok bool)
	// UnNormalizeA restores the original matrix.
	UnNormalizeA(d, e []float64)
}

// splitDiag returns the R𝐱 and R𝐲 parts of diagR.
func splitDiag(diagR []float64, n int) (rx, ry []float64) {
	return diagR[:n], diagR[n:]
}
