// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scs

import (
	"errors"
	"fmt"
	"math"
)

const (
	// R_τ, the weight of the homogenizing variable.
	tauFactor = 10.0
	// zero cone rows use R_y = 1/(zeroConeFactor·scale)
	zeroConeFactor = 1000.0
	// iterations with τ forced to one
	feasibleIters = 1
	// bounds of the adaptive scale
	minScaleValue = 1e-6
	maxScaleValue = 1e6
	// minimum iterations between two scale updates
	rescaleMinIters = 100
	// τ and ‖u‖ below this are treated as zero at the end of a solve
	indeterminateTol = 1e-9
	// iterations between two progress lines
	printInterval = 250
	// smallest denominator of residual ratios
	safeDivTol = 1e-18
)

// the scale is updated when the mean residual ratio leaves [1/scaleBound, scaleBound]
var scaleBound = math.Sqrt(10)

var (
	// ErrInvalidData reports inconsistent dimensions or malformed problem data.
	ErrInvalidData = errors.New("scs: invalid problem data")
	// ErrInvalidCone reports a cone product that does not match the data.
	ErrInvalidCone = errors.New("scs: invalid cone")
	// ErrInvalidSettings reports out-of-range settings.
	ErrInvalidSettings = errors.New("scs: invalid settings")
	// ErrReleased is returned by a solver after Release.
	ErrReleased = errors.New("scs: solver released")
	// ErrBusy is returned when a solver is entered by two goroutines at once.
	ErrBusy = errors.New("scs: solver in use by another goroutine")
)

// Status is the terminal state of a solve.
type Status int

const (
	// Unfinished is never returned; it marks a solve still iterating.
	Unfinished Status = 0
	// Solved optimal solution found within the tolerances.
	Solved Status = 1
	// SolvedInaccurate the iteration limit was hit with τ dominating κ.
	SolvedInaccurate Status = 2
	// Unbounded certificate of dual infeasibility found.
	Unbounded Status = -1
	// Infeasible certificate of primal infeasibility found.
	Infeasible Status = -2
	// Indeterminate the iterate collapsed to zero.
	Indeterminate Status = -3
	// Failed NaN in the iterate or a non-recoverable backend error.
	Failed Status = -4
	// Interrupted the context was canceled; the best iterate is returned.
	Interrupted Status = -5
	// UnboundedInaccurate the iteration limit was hit closer to unboundedness.
	UnboundedInaccurate Status = -6
	// InfeasibleInaccurate the iteration limit was hit closer to infeasibility.
	InfeasibleInaccurate Status = -7
)

var statusNames = map[Status]string{
	Unfinished:           "unfinished",
	Solved:               "solved",
	SolvedInaccurate:     "solved_inaccurate",
	Unbounded:            "unbounded",
	Infeasible:           "infeasible",
	Indeterminate:        "indeterminate",
	Failed:               "failed",
	Interrupted:          "interrupted",
	UnboundedInaccurate:  "unbounded_inaccurate",
	InfeasibleInaccurate: "infeasible_inaccurate",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// inaccurate maps a certificate found at the iteration limit to its
// inaccurate variant.
func (s Status) inaccurate() Status {
	switch s {
	case Solved:
		return SolvedInaccurate
	case Infeasible:
		return InfeasibleInaccurate
	case Unbounded:
		return UnboundedInaccurate
	}
	return s
}

// Certified reports whether s carries a usable point: an optimal solution
// or an infeasibility certificate, accurate or not.
func (s Status) Certified() bool {
	switch s {
	case Solved, SolvedInaccurate, Infeasible, InfeasibleInaccurate, Unbounded, UnboundedInaccurate:
		return true
	}
	return false
}

func safeDiv(a, b float64) float64 {
	if b < safeDivTol {
		b = safeDivTol
	}
	return a / b
}
