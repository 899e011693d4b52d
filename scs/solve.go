// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scs

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/floats"
)

const tracerName = "github.com/curioloop/conic/scs"

// Guess is an initial point in original units. Nil parts are taken from the
// previous solution when WarmStart is set, and as zero otherwise.
type Guess struct {
	X, Y, S []float64
}

// Solution contains the final point of a solve and its summary.
type Solution struct {
	X, Y, S []float64 // fresh slices owned by the caller
	Info              // Solve summary.
}

// Info summarizes a solve.
type Info struct {
	Status    Status // Terminal status.
	StatusVal int    // Status as a signed integer code.
	Iter      int    // Number of iterations performed.

	PObj, DObj      float64 // Primal and dual objective.
	ResPri, ResDual float64 // Primal and dual residual.
	Gap, RelGap     float64 // Absolute and relative duality gap.
	ResInfeas       float64 // Infeasibility certificate residual.
	ResUnbddA       float64 // Unboundedness certificate residual ‖A𝐱 + 𝐬‖.
	ResUnbddP       float64 // Unboundedness certificate residual ‖P𝐱‖.
	CompSlack       float64 // Complementary slackness |𝐬ᵀ𝐲|.

	Scale              float64 // Final dual scale.
	ScaleUpdates       int     // Number of scale updates.
	AcceptedAccelSteps int     // Acceleration steps kept by the safeguard.
	RejectedAccelSteps int     // Acceleration steps undone by the safeguard.

	SetupTime  time.Duration
	SolveTime  time.Duration
	LinSysTime time.Duration
	ConeTime   time.Duration
	AccelTime  time.Duration

	LinSysMethod string // Backend name.
}

// Solve runs the splitting iteration from the previous solution (when
// WarmStart is set), the guess, or a cold start.
//
// Errors are returned only for misuse: a released or busy solver, or a guess
// of the wrong length. Numerical trouble, cancellation of ctx and the time
// limit are reported through Info.Status.
func (s *Solver) Solve(ctx context.Context, guess *Guess) (*Solution, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)
	if s.released {
		return nil, ErrReleased
	}
	if guess != nil {
		switch {
		case guess.X != nil && len(guess.X) != s.n:
			return nil, fmt.Errorf("%w: guess x has %d entries, expected %d", ErrInvalidData, len(guess.X), s.n)
		case guess.Y != nil && len(guess.Y) != s.m:
			return nil, fmt.Errorf("%w: guess y has %d entries, expected %d", ErrInvalidData, len(guess.Y), s.m)
		case guess.S != nil && len(guess.S) != s.m:
			return nil, fmt.Errorf("%w: guess s has %d entries, expected %d", ErrInvalidData, len(guess.S), s.m)
		}
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "scs.Solve",
		trace.WithAttributes(
			attribute.String("scs.solver", s.ID()),
			attribute.Int("scs.n", s.n),
			attribute.Int("scs.m", s.m),
			attribute.String("scs.backend", s.backend.Name()),
		))
	defer span.End()

	start := time.Now()
	var deadline time.Time
	if s.set.TimeLimit > 0 {
		deadline = start.Add(s.set.TimeLimit)
	}

	warm := s.initIterate(guess)
	s.acc.Reset()
	accepted, rejected := s.acc.Accepted(), s.acc.Rejected()
	scaleUpdates := s.scaleUpdates

	csvw := s.openCSV()
	var clk timers
	out := s.iterate(ctx, deadline, &clk, csvw)
	csvw.close(s.log)

	sol := s.finalize(out)
	sol.Iter = out.iters
	sol.Scale = s.scale
	sol.ScaleUpdates = s.scaleUpdates - scaleUpdates
	sol.AcceptedAccelSteps = s.acc.Accepted() - accepted
	sol.RejectedAccelSteps = s.acc.Rejected() - rejected
	sol.SetupTime = s.setupTime
	sol.SolveTime = time.Since(start)
	sol.LinSysTime = clk.linSys
	sol.ConeTime = clk.cone
	sol.AccelTime = clk.accel
	sol.LinSysMethod = s.backend.Name()

	s.last = &Solution{X: slices.Clone(sol.X), Y: slices.Clone(sol.Y), S: slices.Clone(sol.S)}

	if out.timeLimit {
		s.log.Warn("time limit reached", "iter", out.iters, "limit", s.set.TimeLimit)
	}
	if out.err != nil {
		s.log.Error("solve failed", "iter", out.iters, "error", out.err)
		span.RecordError(out.err)
	}
	s.logSummary(sol, warm)
	s.metrics.observe(&sol.Info)

	span.SetAttributes(
		attribute.String("scs.status", sol.Status.String()),
		attribute.Int("scs.iter", sol.Iter),
		attribute.Int("scs.scale_updates", sol.ScaleUpdates),
	)
	if sol.Status == Failed {
		span.SetStatus(codes.Error, "solve failed")
	}
	return sol, nil
}

// initIterate chooses between a warm and a cold start.
func (s *Solver) initIterate(guess *Guess) bool {
	var x, y, sl []float64
	if s.set.WarmStart && s.last != nil {
		x, y, sl = s.last.X, s.last.Y, s.last.S
	}
	if guess != nil {
		if guess.X != nil {
			x = guess.X
		}
		if guess.Y != nil {
			y = guess.Y
		}
		if guess.S != nil {
			sl = guess.S
		}
	}
	if x == nil && y == nil && sl == nil {
		s.coldStart()
		return false
	}
	return s.warmStart(x, y, sl)
}

// finalize turns the last residuals into a solution in original units.
func (s *Solver) finalize(out outcome) *Solution {
	r := &s.res
	status := out.status
	cert := status
	switch status {
	case Unfinished, Interrupted:
		cert = s.nearestCertificate(r)
		if status == Unfinished {
			status = cert.inaccurate()
		}
	}

	sol := &Solution{X: slices.Clone(r.x), Y: slices.Clone(r.y), S: slices.Clone(r.s)}
	info := &sol.Info
	info.ResPri, info.ResDual, info.Gap = r.resPri, r.resDual, r.gap
	info.ResInfeas, info.ResUnbddA, info.ResUnbddP = r.resInfeas, r.resUnbddA, r.resUnbddP
	info.RelGap, info.CompSlack = math.NaN(), math.NaN()

	switch cert {
	case Solved:
		inv := 1 / r.tau
		floats.Scale(inv, sol.X)
		floats.Scale(inv, sol.Y)
		floats.Scale(inv, sol.S)
		info.PObj, info.DObj = r.pobj, r.dobj
		info.RelGap = r.gap / (1 + math.Abs(r.pobj) + math.Abs(r.dobj))
		info.CompSlack = math.Abs(floats.Dot(sol.S, sol.Y))
	case Infeasible:
		floats.Scale(-1/r.btyTau, sol.Y)
		sol.X, sol.S = nanVec(s.n), nanVec(s.m)
		info.PObj, info.DObj = math.Inf(1), math.Inf(1)
	case Unbounded:
		floats.Scale(-1/r.ctxTau, sol.X)
		floats.Scale(-1/r.ctxTau, sol.S)
		sol.Y = nanVec(s.m)
		info.PObj, info.DObj = math.Inf(-1), math.Inf(-1)
	default:
		sol.X, sol.Y, sol.S = nanVec(s.n), nanVec(s.m), nanVec(s.m)
		info.PObj, info.DObj = math.NaN(), math.NaN()
	}
	info.Status = status
	info.StatusVal = int(status)
	return sol
}

// nearestCertificate classifies an iterate that did not meet the tolerances.
func (s *Solver) nearestCertificate(r *residuals) Status {
	switch {
	case !r.finite():
		return Failed
	case r.tau > indeterminateTol && r.tau > r.kap:
		return Solved
	case floats.Norm(s.st.u, 2) < indeterminateTol*math.Sqrt(float64(s.l)):
		return Indeterminate
	case r.btyTau < r.ctxTau:
		return Infeasible
	}
	return Unbounded
}

// Solve builds a solver for p, solves once from guess and releases it.
func Solve(ctx context.Context, p *Problem, guess *Guess) (*Solution, error) {
	s, err := p.New()
	if err != nil {
		return nil, err
	}
	defer s.Release()
	return s.Solve(ctx, guess)
}
