// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scs solves convex cone programs
//
//	minimize ½𝐱ᵀP𝐱 + 𝐜ᵀ𝐱
//	subject to A𝐱 + 𝐬 = 𝐛, 𝐬 ∈ K
//
// with an operator splitting method applied to the homogeneous self-dual
// embedding of the problem. Each iteration solves one quasi-definite linear
// system through a pluggable linsys.Backend, projects onto the dual cone
// and updates the embedding variable. The iteration either converges to a
// primal-dual solution or produces a certificate of primal or dual
// infeasibility.
//
// A Solver is created once per problem and may be solved repeatedly;
// Update changes 𝐛 and 𝐜 without refactorizing, and a solve warm-starts
// from the previous solution:
//
//	solver, err := (&scs.Problem{Data: data, Cone: spec}).New()
//	if err != nil {
//		return err
//	}
//	defer solver.Release()
//	sol, _ := solver.Solve(ctx, nil)
//	if sol.Status == scs.Solved {
//		use(sol.X)
//	}
//
// Only invalid input is reported as an error. Infeasibility, iteration or
// time limits, cancellation and numerical breakdown are reported through
// the Status of the returned Solution.
package scs
