// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cone

import "math"

const expMaxIters = 100

// expNewton solves for the z-coordinate of the projection given the dual
// multiplier ρ, by Newton's method on the optimality condition.
func expNewton(rho, yh, zh float64) float64 {
	t := math.Max(-zh, 1e-6)
	for i := 0; i < expMaxIters; i++ {
		f := t*(t+zh)/rho/rho - yh/rho + math.Log(t/rho) + 1
		fp := (2*t+zh)/rho/rho + 1/t
		t -= f / fp
		switch {
		case t <= -zh:
			return 0
		case t <= 0:
			return zh
		case math.Abs(f) < coneTol:
			return t + zh
		}
	}
	return t + zh
}

func expSolve(v, x *[3]float64, rho float64) {
	x[2] = expNewton(rho, v[1], v[2])
	x[1] = (x[2] - v[2]) * x[2] / rho
	x[0] = v[0] - rho
}

// expGrad is the derivative of the dual function with respect to ρ.
func expGrad(v, x *[3]float64, rho float64) float64 {
	expSolve(v, x, rho)
	if x[1] <= 1e-12 {
		return x[0]
	}
	return x[0] + x[1]*math.Log(x[1]/x[2])
}

// projectExp projects (r,s,t) onto the exponential cone
// cl{(x,y,z) : y·exp(x/y) ≤ z, y > 0}.
func projectExp(v []float64) {
	r, s, t := v[0], v[1], v[2]
	scale := magnitude(v)
	thresh := coneThresh * scale

	// v ∈ K
	if (s > 0 && s*math.Exp(r/s)-t <= thresh) || (r <= 0 && s == 0 && t >= 0) {
		return
	}
	// −v ∈ K*
	if (r > 0 && r*math.Exp(s/r)+math.E*t <= thresh) || (r == 0 && s <= 0 && t <= 0) {
		v[0], v[1], v[2] = 0, 0, 0
		return
	}
	// analytical case
	if r < 0 && s < 0 {
		v[1] = 0
		v[2] = math.Max(t, 0)
		return
	}

	w := [3]float64{r, s, t}
	var x [3]float64
	lb, ub := 0.0, 0.125
	for k := 0; k < 200 && expGrad(&w, &x, ub) > 0; k++ {
		lb, ub = ub, 2*ub
	}
	for i := 0; i < expMaxIters; i++ {
		rho := (lb + ub) / 2
		if expGrad(&w, &x, rho) > 0 {
			lb = rho
		} else {
			ub = rho
		}
		if ub-lb < coneTol*scale {
			break
		}
	}
	v[0], v[1], v[2] = x[0], x[1], x[2]
}
