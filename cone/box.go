// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cone

import "math"

const boxMaxIters = 100

// projectBox projects (t,𝐬) onto {t𝐥 ≤ 𝐬 ≤ t𝐮, t ≥ 0}.
//
// For a fixed t the nearest 𝐬 is the clip of 𝐬₀ into [t𝐥, t𝐮], so the
// problem reduces to minimizing the convex piecewise quadratic
//
//	h(t) = ½(t − t₀)² + ½∑ dist(s₀ᵢ, [tlᵢ, tuᵢ])²
//
// over t ≥ 0, which is done by safeguarded Newton steps on h′.
func projectBox(v, lo, hi []float64) {
	t0, s := v[0], v[1:]

	deriv := func(t float64) (g, h float64) {
		g, h = t-t0, 1
		for i, si := range s {
			if l := lo[i]; !math.IsInf(l, -1) && si < t*l {
				g += l * (t*l - si)
				h += l * l
			} else if u := hi[i]; !math.IsInf(u, 1) && si > t*u {
				g += u * (t*u - si)
				h += u * u
			}
		}
		return
	}

	t := 0.0
	if g, _ := deriv(0); g < 0 {
		lower, upper := 0.0, math.Max(t0, 1)
		for k := 0; k < 60; k++ {
			if g, _ := deriv(upper); g > 0 {
				break
			}
			lower, upper = upper, 2*upper
		}
		t = math.Max(t0, lower)
		if t >= upper {
			t = (lower + upper) / 2
		}
		for k := 0; k < boxMaxIters; k++ {
			g, h := deriv(t)
			if math.Abs(g) <= coneTol*(1+math.Abs(t)) {
				break
			}
			if g > 0 {
				upper = t
			} else {
				lower = t
			}
			next := t - g/h
			if next <= lower || next >= upper {
				next = (lower + upper) / 2
			}
			if upper-lower <= coneTol*(1+upper) {
				t = next
				break
			}
			t = next
		}
	}

	v[0] = t
	for i, si := range s {
		if l := lo[i]; !math.IsInf(l, -1) && si < t*l {
			s[i] = t * l
		} else if u := hi[i]; !math.IsInf(u, 1) && si > t*u {
			s[i] = t * u
		}
	}
}
