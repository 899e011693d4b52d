// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cone

import "math"

const (
	powMaxIters = 20
	powTol      = 1e-9
)

func powCalcX(r, xh, rh, a float64) float64 {
	x := 0.5 * (xh + math.Sqrt(xh*xh+4*a*(rh-r)*r))
	return math.Max(x, 1e-12)
}

func powCalcDxDr(x, xh, rh, r, a float64) float64 {
	return a * (rh - 2*r) / (2*x - xh)
}

// projectPower projects (x,y,z) onto {xᵃ·y⁽¹⁻ᵃ⁾ ≥ |z|, x,y ≥ 0}
// by Newton iteration on the radius r = |z| of the projection.
func projectPower(v []float64, a float64) {
	xh, yh, rh := v[0], v[1], math.Abs(v[2])
	scale := magnitude(v)
	thresh := coneThresh * scale

	// v ∈ K
	if xh >= 0 && yh >= 0 && thresh+math.Pow(xh, a)*math.Pow(yh, 1-a) >= rh {
		return
	}
	// −v ∈ K*
	if xh <= 0 && yh <= 0 &&
		thresh+math.Pow(-xh, a)*math.Pow(-yh, 1-a) >= rh*math.Pow(a, a)*math.Pow(1-a, 1-a) {
		v[0], v[1], v[2] = 0, 0, 0
		return
	}

	var x, y float64
	r := rh / 2
	for i := 0; i < powMaxIters; i++ {
		x = powCalcX(r, xh, rh, a)
		y = powCalcX(r, yh, rh, 1-a)
		xa := math.Pow(x, a) * math.Pow(y, 1-a)
		f := xa - r
		if math.Abs(f) < powTol*scale {
			break
		}
		dxdr := powCalcDxDr(x, xh, rh, r, a)
		dydr := powCalcDxDr(y, yh, rh, r, 1-a)
		fp := xa*(a*dxdr/x+(1-a)*dydr/y) - 1
		r = math.Min(math.Max(r-f/fp, 0), rh)
	}
	v[0], v[1] = x, y
	if v[2] < 0 {
		v[2] = -r
	} else {
		v[2] = r
	}
}
