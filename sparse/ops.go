// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

// MulVecAdd computes 𝐲 ← 𝐲 + A𝐱.
func (a *CSC) MulVecAdd(x, y []float64) {
	for j := 0; j < a.N; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		for k := a.P[j]; k < a.P[j+1]; k++ {
			y[a.I[k]] += a.X[k] * xj
		}
	}
}

// MulTVecAdd computes 𝐲 ← 𝐲 + Aᵀ𝐱.
func (a *CSC) MulTVecAdd(x, y []float64) {
	for j := 0; j < a.N; j++ {
		s := 0.0
		for k := a.P[j]; k < a.P[j+1]; k++ {
			s += a.X[k] * x[a.I[k]]
		}
		y[j] += s
	}
}

// SymMulVecAdd computes 𝐲 ← 𝐲 + P𝐱 where only the upper triangle of P is stored.
func (a *CSC) SymMulVecAdd(x, y []float64) {
	for j := 0; j < a.N; j++ {
		xj, s := x[j], 0.0
		for k := a.P[j]; k < a.P[j+1]; k++ {
			i := a.I[k]
			s += a.X[k] * x[i]
			if i != j {
				y[i] += a.X[k] * xj
			}
		}
		y[j] += s
	}
}

// ScaleRowsCols computes A ← diag(d) A diag(e). A nil vector leaves that side unchanged.
func (a *CSC) ScaleRowsCols(d, e []float64) {
	for j := 0; j < a.N; j++ {
		ej := 1.0
		if e != nil {
			ej = e[j]
		}
		for k := a.P[j]; k < a.P[j+1]; k++ {
			v := a.X[k] * ej
			if d != nil {
				v *= d[a.I[k]]
			}
			a.X[k] = v
		}
	}
}

// Diag returns the stored diagonal of a square matrix.
func (a *CSC) Diag() []float64 {
	d := make([]float64, a.N)
	for j := 0; j < a.N; j++ {
		for k := a.P[j]; k < a.P[j+1]; k++ {
			if a.I[k] == j {
				d[j] += a.X[k]
			}
		}
	}
	return d
}
