// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cone

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestDimsSpec(t *testing.T) {
	d := Dims{Z: 1, F: 1, L: 2, BL: []float64{-1}, BU: []float64{1},
		Q: []int{3}, S: []int{2}, CS: []int{2}, EP: 1, ED: 2, P: []float64{0.3, -0.5}}
	s, err := d.Spec()
	require.NoError(t, err)
	kinds := make([]Kind, len(s))
	for i, b := range s {
		kinds[i] = b.Kind
	}
	assert.Equal(t, []Kind{Zero, Nonneg, Box, SecondOrder, PSD, ComplexPSD, Exp, DualExp, Power, DualPower}, kinds)
	assert.Equal(t, 2+2+2+3+3+4+3+6+3+3, s.Dim())
	assert.Equal(t, 0.5, s[9].Alpha)

	back, err := s.Dims()
	require.NoError(t, err)
	assert.Equal(t, 2, back.Z)
	assert.Equal(t, []float64{0.3, -0.5}, back.P)
	assert.Equal(t, 2, back.ED)
}

func TestDimsInvalid(t *testing.T) {
	tests := []struct {
		name string
		dims Dims
	}{
		{"negative l", Dims{L: -2}},
		{"box mismatch", Dims{BL: []float64{0}, BU: []float64{1, 2}}},
		{"box inverted", Dims{BL: []float64{2}, BU: []float64{1}}},
		{"power out of range", Dims{P: []float64{1.5}}},
		{"power zero", Dims{P: []float64{0}}},
		{"negative soc", Dims{Q: []int{-1}}},
		{"negative ep", Dims{EP: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.dims.Spec()
			assert.ErrorIs(t, err, ErrInvalidCone)
		})
	}
}

func TestBoundaries(t *testing.T) {
	s := Spec{
		{Kind: Zero, Size: 2},
		{Kind: Nonneg, Size: 1},
		{Kind: SecondOrder, Size: 3},
		{Kind: PSD, Size: 2},
		{Kind: Exp, Size: 2},
		{Kind: Power, Alpha: 0.5},
	}
	assert.Equal(t, []int{1, 1, 1, 3, 3, 3, 3, 3}, s.Boundaries())
	sum := 0
	for _, g := range s.Boundaries() {
		sum += g
	}
	assert.Equal(t, s.Dim(), sum)
}

func TestProjectSOC(t *testing.T) {
	tests := []struct {
		in, want []float64
	}{
		{[]float64{2, 1, 1}, []float64{2, 1, 1}},
		{[]float64{-2, 1, 1}, []float64{0, 0, 0}},
		{[]float64{0, 3, 4}, []float64{2.5, 1.5, 2}},
		{[]float64{-1}, []float64{0}},
	}
	for _, tt := range tests {
		v := append([]float64(nil), tt.in...)
		Project(Spec{{Kind: SecondOrder, Size: len(v)}}, v, false)
		assert.InDeltaSlice(t, tt.want, v, 1e-12, "input %v", tt.in)
	}
}

func TestProjectZero(t *testing.T) {
	s := Spec{{Kind: Zero, Size: 3}}
	v := []float64{1, -2, 3}
	Project(s, v, true)
	assert.Equal(t, []float64{1, -2, 3}, v)
	Project(s, v, false)
	assert.Equal(t, []float64{0, 0, 0}, v)
}

func TestProjectPSD(t *testing.T) {
	// diag(1, -1) with zero off-diagonal
	v := []float64{1, 0, -1}
	Project(Spec{{Kind: PSD, Size: 2}}, v, false)
	assert.InDeltaSlice(t, []float64{1, 0, 0}, v, 1e-12)

	// [[0 1] [1 0]] has eigenvalues ±1; projection is ½[[1 1] [1 1]]
	v = []float64{0, math.Sqrt2, 0}
	Project(Spec{{Kind: PSD, Size: 2}}, v, false)
	assert.InDeltaSlice(t, []float64{0.5, 0.5 * math.Sqrt2, 0.5}, v, 1e-12)
}

func TestProjectComplexPSD(t *testing.T) {
	// H = [[0, -i], [i, 0]] has eigenvalues ±1, with H₊ = ½[[1, -i], [i, 1]]
	v := []float64{0, 0, math.Sqrt2, 0}
	Project(Spec{{Kind: ComplexPSD, Size: 2}}, v, false)
	assert.InDeltaSlice(t, []float64{0.5, 0, 0.5 * math.Sqrt2, 0.5}, v, 1e-10)
}

func TestProjectExpSpecialCases(t *testing.T) {
	in := []float64{0, 1, 2} // 1·exp(0) ≤ 2
	v := append([]float64(nil), in...)
	projectExp(v)
	assert.Equal(t, in, v)

	v = []float64{-1, -1, 3}
	projectExp(v)
	assert.Equal(t, []float64{-1, 0, 3}, v)

	v = []float64{1, 0, -10} // −v ∈ K*
	projectExp(v)
	assert.Equal(t, []float64{0, 0, 0}, v)
}

func TestProjectPower(t *testing.T) {
	in := []float64{4, 1, 1.5}
	v := append([]float64(nil), in...)
	projectPower(v, 0.5)
	assert.Equal(t, in, v)

	v = []float64{1, 1, 3}
	projectPower(v, 0.5)
	assert.InDelta(t, math.Sqrt(v[0]*v[1]), math.Abs(v[2]), 1e-6)
	assert.Greater(t, v[0], 1.0)
}

func TestProjectBox(t *testing.T) {
	b := Block{Kind: Box, Lower: []float64{-1, 0}, Upper: []float64{1, math.Inf(1)}}
	s := Spec{b}

	in := []float64{2, 1, 5}
	v := append([]float64(nil), in...)
	Project(s, v, false)
	assert.InDeltaSlice(t, in, v, 1e-12)

	v = []float64{-1, 0, 0}
	Project(s, v, false)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, v, 1e-12)

	v = []float64{1, 3, -2}
	Project(s, v, false)
	assertInBox(t, b, v, 1e-8)
}

func assertInBox(t *testing.T, b Block, v []float64, tol float64) {
	t.Helper()
	tt := v[0]
	assert.GreaterOrEqual(t, tt, -tol)
	for i, si := range v[1:] {
		if !math.IsInf(b.Lower[i], -1) {
			assert.GreaterOrEqual(t, si, tt*b.Lower[i]-tol)
		}
		if !math.IsInf(b.Upper[i], 1) {
			assert.LessOrEqual(t, si, tt*b.Upper[i]+tol)
		}
	}
}

func allKinds() Spec {
	return Spec{
		{Kind: Zero, Size: 2},
		{Kind: Nonneg, Size: 3},
		{Kind: Box, Lower: []float64{-1, 0, math.Inf(-1)}, Upper: []float64{2, 1, 0.5}},
		{Kind: SecondOrder, Size: 4},
		{Kind: PSD, Size: 3},
		{Kind: ComplexPSD, Size: 2},
		{Kind: Exp, Size: 2},
		{Kind: DualExp, Size: 1},
		{Kind: Power, Alpha: 0.3},
		{Kind: DualPower, Alpha: 0.7},
	}
}

func randVec(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	return v
}

func TestProjectIdempotent(t *testing.T) {
	spec := allKinds()
	require.NoError(t, spec.Validate())
	p := NewProjector(spec)
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		for _, dual := range []bool{false, true} {
			v := randVec(rng, spec.Dim())
			p.Project(v, dual)
			w := append([]float64(nil), v...)
			p.Project(w, dual)
			assert.InDeltaSlice(t, v, w, 1e-6, "trial %d dual %v", trial, dual)
		}
	}
}

func TestSelfDual(t *testing.T) {
	spec := Spec{
		{Kind: Nonneg, Size: 3},
		{Kind: SecondOrder, Size: 5},
		{Kind: PSD, Size: 4},
		{Kind: ComplexPSD, Size: 3},
	}
	p := NewProjector(spec)
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		v := randVec(rng, spec.Dim())
		w := append([]float64(nil), v...)
		p.Project(v, false)
		p.Project(w, true)
		assert.InDeltaSlice(t, v, w, 1e-12)
	}
}

// TestMoreau checks v = Π_K(v) − Π_K*(−v) and ⟨Π_K(v), Π_K*(−v)⟩ = 0.
func TestMoreau(t *testing.T) {
	for _, b := range allKinds() {
		b := b
		t.Run(b.Kind.String(), func(t *testing.T) {
			spec := Spec{b}
			p := NewProjector(spec)
			rng := rand.New(rand.NewSource(int64(b.Kind) + 3))
			for trial := 0; trial < 30; trial++ {
				v := randVec(rng, spec.Dim())
				primal := append([]float64(nil), v...)
				p.Project(primal, false)
				dual := make([]float64, len(v))
				floats.ScaleTo(dual, -1, v)
				p.Project(dual, true)

				recon := make([]float64, len(v))
				floats.SubTo(recon, primal, dual)
				scale := 1 + floats.Norm(v, 2)
				assert.InDeltaSlice(t, v, recon, 1e-6*scale)
				assert.InDelta(t, 0, floats.Dot(primal, dual), 1e-5*scale*scale)
			}
		})
	}
}

func TestPSDMembership(t *testing.T) {
	const k = 5
	spec := Spec{{Kind: PSD, Size: k}}
	rng := rand.New(rand.NewSource(5))
	v := randVec(rng, spec.Dim())
	Project(spec, v, false)

	sym := mat.NewSymDense(k, nil)
	idx := 0
	for j := 0; j < k; j++ {
		sym.SetSym(j, j, v[idx])
		idx++
		for i := j + 1; i < k; i++ {
			sym.SetSym(i, j, v[idx]/math.Sqrt2)
			idx++
		}
	}
	var eig mat.EigenSym
	require.True(t, eig.Factorize(sym, false))
	for _, l := range eig.Values(nil) {
		assert.GreaterOrEqual(t, l, -1e-10)
	}
}

func TestExpMembership(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	for trial := 0; trial < 100; trial++ {
		v := randVec(rng, 3)
		projectExp(v)
		x, y, z := v[0], v[1], v[2]
		if y > 1e-10 {
			assert.LessOrEqual(t, y*math.Exp(x/y), z+1e-5*(1+math.Abs(z)), "point %v", v)
		} else {
			assert.LessOrEqual(t, x, 1e-6)
			assert.GreaterOrEqual(t, z, -1e-6)
		}
	}
}

func TestProjectSmallMagnitude(t *testing.T) {
	const c = 4e-9

	// outside the power cone by a margin below the absolute tolerances
	w := []float64{1, 1, 3}
	v := []float64{c * w[0], c * w[1], c * w[2]}
	projectPower(w, 0.5)
	projectPower(v, 0.5)
	for i := range w {
		assert.InDelta(t, c*w[i], v[i], 1e-6*c)
	}

	w = []float64{1, 1, 1} // 1·exp(1) > 1
	v = []float64{c * w[0], c * w[1], c * w[2]}
	projectExp(w)
	projectExp(v)
	assert.NotEqual(t, []float64{c, c, c}, v)
	for i := range w {
		assert.InDelta(t, c*w[i], v[i], 1e-4*c)
	}
}
