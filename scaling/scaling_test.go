// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scaling

import (
	"math"
	"math/rand"
	"testing"

	"github.com/curioloop/conic/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomMatrix(rng *rand.Rand, m, n int, density float64) *sparse.CSC {
	rows := make([][]float64, m)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			if rng.Float64() < density {
				rows[i][j] = rng.NormFloat64() * math.Pow(10, float64(rng.Intn(7)-3))
			}
		}
	}
	return sparse.FromDense(rows)
}

func TestEquilibrateDiagonal(t *testing.T) {
	a := sparse.FromDense([][]float64{{1e4, 0}, {0, 1e-3}})
	s := Equilibrate(a, nil, []int{1, 1})
	for _, v := range a.X {
		assert.InDelta(t, 1, math.Abs(v), 1e-9)
	}
	assert.InDelta(t, 1e-2, s.D[0], 1e-12)
	assert.InDelta(t, 1e-2, s.E[0], 1e-12)
}

func TestEquilibrateRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := randomMatrix(rng, 9, 5, 0.6)
	p := sparse.UpperFromDense([][]float64{
		{4, 1, 0, 0, 0},
		{1, 3, 0, 0, 0},
		{0, 0, 1e3, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 2e-2},
	})
	a0, p0 := a.Clone(), p.Clone()
	boundaries := []int{1, 1, 1, 3, 3}

	s := Equilibrate(a, p, boundaries)
	for _, d := range s.D {
		assert.Greater(t, d, 0.0)
	}
	for _, e := range s.E {
		assert.Greater(t, e, 0.0)
	}
	// rows in one group share the same factor
	assert.Equal(t, s.D[3], s.D[4])
	assert.Equal(t, s.D[4], s.D[5])
	assert.Equal(t, s.D[6], s.D[8])

	s.UnscaleMatrices(a, p)
	assert.InDeltaSlice(t, a0.X, a.X, 1e-9*maxAbs(a0.X))
	assert.InDeltaSlice(t, p0.X, p.X, 1e-9*maxAbs(p0.X))
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

func TestSolutionRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	a := randomMatrix(rng, 6, 4, 0.7)
	s := Equilibrate(a, nil, []int{1, 1, 1, 1, 1, 1})
	b := []float64{1, -2, 30, 4, 0.5, 6}
	c := []float64{-1, 2e2, 3, 0}
	s.NormalizeBC(b, c)
	require.Equal(t, s.PrimalScale, s.DualScale)

	x := []float64{1, 2, 3, 4}
	y := []float64{-1, 0, 1, 2, 3, 4}
	sl := []float64{5, 4, 3, 2, 1, 0}
	x0 := append([]float64(nil), x...)
	y0 := append([]float64(nil), y...)
	s0 := append([]float64(nil), sl...)

	s.NormalizeSolution(x, y, sl)
	s.UnnormalizeSolution(x, y, sl)
	assert.InDeltaSlice(t, x0, x, 1e-12)
	assert.InDeltaSlice(t, y0, y, 1e-12)
	assert.InDeltaSlice(t, s0, sl, 1e-12)
}

func TestNormalizeBC(t *testing.T) {
	s := Identity(2, 2)
	b := []float64{4, -8}
	c := []float64{2, 1}
	s.NormalizeBC(b, c)
	assert.Equal(t, 1.0/8, s.PrimalScale)
	assert.Equal(t, []float64{0.5, -1}, b)
	assert.Equal(t, []float64{0.25, 0.125}, c)

	s = Identity(1, 1)
	b, c = []float64{0}, []float64{1e-9}
	s.NormalizeBC(b, c)
	assert.Equal(t, 1.0, s.PrimalScale)
}

func TestEquilibrateZeroRowGroup(t *testing.T) {
	// a 3-dimensional cone block with two constant rows
	a := sparse.FromDense([][]float64{{0}, {0}, {-1}})
	s := Equilibrate(a, nil, []int{3})
	assert.Equal(t, s.D[0], s.D[2])
	assert.Equal(t, s.D[1], s.D[2])
	assert.InDelta(t, math.Pow(3, 0.25), s.D[0], 1e-12)
	assert.InDelta(t, 1, s.E[0], 1e-12)

	// with a scalar row alongside, the block factor still stays bounded
	a = sparse.FromDense([][]float64{{2, 1}, {0, 0}, {0, 0}, {0, -1}})
	s = Equilibrate(a, nil, []int{1, 3})
	for _, d := range s.D {
		assert.InDelta(t, 1, d, 0.9)
	}
	for _, e := range s.E {
		assert.InDelta(t, 1, e, 0.9)
	}
}

func TestReduceGroups(t *testing.T) {
	v := []float64{5, 0, 0, 2, 3, 0, 4}
	reduceGroups(v, []int{1, 3, 3}, true)
	assert.Equal(t, []float64{5, 2, 2, 2, 4, 4, 4}, v)

	v = []float64{5, 0, 0, 3, 3, 0, 4}
	reduceGroups(v, []int{1, 3, 3}, false)
	assert.InDeltaSlice(t, []float64{5, math.Sqrt(3), math.Sqrt(3), math.Sqrt(3), 5 / math.Sqrt(3), 5 / math.Sqrt(3), 5 / math.Sqrt(3)}, v, 1e-12)
}
