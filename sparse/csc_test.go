// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		a    *CSC
		ok   bool
	}{
		{"valid", &CSC{M: 2, N: 2, P: []int{0, 1, 3}, I: []int{0, 0, 1}, X: []float64{1, 2, 3}}, true},
		{"empty", Zeros(3, 2), true},
		{"pointer length", &CSC{M: 2, N: 2, P: []int{0, 1}, I: []int{0}, X: []float64{1}}, false},
		{"first pointer", &CSC{M: 2, N: 1, P: []int{1, 1}, I: []int{0}, X: []float64{1}}, false},
		{"unsorted rows", &CSC{M: 2, N: 1, P: []int{0, 2}, I: []int{1, 0}, X: []float64{1, 2}}, false},
		{"duplicate rows", &CSC{M: 2, N: 1, P: []int{0, 2}, I: []int{1, 1}, X: []float64{1, 2}}, false},
		{"row out of range", &CSC{M: 2, N: 1, P: []int{0, 1}, I: []int{2}, X: []float64{1}}, false},
		{"short values", &CSC{M: 2, N: 1, P: []int{0, 2}, I: []int{0, 1}, X: []float64{1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidMatrix), "got %v", err)
			}
		})
	}
}

func TestValidateUpper(t *testing.T) {
	upper := UpperFromDense([][]float64{{4, 1}, {1, 3}})
	require.NoError(t, upper.ValidateUpper())

	full := FromDense([][]float64{{4, 1}, {1, 3}})
	assert.ErrorIs(t, full.ValidateUpper(), ErrInvalidMatrix)

	rect := FromDense([][]float64{{1, 2, 3}})
	assert.ErrorIs(t, rect.ValidateUpper(), ErrInvalidMatrix)
}

func TestProducts(t *testing.T) {
	rows := [][]float64{
		{1, 0, 2},
		{0, -3, 0},
		{4, 5, 0},
		{0, 0, 6},
	}
	a := FromDense(rows)
	require.NoError(t, a.Validate())
	assert.Equal(t, 6, a.NNZ())

	x := []float64{1, 2, 3}
	y := []float64{1, 1, 1, 1}
	a.MulVecAdd(x, y)
	assert.Equal(t, []float64{8, -5, 15, 19}, y)

	z := []float64{1, -1, 2, 1}
	w := make([]float64, 3)
	a.MulTVecAdd(z, w)
	assert.Equal(t, []float64{9, 13, 8}, w)

	at := a.Transpose()
	require.NoError(t, at.Validate())
	assert.Equal(t, [][]float64{{1, 0, 4, 0}, {0, -3, 5, 0}, {2, 0, 0, 6}}, at.Dense())
}

func TestSymMulVecAdd(t *testing.T) {
	full := [][]float64{{2, -1, 0}, {-1, 3, 4}, {0, 4, 5}}
	p := UpperFromDense(full)
	x := []float64{1, 2, -1}
	y := make([]float64, 3)
	p.SymMulVecAdd(x, y)
	for i := range full {
		want := 0.0
		for j := range full[i] {
			want += full[i][j] * x[j]
		}
		assert.InDelta(t, want, y[i], 1e-15)
	}
	assert.Equal(t, []float64{2, 3, 5}, p.Diag())
}

func TestScaleRowsCols(t *testing.T) {
	a := FromDense([][]float64{{1, 2}, {3, 4}})
	a.ScaleRowsCols([]float64{2, 3}, []float64{5, 7})
	assert.Equal(t, [][]float64{{10, 28}, {45, 84}}, a.Dense())

	b := a.Clone()
	b.ScaleRowsCols(nil, []float64{0.2, 1.0 / 7})
	assert.InDeltaSlice(t, []float64{2, 9, 4, 12}, b.X, 1e-12)
	assert.Equal(t, [][]float64{{10, 28}, {45, 84}}, a.Dense())
}

func TestFromTriplets(t *testing.T) {
	a, err := FromTriplets(3, 2,
		[]int{2, 0, 2, 1, 0},
		[]int{1, 0, 1, 1, 0},
		[]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.NoError(t, a.Validate())
	assert.Equal(t, [][]float64{{7, 0}, {0, 4}, {0, 4}}, a.Dense())

	_, err = FromTriplets(1, 1, []int{1}, []int{0}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidMatrix)
}
