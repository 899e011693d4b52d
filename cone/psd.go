// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cone

import (
	"gonum.org/v1/gonum/mat"
)

// eigWork caches the dense buffers for one matrix order.
type eigWork struct {
	sym  *mat.SymDense
	vecs *mat.Dense
	vals []float64
	eig  mat.EigenSym
}

func (p *Projector) eigFor(n int) *eigWork {
	w, ok := p.eig[n]
	if !ok {
		w = &eigWork{
			sym:  mat.NewSymDense(n, nil),
			vecs: mat.NewDense(n, n, nil),
			vals: make([]float64, n),
		}
		p.eig[n] = w
	}
	return w
}

// clampNegative factorizes w.sym and rebuilds it from the non-negative part of
// its spectrum. It reports false when the eigendecomposition fails.
func (w *eigWork) clampNegative() bool {
	if !w.eig.Factorize(w.sym, true) {
		return false
	}
	w.eig.Values(w.vals)
	w.eig.VectorsTo(w.vecs)
	n := len(w.vals)
	for j := 0; j < n; j++ {
		for i := j; i < n; i++ {
			w.sym.SetSym(i, j, 0)
		}
	}
	for e, lambda := range w.vals {
		if lambda <= 0 {
			continue
		}
		for j := 0; j < n; j++ {
			vj := lambda * w.vecs.At(j, e)
			if vj == 0 {
				continue
			}
			for i := j; i < n; i++ {
				w.sym.SetSym(i, j, w.sym.At(i, j)+vj*w.vecs.At(i, e))
			}
		}
	}
	return true
}

func projectPSDBlock(p *Projector, b *Block, v []float64, _ bool) {
	k := b.Size
	if k == 1 {
		v[0] = max(v[0], 0)
		return
	}
	w := p.eigFor(k)
	idx := 0
	for j := 0; j < k; j++ {
		w.sym.SetSym(j, j, v[idx])
		idx++
		for i := j + 1; i < k; i++ {
			w.sym.SetSym(i, j, v[idx]*invSqrt2)
			idx++
		}
	}
	if !w.clampNegative() {
		return
	}
	idx = 0
	for j := 0; j < k; j++ {
		v[idx] = w.sym.At(j, j)
		idx++
		for i := j + 1; i < k; i++ {
			v[idx] = w.sym.At(i, j) * sqrt2
			idx++
		}
	}
}

// projectComplexPSDBlock projects a Hermitian matrix H = X + iY through its
// real symmetric embedding
//
//	⎡X  −Y⎤
//	⎣Y   X⎦
//
// whose projection is the embedding of the projection of H.
func projectComplexPSDBlock(p *Projector, b *Block, v []float64, _ bool) {
	k := b.Size
	if k == 1 {
		v[0] = max(v[0], 0)
		return
	}
	w := p.eigFor(2 * k)
	idx := 0
	for j := 0; j < k; j++ {
		d := v[idx]
		idx++
		w.sym.SetSym(j, j, d)
		w.sym.SetSym(k+j, k+j, d)
		w.sym.SetSym(k+j, j, 0)
		for i := j + 1; i < k; i++ {
			re, im := v[idx]*invSqrt2, v[idx+1]*invSqrt2
			idx += 2
			w.sym.SetSym(i, j, re)
			w.sym.SetSym(k+i, k+j, re)
			w.sym.SetSym(k+i, j, im)
			w.sym.SetSym(k+j, i, -im)
		}
	}
	if !w.clampNegative() {
		return
	}
	idx = 0
	for j := 0; j < k; j++ {
		v[idx] = w.sym.At(j, j)
		idx++
		for i := j + 1; i < k; i++ {
			v[idx] = w.sym.At(i, j) * sqrt2
			v[idx+1] = w.sym.At(k+i, j) * sqrt2
			idx += 2
		}
	}
}
