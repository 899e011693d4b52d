// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsys

import (
	"container/heap"

	"github.com/curioloop/conic/sparse"
)

// formKKT assembles the upper triangle of
//
//	⎡R𝐱 + P   Aᵀ ⎤
//	⎣  A     −R𝐲 ⎦
//
// and returns the position of every diagonal entry in the value array.
func formKKT(p, a *sparse.CSC, diagR []float64) (*sparse.CSC, []int) {
	n, m := a.N, a.M
	dim := n + m
	at := a.Transpose()
	capacity := p.NNZ() + a.NNZ() + dim
	k := &sparse.CSC{
		M: dim, N: dim,
		P: make([]int, dim+1),
		I: make([]int, 0, capacity),
		X: make([]float64, 0, capacity),
	}
	diag := make([]int, dim)
	for j := 0; j < n; j++ {
		found := false
		if p != nil {
			for q := p.P[j]; q < p.P[j+1]; q++ {
				i, v := p.I[q], p.X[q]
				if i == j {
					diag[j] = len(k.I)
					v += diagR[j]
					found = true
				}
				k.I = append(k.I, i)
				k.X = append(k.X, v)
			}
		}
		if !found {
			diag[j] = len(k.I)
			k.I = append(k.I, j)
			k.X = append(k.X, diagR[j])
		}
		k.P[j+1] = len(k.I)
	}
	for i := 0; i < m; i++ {
		col := n + i
		for q := at.P[i]; q < at.P[i+1]; q++ {
			k.I = append(k.I, at.I[q])
			k.X = append(k.X, at.X[q])
		}
		diag[col] = len(k.I)
		k.I = append(k.I, col)
		k.X = append(k.X, -diagR[col])
		k.P[col+1] = len(k.I)
	}
	return k, diag
}

// symPerm returns the upper triangle of PKPᵀ for the inverse permutation
// pinv, together with the destination of every source entry. Row indices
// inside a column of the result are not sorted.
func symPerm(k *sparse.CSC, pinv []int) (*sparse.CSC, []int) {
	n := k.N
	nnz := k.NNZ()
	c := &sparse.CSC{M: n, N: n, P: make([]int, n+1), I: make([]int, nnz), X: make([]float64, nnz)}
	for j := 0; j < n; j++ {
		j2 := pinv[j]
		for q := k.P[j]; q < k.P[j+1]; q++ {
			c.P[max(pinv[k.I[q]], j2)+1]++
		}
	}
	for j := 0; j < n; j++ {
		c.P[j+1] += c.P[j]
	}
	next := append([]int(nil), c.P[:n]...)
	dst := make([]int, nnz)
	for j := 0; j < n; j++ {
		j2 := pinv[j]
		for q := k.P[j]; q < k.P[j+1]; q++ {
			i2 := pinv[k.I[q]]
			col := max(i2, j2)
			pos := next[col]
			next[col]++
			c.I[pos] = min(i2, j2)
			c.X[pos] = k.X[q]
			dst[q] = pos
		}
	}
	return c, dst
}

type degItem struct{ deg, node int }

type degHeap []degItem

func (h degHeap) Len() int { return len(h) }
func (h degHeap) Less(i, j int) bool {
	if h[i].deg != h[j].deg {
		return h[i].deg < h[j].deg
	}
	return h[i].node < h[j].node
}
func (h degHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *degHeap) Push(x any)   { *h = append(*h, x.(degItem)) }
func (h *degHeap) Pop() any {
	old := *h
	it := old[len(old)-1]
	*h = old[:len(old)-1]
	return it
}

// minDegree computes a minimum degree elimination order of the symmetric
// pattern whose upper triangle is k. perm[i] is the node eliminated i-th.
func minDegree(k *sparse.CSC) []int {
	n := k.N
	adj := make([]map[int]struct{}, n)
	for i := range adj {
		adj[i] = make(map[int]struct{})
	}
	for j := 0; j < n; j++ {
		for q := k.P[j]; q < k.P[j+1]; q++ {
			if i := k.I[q]; i != j {
				adj[i][j] = struct{}{}
				adj[j][i] = struct{}{}
			}
		}
	}
	h := make(degHeap, n)
	for i := range h {
		h[i] = degItem{len(adj[i]), i}
	}
	heap.Init(&h)

	done := make([]bool, n)
	perm := make([]int, 0, n)
	nbrs := make([]int, 0)
	for len(perm) < n {
		it := heap.Pop(&h).(degItem)
		v := it.node
		if done[v] || it.deg != len(adj[v]) {
			continue
		}
		done[v] = true
		perm = append(perm, v)
		nbrs = nbrs[:0]
		for u := range adj[v] {
			nbrs = append(nbrs, u)
			delete(adj[u], v)
		}
		for x, a := range nbrs {
			for _, b := range nbrs[x+1:] {
				adj[a][b] = struct{}{}
				adj[b][a] = struct{}{}
			}
		}
		for _, u := range nbrs {
			heap.Push(&h, degItem{len(adj[u]), u})
		}
		adj[v] = nil
	}
	return perm
}
