// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cone describes products of elementary convex cones and
// computes Euclidean projections onto them and onto their duals.
//
// A Spec is an ordered list of blocks. Each block occupies a contiguous
// slice of the slack vector 𝐬 ∈ ℝᵐ:
//
//	Zero        {0}ᵏ                       (dual: ℝᵏ)
//	Nonneg      ℝᵏ₊                        (self-dual)
//	Box         {(t,𝐬) : t𝐥 ≤ 𝐬 ≤ t𝐮, t ≥ 0}
//	SecondOrder {(t,𝐱) : ‖𝐱‖₂ ≤ t}           (self-dual)
//	PSD         {X ∈ 𝕊ᵏ : X ⪰ 0}              (self-dual)
//	ComplexPSD  {H ∈ ℍᵏ : H ⪰ 0}              (self-dual)
//	Exp         cl{(x,y,z) : y·exp(x/y) ≤ z, y > 0}
//	Power       {(x,y,z) : xᵃ·y⁽¹⁻ᵃ⁾ ≥ |z|, x,y ≥ 0}
//
// Symmetric matrices are stored as the lower triangle in column-major order
// with off-diagonal entries scaled by √2, so the Euclidean inner product of
// two vectors equals the trace inner product of the matrices.
package cone

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCone is returned when a cone description is malformed.
var ErrInvalidCone = errors.New("cone: invalid specification")

// Kind identifies an elementary cone.
type Kind int

const (
	// Zero cone {0}, whose dual is the free cone.
	Zero Kind = iota
	// Nonneg is the non-negative orthant.
	Nonneg
	// Box is the conic hull of a box bounded by Lower and Upper.
	Box
	// SecondOrder is the Lorentz (ice-cream) cone.
	SecondOrder
	// PSD is the cone of positive semidefinite real symmetric matrices.
	PSD
	// ComplexPSD is the cone of positive semidefinite Hermitian matrices.
	ComplexPSD
	// Exp is the primal exponential cone.
	Exp
	// DualExp is the dual exponential cone.
	DualExp
	// Power is the primal 3-dimensional power cone with parameter Alpha.
	Power
	// DualPower is the dual of the power cone with parameter Alpha.
	DualPower
	numKinds
)

var kindNames = [numKinds]string{
	Zero:        "zero",
	Nonneg:      "nonneg",
	Box:         "box",
	SecondOrder: "soc",
	PSD:         "psd",
	ComplexPSD:  "complex_psd",
	Exp:         "exp",
	DualExp:     "dual_exp",
	Power:       "power",
	DualPower:   "dual_power",
}

func (k Kind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Block is one entry of a cone product.
type Block struct {
	Kind Kind
	// Size meaning depends on Kind:
	//  - Zero, Nonneg: number of entries
	//  - SecondOrder: cone dimension
	//  - PSD, ComplexPSD: matrix side length
	//  - Exp, DualExp: number of 3-dimensional cones
	//  - Box, Power, DualPower: unused
	Size int
	// Alpha ∈ (0,1) for Power and DualPower.
	Alpha float64
	// Lower and Upper bound the Box cone, ±Inf allowed.
	Lower, Upper []float64
}

// Dim returns the number of slack entries occupied by b.
func (b Block) Dim() int {
	switch b.Kind {
	case Zero, Nonneg, SecondOrder:
		return b.Size
	case Box:
		if len(b.Upper) == 0 {
			return 0
		}
		return len(b.Upper) + 1
	case PSD:
		return b.Size * (b.Size + 1) / 2
	case ComplexPSD:
		return b.Size * b.Size
	case Exp, DualExp:
		return 3 * b.Size
	case Power, DualPower:
		return 3
	}
	return 0
}

// Spec is an ordered product of cones.
type Spec []Block

// Dim returns the total dimension m of the product.
func (s Spec) Dim() (m int) {
	for _, b := range s {
		m += b.Dim()
	}
	return
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCone, fmt.Sprintf(format, args...))
}

// Validate checks sizes and parameters of every block.
func (s Spec) Validate() error {
	for n, b := range s {
		switch b.Kind {
		case Zero, Nonneg, SecondOrder, PSD, ComplexPSD, Exp, DualExp:
			if b.Size < 0 {
				return invalid("block %d (%v) has negative size %d", n, b.Kind, b.Size)
			}
		case Box:
			if len(b.Lower) != len(b.Upper) {
				return invalid("box block %d: upper bound has %d entries, lower bound %d", n, len(b.Upper), len(b.Lower))
			}
			for i := range b.Lower {
				l, u := b.Lower[i], b.Upper[i]
				if math.IsNaN(l) || math.IsNaN(u) || math.IsInf(l, 1) || math.IsInf(u, -1) || l > u {
					return invalid("box block %d: bound %d is [%v, %v]", n, i, l, u)
				}
			}
		case Power, DualPower:
			if !(b.Alpha > 0 && b.Alpha < 1) {
				return invalid("block %d (%v) needs alpha in (0,1), got %v", n, b.Kind, b.Alpha)
			}
		default:
			return invalid("block %d has unknown kind %v", n, b.Kind)
		}
	}
	return nil
}

// Boundaries partitions the rows into groups that equilibration must scale
// uniformly. Every row of a Zero or Nonneg block is its own group; every
// other block forms a single group.
func (s Spec) Boundaries() []int {
	var groups []int
	for _, b := range s {
		switch b.Kind {
		case Zero, Nonneg:
			for i := 0; i < b.Size; i++ {
				groups = append(groups, 1)
			}
		case Exp, DualExp:
			for i := 0; i < b.Size; i++ {
				groups = append(groups, 3)
			}
		default:
			if d := b.Dim(); d > 0 {
				groups = append(groups, d)
			}
		}
	}
	return groups
}

// Dims is the keyed description of a cone product. Blocks are laid out in
// the fixed order z, l, box, q, s, cs, ep, ed, p.
type Dims struct {
	Z  int       `yaml:"z,omitempty"`  // zero cone length
	F  int       `yaml:"f,omitempty"`  // deprecated alias of Z, added to it
	L  int       `yaml:"l,omitempty"`  // non-negative cone length
	BL []float64 `yaml:"bl,omitempty"` // box lower bounds
	BU []float64 `yaml:"bu,omitempty"` // box upper bounds
	Q  []int     `yaml:"q,omitempty"`  // second-order cone dimensions
	S  []int     `yaml:"s,omitempty"`  // PSD side lengths
	CS []int     `yaml:"cs,omitempty"` // complex PSD side lengths
	EP int       `yaml:"ep,omitempty"` // number of primal exponential cones
	ED int       `yaml:"ed,omitempty"` // number of dual exponential cones
	// P holds power cone parameters in (-1,1); a negative value selects
	// the dual power cone with parameter -p.
	P []float64 `yaml:"p,omitempty"`
}

// Spec converts d into an ordered cone product.
func (d Dims) Spec() (Spec, error) {
	switch {
	case d.Z < 0 || d.F < 0:
		return nil, invalid("zero cone length must be non-negative")
	case d.L < 0:
		return nil, invalid("non-negative cone length must be non-negative")
	case d.EP < 0 || d.ED < 0:
		return nil, invalid("exponential cone count must be non-negative")
	case len(d.BL) != len(d.BU):
		return nil, invalid("box upper bound has %d entries, lower bound %d", len(d.BU), len(d.BL))
	}
	var s Spec
	if z := d.Z + d.F; z > 0 {
		s = append(s, Block{Kind: Zero, Size: z})
	}
	if d.L > 0 {
		s = append(s, Block{Kind: Nonneg, Size: d.L})
	}
	if len(d.BU) > 0 {
		s = append(s, Block{Kind: Box, Lower: d.BL, Upper: d.BU})
	}
	for _, q := range d.Q {
		s = append(s, Block{Kind: SecondOrder, Size: q})
	}
	for _, k := range d.S {
		s = append(s, Block{Kind: PSD, Size: k})
	}
	for _, k := range d.CS {
		s = append(s, Block{Kind: ComplexPSD, Size: k})
	}
	if d.EP > 0 {
		s = append(s, Block{Kind: Exp, Size: d.EP})
	}
	if d.ED > 0 {
		s = append(s, Block{Kind: DualExp, Size: d.ED})
	}
	for _, p := range d.P {
		switch {
		case p > 0 && p < 1:
			s = append(s, Block{Kind: Power, Alpha: p})
		case p < 0 && p > -1:
			s = append(s, Block{Kind: DualPower, Alpha: -p})
		default:
			return nil, invalid("power cone parameter %v outside (-1,1)", p)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dims converts s back into the keyed form. Blocks must appear in the
// canonical order and each exponential kind at most once.
func (s Spec) Dims() (d Dims, err error) {
	rank := func(k Kind) int {
		switch k {
		case Zero:
			return 0
		case Nonneg:
			return 1
		case Box:
			return 2
		case SecondOrder:
			return 3
		case PSD:
			return 4
		case ComplexPSD:
			return 5
		case Exp:
			return 6
		case DualExp:
			return 7
		}
		return 8
	}
	last := -1
	for _, b := range s {
		r := rank(b.Kind)
		if r < last {
			return Dims{}, invalid("block %v out of canonical order", b.Kind)
		}
		last = r
		switch b.Kind {
		case Zero:
			d.Z += b.Size
		case Nonneg:
			d.L += b.Size
		case Box:
			if len(d.BU) > 0 {
				return Dims{}, invalid("more than one box block")
			}
			d.BL, d.BU = b.Lower, b.Upper
		case SecondOrder:
			d.Q = append(d.Q, b.Size)
		case PSD:
			d.S = append(d.S, b.Size)
		case ComplexPSD:
			d.CS = append(d.CS, b.Size)
		case Exp:
			d.EP += b.Size
		case DualExp:
			d.ED += b.Size
		case Power:
			d.P = append(d.P, b.Alpha)
		case DualPower:
			d.P = append(d.P, -b.Alpha)
		}
	}
	return d, nil
}
