// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scs

import (
	"fmt"
	"io"
	"os"

	"github.com/curioloop/conic/cone"
	"github.com/curioloop/conic/sparse"
	"gopkg.in/yaml.v3"
)

// problemFile is the YAML layout of a problem.
type problemFile struct {
	M        int         `yaml:"m"`
	N        int         `yaml:"n"`
	A        *sparse.CSC `yaml:"A"`
	P        *sparse.CSC `yaml:"P,omitempty"`
	B        []float64   `yaml:"b"`
	C        []float64   `yaml:"c"`
	Cone     cone.Dims   `yaml:"cone"`
	Settings *yaml.Node  `yaml:"settings,omitempty"`
}

// ReadProblem decodes a YAML problem. Settings missing from the document
// keep their defaults; the backend, logger and metrics are left unset.
func ReadProblem(r io.Reader) (*Problem, error) {
	var f problemFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode problem: %v", ErrInvalidData, err)
	}
	switch {
	case f.A == nil:
		return nil, fmt.Errorf("%w: problem has no A", ErrInvalidData)
	case f.M != len(f.B) || f.N != len(f.C):
		return nil, fmt.Errorf("%w: m=%d n=%d but b has %d and c has %d entries",
			ErrInvalidData, f.M, f.N, len(f.B), len(f.C))
	}
	spec, err := f.Cone.Spec()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCone, err)
	}
	p := &Problem{
		Data: Data{A: f.A, P: f.P, B: f.B, C: f.C},
		Cone: spec,
	}
	if f.Settings != nil {
		set := DefaultSettings()
		if err := f.Settings.Decode(&set); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
		p.Settings = &set
	}
	return p, nil
}

// WriteProblem encodes p in the format read by ReadProblem. The cone
// product must be in the canonical order z, l, box, q, s, cs, ep, ed, p.
func WriteProblem(w io.Writer, p *Problem) error {
	dims, err := p.Cone.Dims()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCone, err)
	}
	d := p.Data
	f := problemFile{
		M: len(d.B), N: len(d.C),
		A: d.A, P: d.P, B: d.B, C: d.C,
		Cone: dims,
	}
	if p.Settings != nil {
		f.Settings = new(yaml.Node)
		if err := f.Settings.Encode(p.Settings); err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return fmt.Errorf("encode problem: %w", err)
	}
	return enc.Close()
}

// ReadProblemFile reads a YAML problem from path.
func ReadProblemFile(path string) (*Problem, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return ReadProblem(fh)
}

// WriteProblemFile writes p to path as YAML.
func WriteProblemFile(path string, p *Problem) (err error) {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteProblem(fh, p)
}
