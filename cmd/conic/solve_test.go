// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const boxLP = `
m: 2
n: 1
A: {m: 2, n: 1, p: [0, 2], i: [0, 1], x: [1, -1]}
b: [1, 0]
c: [-1]
cone: {l: 2}
`

func TestSolveCommand(t *testing.T) {
	dir := t.TempDir()
	problem := filepath.Join(dir, "lp.yaml")
	require.NoError(t, os.WriteFile(problem, []byte(boxLP), 0o644))
	output := filepath.Join(dir, "solution.yaml")

	rootCmd.SetArgs([]string{"solve", problem, "--backend", "dense", "--eps-abs", "1e-6", "-o", output})
	require.NoError(t, rootCmd.Execute())

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	var sol solutionFile
	require.NoError(t, yaml.Unmarshal(raw, &sol))
	assert.Equal(t, "solved", sol.Status)
	assert.Equal(t, "dense-cholesky", sol.Backend)
	require.Len(t, sol.X, 1)
	assert.InDelta(t, 1, sol.X[0], 1e-3)
	assert.InDelta(t, -1, sol.PObj, 1e-3)
}

func TestNewBackend(t *testing.T) {
	for _, name := range []string{"direct", "indirect", "dense"} {
		b, err := newBackend(name)
		require.NoError(t, err)
		assert.NotNil(t, b)
	}
	_, err := newBackend("gpu")
	assert.ErrorContains(t, err, "unknown backend")
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetOut(nil)
	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(buf.String(), "conic "+Version))
}
