// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "conic",
	Short: "Conic - operator splitting solver for convex cone programs",
	Long: `Conic solves convex quadratic cone programs

  minimize ½xᵀPx + cᵀx  subject to  Ax + s = b, s ∈ K

where K is a product of zero, non-negative, box, second-order, semidefinite,
exponential and power cones. Infeasible and unbounded problems are reported
with a certificate.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log solver progress to stderr")
}
