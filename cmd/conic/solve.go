// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/curioloop/conic/linsys"
	"github.com/curioloop/conic/scs"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var solveFlags struct {
	backend   string
	settings  string
	epsAbs    float64
	epsRel    float64
	maxIters  int
	timeLimit time.Duration
	logCSV    string
	output    string
}

var solveCmd = &cobra.Command{
	Use:   "solve <problem.yaml>",
	Short: "Solve a cone program",
	Long: `Solve a cone program stored in YAML.

The problem file holds m, n, the sparse matrices A and P in compressed
column form, the vectors b and c, the cone dimensions and optional settings.
Settings are applied in order: defaults, the problem file, --settings,
then individual flags.

Examples:
  # Solve and print the solution
  conic solve lp.yaml

  # Tighter tolerances with a time budget
  conic solve socp.yaml --eps-abs 1e-7 --eps-rel 1e-7 --time-limit 30s

  # Record one CSV row per iteration
  conic solve qp.yaml --log-csv iters.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)

	solveCmd.Flags().StringVar(&solveFlags.backend, "backend", "direct", "linear system backend: direct, indirect, dense")
	solveCmd.Flags().StringVar(&solveFlags.settings, "settings", "", "YAML settings file")
	solveCmd.Flags().Float64Var(&solveFlags.epsAbs, "eps-abs", 0, "absolute tolerance")
	solveCmd.Flags().Float64Var(&solveFlags.epsRel, "eps-rel", 0, "relative tolerance")
	solveCmd.Flags().IntVar(&solveFlags.maxIters, "max-iters", 0, "iteration limit")
	solveCmd.Flags().DurationVar(&solveFlags.timeLimit, "time-limit", 0, "wall-clock limit, e.g. 10s")
	solveCmd.Flags().StringVar(&solveFlags.logCSV, "log-csv", "", "write per-iteration residuals to this CSV file")
	solveCmd.Flags().StringVarP(&solveFlags.output, "output", "o", "", "write the solution to this file instead of stdout")
}

func newBackend(name string) (linsys.Backend, error) {
	switch name {
	case "direct":
		return linsys.NewDirect(), nil
	case "indirect":
		return linsys.NewIndirect(), nil
	case "dense":
		return linsys.NewDense(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

// settingsFor layers the settings file and flags over those of the problem.
func settingsFor(cmd *cobra.Command, p *scs.Problem) (scs.Settings, error) {
	set := scs.DefaultSettings()
	if p.Settings != nil {
		set = *p.Settings
	}
	if solveFlags.settings != "" {
		loaded, err := scs.LoadSettings(solveFlags.settings)
		if err != nil {
			return set, err
		}
		set = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("eps-abs") {
		set.EpsAbs = solveFlags.epsAbs
	}
	if flags.Changed("eps-rel") {
		set.EpsRel = solveFlags.epsRel
	}
	if flags.Changed("max-iters") {
		set.MaxIters = solveFlags.maxIters
	}
	if flags.Changed("time-limit") {
		set.TimeLimit = solveFlags.timeLimit
	}
	if flags.Changed("log-csv") {
		set.LogCSVFilename = solveFlags.logCSV
	}
	set.Verbose = set.Verbose || verbose
	return set, set.Validate()
}

// solutionFile is the YAML layout of a solution.
type solutionFile struct {
	Status  string        `yaml:"status"`
	Iter    int           `yaml:"iter"`
	PObj    float64       `yaml:"pobj"`
	DObj    float64       `yaml:"dobj"`
	ResPri  float64       `yaml:"res_pri"`
	ResDual float64       `yaml:"res_dual"`
	Gap     float64       `yaml:"gap"`
	Solve   time.Duration `yaml:"solve_time"`
	Backend string        `yaml:"backend"`
	X       []float64     `yaml:"x,flow"`
	Y       []float64     `yaml:"y,flow"`
	S       []float64     `yaml:"s,flow"`
}

func writeSolution(w io.Writer, sol *scs.Solution) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(solutionFile{
		Status:  sol.Status.String(),
		Iter:    sol.Iter,
		PObj:    sol.PObj,
		DObj:    sol.DObj,
		ResPri:  sol.ResPri,
		ResDual: sol.ResDual,
		Gap:     sol.Gap,
		Solve:   sol.SolveTime,
		Backend: sol.LinSysMethod,
		X:       sol.X,
		Y:       sol.Y,
		S:       sol.S,
	}); err != nil {
		return err
	}
	return enc.Close()
}

func runSolve(cmd *cobra.Command, args []string) (err error) {
	p, err := scs.ReadProblemFile(args[0])
	if err != nil {
		return fmt.Errorf("read problem: %w", err)
	}
	set, err := settingsFor(cmd, p)
	if err != nil {
		return err
	}
	p.Settings = &set
	if p.Backend, err = newBackend(solveFlags.backend); err != nil {
		return err
	}
	if set.Verbose {
		p.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sol, err := scs.Solve(ctx, p, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if solveFlags.output != "" {
		fh, cerr := os.Create(solveFlags.output)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := fh.Close(); err == nil {
				err = cerr
			}
		}()
		out = fh
	}
	return writeSolution(out, sol)
}
