// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scs

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings controls a solver instance.
type Settings struct {
	// Absolute feasibility tolerance.
	EpsAbs float64 `yaml:"eps_abs"`
	// Relative feasibility tolerance.
	EpsRel float64 `yaml:"eps_rel"`
	// Infeasibility certificate tolerance.
	EpsInfeas float64 `yaml:"eps_infeas"`
	// The iteration stops when the number of iterations reaches MaxIters.
	MaxIters int `yaml:"max_iters"`
	// Equilibrate the data before solving.
	Normalize bool `yaml:"normalize"`
	// Update Scale heuristically while iterating.
	AdaptiveScale bool `yaml:"adaptive_scale"`
	// Initial dual scale factor, R_y = 1/Scale.
	Scale float64 `yaml:"scale"`
	// Primal scale factor, R_x = RhoX.
	RhoX float64 `yaml:"rho_x"`
	// Over-relaxation parameter α ∈ (0,2).
	Alpha float64 `yaml:"alpha"`
	// Anderson memory; negative selects type-I, zero disables acceleration.
	AccelerationLookback int `yaml:"acceleration_lookback"`
	// Iterations between two acceleration steps.
	AccelerationInterval int `yaml:"acceleration_interval"`
	// Wall-clock budget of one solve; zero means unlimited.
	TimeLimit time.Duration `yaml:"time_limit"`
	// Start from the previous solution of the same solver.
	WarmStart bool `yaml:"warm_start"`
	// Log progress through slog.Default when no logger is given.
	Verbose bool `yaml:"verbose"`
	// Dump the problem data to this YAML file at setup.
	WriteDataFilename string `yaml:"write_data_filename,omitempty"`
	// Append one CSV row per iteration to this file.
	LogCSVFilename string `yaml:"log_csv_filename,omitempty"`
}

// DefaultSettings returns the default settings.
func DefaultSettings() Settings {
	return Settings{
		EpsAbs:               1e-4,
		EpsRel:               1e-4,
		EpsInfeas:            1e-7,
		MaxIters:             100000,
		Normalize:            true,
		AdaptiveScale:        true,
		Scale:                0.1,
		RhoX:                 1e-6,
		Alpha:                1.5,
		AccelerationLookback: 10,
		AccelerationInterval: 10,
		WarmStart:            true,
	}
}

// Validate checks every setting against its admissible range.
func (s *Settings) Validate() (err error) {
	positive := func(v float64) bool { return v > 0 && !math.IsInf(v, 1) }
	switch {
	case !positive(s.EpsAbs):
		err = fmt.Errorf("eps_abs must be positive, got %v", s.EpsAbs)
	case !positive(s.EpsRel):
		err = fmt.Errorf("eps_rel must be positive, got %v", s.EpsRel)
	case !positive(s.EpsInfeas):
		err = fmt.Errorf("eps_infeas must be positive, got %v", s.EpsInfeas)
	case s.MaxIters < 1:
		err = fmt.Errorf("max_iters must be at least 1, got %d", s.MaxIters)
	case !positive(s.Scale):
		err = fmt.Errorf("scale must be positive, got %v", s.Scale)
	case !positive(s.RhoX):
		err = fmt.Errorf("rho_x must be positive, got %v", s.RhoX)
	case !(s.Alpha > 0 && s.Alpha < 2):
		err = fmt.Errorf("alpha must lie in (0,2), got %v", s.Alpha)
	case s.AccelerationInterval < 1:
		err = fmt.Errorf("acceleration_interval must be at least 1, got %d", s.AccelerationInterval)
	case s.TimeLimit < 0:
		err = fmt.Errorf("time_limit must not be negative, got %v", s.TimeLimit)
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return
}

// LoadSettings reads a YAML settings file on top of DefaultSettings.
// Keys missing from the file keep their default values.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("%w: parse %s: %v", ErrInvalidSettings, path, err)
	}
	return s, s.Validate()
}
