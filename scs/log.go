// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scs

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/curioloop/conic/cone"
)

// logSetup prints the problem header once the solver is ready.
func (s *Solver) logSetup() {
	set := &s.set
	nnzA, nnzP := s.a.NNZ(), s.p.NNZ()
	s.log.Info("solver ready",
		"n", s.n, "m", s.m, "nnz_a", nnzA, "nnz_p", nnzP,
		"cones", describeCones(s.spec),
		"backend", s.backend.Name(),
		slog.Group("settings",
			"eps_abs", set.EpsAbs, "eps_rel", set.EpsRel, "eps_infeas", set.EpsInfeas,
			"alpha", set.Alpha, "scale", set.Scale, "adaptive_scale", set.AdaptiveScale,
			"max_iters", set.MaxIters, "normalize", set.Normalize, "rho_x", set.RhoX,
			"acceleration_lookback", set.AccelerationLookback,
			"acceleration_interval", set.AccelerationInterval,
			"time_limit", set.TimeLimit, "warm_start", set.WarmStart),
		"setup_time", s.setupTime)
}

// describeCones renders a cone product like "zero=1 nonneg=2 soc:3".
func describeCones(spec cone.Spec) string {
	var b strings.Builder
	counts := make(map[cone.Kind]int)
	var sizes []string
	for _, blk := range spec {
		switch blk.Kind {
		case cone.SecondOrder, cone.PSD, cone.ComplexPSD:
			sizes = append(sizes, fmt.Sprintf("%v:%d", blk.Kind, blk.Size))
		case cone.Box:
			counts[blk.Kind] += len(blk.Upper)
		case cone.Power, cone.DualPower:
			counts[blk.Kind]++
		default:
			counts[blk.Kind] += blk.Size
		}
	}
	for k := cone.Zero; k <= cone.DualPower; k++ {
		if c := counts[k]; c > 0 {
			fmt.Fprintf(&b, "%v=%d ", k, c)
		}
	}
	b.WriteString(strings.Join(sizes, " "))
	return strings.TrimSpace(b.String())
}

// logIter prints one progress line.
func (s *Solver) logIter(r *residuals, start time.Time) {
	s.log.Info("iteration",
		"iter", r.iter,
		"res_pri", r.resPri,
		"res_dual", r.resDual,
		"gap", r.gap,
		"pobj", r.pobj,
		"dobj", r.dobj,
		"tau", r.tau,
		"kap", r.kap,
		"scale", s.scale,
		"elapsed", time.Since(start))
}

// logSummary prints the outcome of a solve.
func (s *Solver) logSummary(sol *Solution, warm bool) {
	level := slog.LevelInfo
	if !sol.Status.Certified() {
		level = slog.LevelWarn
	}
	info := &sol.Info
	s.log.Log(context.Background(), level, "solve finished",
		"status", info.Status.String(),
		"iter", info.Iter,
		"warm_start", warm,
		"pobj", info.PObj,
		"dobj", info.DObj,
		"res_pri", info.ResPri,
		"res_dual", info.ResDual,
		"gap", info.Gap,
		"scale", info.Scale,
		"scale_updates", info.ScaleUpdates,
		"accel_accepted", info.AcceptedAccelSteps,
		"accel_rejected", info.RejectedAccelSteps,
		"lin_sys_time", info.LinSysTime,
		"cone_time", info.ConeTime,
		"accel_time", info.AccelTime,
		"solve_time", info.SolveTime)
}

var csvHeader = []string{
	"iter", "res_pri", "res_dual", "gap", "pobj", "dobj", "tau", "kap",
	"res_infeas", "res_unbdd_a", "res_unbdd_p", "scale",
	"accel_accepted", "accel_rejected", "time_ms",
}

// csvLog appends one row per iteration. A nil csvLog discards rows.
type csvLog struct {
	file *os.File
	w    *csv.Writer
	row  []string
}

// openCSV opens LogCSVFilename, if any. Failures are logged and disable
// the trace without affecting the solve.
func (s *Solver) openCSV() *csvLog {
	name := s.set.LogCSVFilename
	if name == "" {
		return nil
	}
	f, err := os.Create(name)
	if err != nil {
		s.log.Warn("open iteration log", "file", name, "error", err)
		return nil
	}
	c := &csvLog{file: f, w: csv.NewWriter(f), row: make([]string, len(csvHeader))}
	if err := c.w.Write(csvHeader); err != nil {
		s.log.Warn("write iteration log", "file", name, "error", err)
	}
	return c
}

func (c *csvLog) write(s *Solver, r *residuals, start time.Time) {
	if c == nil {
		return
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }
	c.row = append(c.row[:0],
		strconv.Itoa(r.iter), f(r.resPri), f(r.resDual), f(r.gap), f(r.pobj), f(r.dobj),
		f(r.tau), f(r.kap), f(r.resInfeas), f(r.resUnbddA), f(r.resUnbddP), f(s.scale),
		strconv.Itoa(s.acc.Accepted()), strconv.Itoa(s.acc.Rejected()),
		f(float64(time.Since(start).Microseconds())/1e3),
	)
	// csv.Writer errors are sticky and reported by close
	c.w.Write(c.row)
}

func (c *csvLog) close(log *slog.Logger) {
	if c == nil {
		return
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		log.Warn("flush iteration log", "file", c.file.Name(), "error", err)
	}
	if err := c.file.Close(); err != nil {
		log.Warn("close iteration log", "file", c.file.Name(), "error", err)
	}
}
