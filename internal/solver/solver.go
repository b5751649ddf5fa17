// Package solver shells out to an external MILP solver binary, feeding it
// an LP-format model and parsing its solution file back into a flat
// name -> value map. It is the one layer that touches a subprocess;
// internal/planning stays solver-agnostic (spec §4/§6: "solver internals"
// is an explicit non-goal of the core, but invoking one externally is the
// ambient layer's job).
package solver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/pinggolf/breadplan/internal/planning/milp"
	"github.com/pinggolf/breadplan/internal/planning/solution"
)

// Status is the solver's termination status.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusTimeLimit  Status = "time_limit"
	StatusInfeasible Status = "infeasible"
	StatusError      Status = "error"
)

// Result is what a solve produces: the termination status plus, when
// available, the variable assignment and objective value.
type Result struct {
	Status        Status
	Values        solution.Values
	ObjectiveValue float64
	WallTime      time.Duration
}

// Config configures the external solver invocation.
type Config struct {
	// BinaryPath is the solver executable, e.g. "cbc".
	BinaryPath string
	// TimeLimit bounds solve wall time; when exceeded the subprocess is
	// killed and the result reports StatusTimeLimit.
	TimeLimit time.Duration
	// MIPGap is the relative optimality gap the solver may stop at.
	MIPGap float64
	// WorkDir is where the LP and solution files are written; the system
	// temp directory is used if empty.
	WorkDir string
	// CompressLPDump gzip-compresses the written LP file for archival,
	// using klauspost/compress (faster than compress/gzip at comparable
	// ratios, and already part of the dependency graph via nats.go).
	CompressLPDump bool

	Logger zerolog.Logger
}

// CBCSolver drives the COIN-OR CBC solver via its command line interface.
type CBCSolver struct {
	cfg Config
}

// NewCBC returns a CBCSolver with the given configuration.
func NewCBC(cfg Config) *CBCSolver {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "cbc"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &CBCSolver{cfg: cfg}
}

// Solve writes m as an LP file, invokes CBC with the configured time limit
// and MIP gap, and parses its solution file. Reaching the configured
// TimeLimit (or a deadline on ctx) kills the subprocess and returns
// StatusTimeLimit rather than an error, since a time-boxed solve that
// produced no incumbent is a valid (if disappointing) planning outcome,
// not a fatal condition (spec §7 KindTimeLimit). Cancelling ctx also kills
// the subprocess, but returns StatusError together with an error.
func (s *CBCSolver) Solve(ctx context.Context, m *milp.Model, jobID string) (Result, error) {
	start := time.Now()

	lpPath := fmt.Sprintf("%s/%s.lp", s.cfg.WorkDir, jobID)
	solPath := fmt.Sprintf("%s/%s.sol", s.cfg.WorkDir, jobID)

	if err := s.writeLP(m, lpPath); err != nil {
		return Result{Status: StatusError}, fmt.Errorf("solver: writing LP file: %w", err)
	}
	defer os.Remove(lpPath)
	defer os.Remove(solPath)

	timeout := s.cfg.TimeLimit
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	seconds := int(timeout.Seconds())
	args := []string{lpPath, "sec", strconv.Itoa(seconds), "ratioGap", strconv.FormatFloat(s.cfg.MIPGap, 'f', -1, 64), "solve", "solution", solPath}
	cmd := exec.CommandContext(runCtx, s.cfg.BinaryPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.cfg.Logger.Debug().Str("job_id", jobID).Str("lp_path", lpPath).Strs("args", args).Msg("invoking solver")

	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		s.cfg.Logger.Warn().Str("job_id", jobID).Dur("elapsed", elapsed).Msg("solver hit configured time limit")
		return Result{Status: StatusTimeLimit, WallTime: elapsed}, nil
	}
	if ctx.Err() != nil {
		return Result{Status: StatusError, WallTime: elapsed}, fmt.Errorf("solver: cancelled: %w", ctx.Err())
	}
	if runErr != nil {
		return Result{Status: StatusError, WallTime: elapsed}, fmt.Errorf("solver: cbc exited with error: %w (stderr: %s)", runErr, stderr.String())
	}

	values, objective, status, err := parseSolutionFile(solPath)
	if err != nil {
		return Result{Status: StatusError, WallTime: elapsed}, fmt.Errorf("solver: parsing solution file: %w", err)
	}

	if s.cfg.CompressLPDump {
		if err := gzipFile(lpPath); err != nil {
			s.cfg.Logger.Warn().Err(err).Str("job_id", jobID).Msg("failed to gzip LP dump, continuing without archival copy")
		}
	}

	return Result{Status: status, Values: values, ObjectiveValue: objective, WallTime: elapsed}, nil
}

func (s *CBCSolver) writeLP(m *milp.Model, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.WriteLP(f)
}

// parseSolutionFile reads CBC's "-solution" output format:
//
//	Optimal - objective value 12345.67
//	   0  production[6120,sourdough,2024-01-05]             120.00000000     0.00000000
//	   1  ...
func parseSolutionFile(path string) (solution.Values, float64, Status, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, StatusError, err
	}
	defer f.Close()

	values := make(solution.Values)
	objective := 0.0
	status := StatusOptimal

	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			lower := strings.ToLower(line)
			switch {
			case strings.Contains(lower, "infeasible"):
				status = StatusInfeasible
			case strings.Contains(lower, "stopped on time"):
				status = StatusTimeLimit
			}
			if idx := strings.Index(lower, "objective value"); idx >= 0 {
				fields := strings.Fields(line[idx:])
				if len(fields) >= 3 {
					if v, err := strconv.ParseFloat(fields[2], 64); err == nil {
						objective = v
					}
				}
			}
			continue
		}
		fields := strings.Fields(line)
		name, v, ok := solution.ParseLPValue(fields)
		if !ok {
			continue
		}
		values[name] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, StatusError, err
	}

	return values, objective, status, nil
}

func gzipFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		return err
	}
	return gw.Close()
}
