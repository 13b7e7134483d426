// Package runner launches a build under exec interception and turns the
// resulting traces into a compilation database.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"compdb-tracer/internal/config"
	"compdb-tracer/internal/monitor"
)

// ErrInterrupted reports that the build was stopped by an interrupt request.
// No database is generated in that case.
var ErrInterrupted = errors.New("build interrupted")

// BuildError wraps errors with run context.
type BuildError struct {
	RunID string
	Op    string // the operation that failed
	Err   error
}

func (e *BuildError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("run %s: %s: %s", e.RunID, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// BuildResult describes one traced build.
type BuildResult struct {
	RunID    string
	TraceDir string
	ExitCode int
	Duration time.Duration
}

// Runner drives the trace/classify/merge pipeline.
type Runner struct {
	cfg     *config.Config
	metrics *monitor.Metrics
	tracer  *monitor.Tracer
}

// New creates a runner.
func New(cfg *config.Config, metrics *monitor.Metrics) *Runner {
	return &Runner{
		cfg:     cfg,
		metrics: metrics,
		tracer:  monitor.NewTracer(),
	}
}

// RunBuild executes argv with the interception environment injected and
// waits for the whole child process tree to exit. The child's stdio is
// passed through. A non-zero child exit is not an error here: the traces
// gathered up to that point are still worth a database.
func (r *Runner) RunBuild(ctx context.Context, argv []string) (*BuildResult, error) {
	runID := uuid.New().String()
	logger := log.With().Str("run_id", runID).Logger()

	if len(argv) == 0 {
		return nil, &BuildError{RunID: runID, Op: "validate", Err: errors.New("empty build command")}
	}

	traceDir, err := os.MkdirTemp("", "compdb-"+runID+"-*")
	if err != nil {
		return nil, &BuildError{RunID: runID, Op: "create_trace_dir", Err: err}
	}

	ctx, span := r.tracer.StartSpan(ctx, "build", monitor.AttrRunID.String(runID))
	defer span.End()

	logger.Info().Strs("argv", argv).Str("trace_dir", traceDir).Msg("starting traced build")

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = r.interceptEnv(traceDir)

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	if ctx.Err() != nil {
		logger.Warn().Msg("build interrupted")
		return nil, &BuildError{RunID: runID, Op: "run_build", Err: ErrInterrupted}
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &BuildError{RunID: runID, Op: "run_build", Err: err}
		}
		exitCode = exitErr.ExitCode()
	}
	span.SetAttributes(monitor.AttrExitCode.Int(exitCode))

	logger.Info().Int("exit_code", exitCode).Dur("duration", duration).Msg("build finished")
	return &BuildResult{
		RunID:    runID,
		TraceDir: traceDir,
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}

// Cleanup removes the run's trace directory unless configured to keep it.
func (r *Runner) Cleanup(traceDir string) {
	if r.cfg.Intercept.KeepTraces {
		log.Info().Str("trace_dir", traceDir).Msg("keeping trace directory")
		return
	}
	if err := os.RemoveAll(traceDir); err != nil {
		log.Warn().Err(err).Str("trace_dir", traceDir).Msg("trace directory cleanup failed")
	}
}

// interceptEnv extends the current environment with the loader variables
// that activate the interception library in every child process. An already
// preloaded library is kept alongside ours.
func (r *Runner) interceptEnv(traceDir string) []string {
	preload := r.cfg.Intercept.LibraryPath
	if existing := os.Getenv(r.cfg.Intercept.PreloadVar); existing != "" {
		preload = preload + ":" + existing
	}
	return append(os.Environ(),
		r.cfg.Intercept.PreloadVar+"="+preload,
		r.cfg.Intercept.OutputVar+"="+traceDir,
	)
}
