package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"compdb-tracer/internal/config"
	"compdb-tracer/internal/monitor"
	"compdb-tracer/internal/runner"
	"compdb-tracer/internal/storage"
)

// Exit status for a build stopped by an interrupt request, distinct from
// the generic failure status and from any child exit code we propagate.
const exitInterrupted = 130

var (
	configPath   string
	verbose      bool
	outputPath   string
	appendMode   bool
	keepTraces   bool
	buildCommand string
	inputDir     string
	historyLimit int
)

func main() {
	root := &cobra.Command{
		Use:   "compdb-tracer",
		Short: "Generate a compilation database from a traced build",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("COMPDB_CONFIG"), "Config file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	runCmd := &cobra.Command{
		Use:   "run [flags] -- build command...",
		Short: "Run a build under exec interception and generate the database",
		Args:  cobra.ArbitraryArgs,
		RunE:  runRun,
	}
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Database output path (default from config)")
	runCmd.Flags().BoolVarP(&appendMode, "append", "a", false, "Merge with an existing database")
	runCmd.Flags().BoolVar(&keepTraces, "keep-traces", false, "Keep the temp trace directory")
	runCmd.Flags().StringVar(&buildCommand, "command", "", "Build command as a single string (alternative to trailing args)")
	root.AddCommand(runCmd)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the database from an existing trace directory",
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringVar(&inputDir, "input-dir", "", "Directory containing trace files")
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Database output path (default from config)")
	generateCmd.Flags().BoolVarP(&appendMode, "append", "a", false, "Merge with an existing database")
	if err := generateCmd.MarkFlagRequired("input-dir"); err != nil {
		panic(err)
	}
	root.AddCommand(generateCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the history database",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list")
	root.AddCommand(historyCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// loadConfig reads the configured file, or falls back to defaults when no
// file is given or present.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = "configs/config.yaml"
		if _, err := os.Stat(path); err != nil {
			log.Debug().Msg("no config file found, using defaults")
			return config.DefaultConfig(), nil
		}
	}
	return config.Load(path)
}

func runRun(cmd *cobra.Command, args []string) error {
	exitCode, err := doRun(cmd, args)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

// doRun executes the traced build and generation; it returns the process
// exit status as a value so deferred cleanup runs before the CLI exits.
func doRun(cmd *cobra.Command, args []string) (int, error) {
	cfg, err := loadConfig()
	if err != nil {
		return 0, err
	}
	applyFlags(cfg)

	argv, err := buildArgv(args)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("stopping build")
		cancel()
	}()

	metrics := monitor.NewMetrics()
	r := runner.New(cfg, metrics)

	start := time.Now()
	result, err := r.RunBuild(ctx, argv)
	if err != nil {
		if errors.Is(err, runner.ErrInterrupted) {
			return exitInterrupted, nil
		}
		return 0, err
	}
	defer r.Cleanup(result.TraceDir)

	stats, err := r.Generate(ctx, result.TraceDir, cfg.Output.Path, appendMode)
	if err != nil {
		return 0, err
	}

	if cfg.Metrics.Enabled {
		metrics.LogSummary(log.Logger)
	}
	logRunHistory(ctx, cfg, &storage.Run{
		ID:           result.RunID,
		BuildCommand: buildCommand,
		OutputPath:   cfg.Output.Path,
		ExitCode:     result.ExitCode,
		TraceFiles:   stats.TraceFiles,
		Records:      stats.Records,
		Entries:      stats.Entries,
		Appended:     appendMode,
		DurationMS:   time.Since(start).Milliseconds(),
	})

	// The database reflects whatever the build managed to compile; the
	// build's own failure still has to be visible to the caller.
	return result.ExitCode, nil
}

// logRunHistory records the run in Postgres when a DSN is configured. A
// missing or unreachable history database never fails the run.
func logRunHistory(ctx context.Context, cfg *config.Config, run *storage.Run) {
	if cfg.Database.DSN == "" {
		return
	}
	db, err := storage.New(ctx, cfg.Database.DSN)
	if err != nil {
		log.Warn().Err(err).Msg("history database unavailable, run not recorded")
		return
	}
	defer db.Close()
	if err := db.LogRun(ctx, run); err != nil {
		log.Warn().Err(err).Msg("recording run failed")
	}
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg)

	metrics := monitor.NewMetrics()
	r := runner.New(cfg, metrics)
	if _, err := r.Generate(cmd.Context(), inputDir, cfg.Output.Path, appendMode); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		metrics.LogSummary(log.Logger)
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("history requires database.dsn in the config")
	}

	db, err := storage.New(cmd.Context(), cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(cmd.Context(), storage.RunFilter{Limit: historyLimit})
	if err != nil {
		return err
	}

	formatted, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(formatted))
	return nil
}

// applyFlags maps command line overrides onto the loaded config.
func applyFlags(cfg *config.Config) {
	if outputPath != "" {
		cfg.Output.Path = outputPath
	}
	if keepTraces {
		cfg.Intercept.KeepTraces = true
	}
}

// buildArgv resolves the build command from either the trailing arguments
// or the --command string form.
func buildArgv(args []string) ([]string, error) {
	if buildCommand != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("give the build command either after -- or via --command, not both")
		}
		argv, err := shlex.Split(buildCommand)
		if err != nil {
			return nil, fmt.Errorf("parsing --command: %w", err)
		}
		return argv, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no build command given")
	}
	// Only for the run-history record; the argv itself is executed
	// without a shell.
	buildCommand = strings.Join(args, " ")
	return args, nil
}
