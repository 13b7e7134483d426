package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"compdb-tracer/internal/compdb"
	"compdb-tracer/internal/compiler"
	"compdb-tracer/internal/monitor"
	"compdb-tracer/internal/trace"
)

// Stats summarizes one generation pass.
type Stats struct {
	TraceFiles int
	Records    int
	Entries    int
}

// Generate reads the trace directory, synthesizes entries from the compiler
// invocations it finds, merges them against the existing database when
// appendMode is set, and writes the result to outputPath.
func (r *Runner) Generate(ctx context.Context, traceDir, outputPath string, appendMode bool) (*Stats, error) {
	ctx, span := r.tracer.StartSpan(ctx, "generate")
	defer span.End()

	files, err := countTraceFiles(traceDir)
	if err != nil {
		return nil, err
	}
	r.metrics.TraceFiles.Set(float64(files))

	records, err := trace.ParseDir(traceDir)
	if err != nil {
		return nil, err
	}

	var current []compdb.Entry
	for _, record := range records {
		r.metrics.RecordsParsed.Inc()
		if !compiler.IsCompilerCall(record.Argv) {
			continue
		}
		r.metrics.CompilerCalls.Inc()

		result := compiler.Classify(record.Argv, compiler.AbsResolver(record.Directory))
		entries := compdb.Synthesize(record, result)
		r.metrics.RecordEntries(result.Action.String(), len(entries))
		current = append(current, entries...)
	}

	var previous []compdb.Entry
	if appendMode {
		previous, err = compdb.Load(outputPath)
		if err != nil {
			return nil, err
		}
	}

	merged, mergeStats := compdb.Merge(previous, current, compdb.NewIdentitySet())
	r.metrics.RecordDropped("missing_file", mergeStats.Missing)
	r.metrics.RecordDropped("duplicate", mergeStats.Duplicates)

	if err := compdb.Save(outputPath, merged); err != nil {
		return nil, err
	}

	stats := &Stats{TraceFiles: files, Records: len(records), Entries: len(merged)}
	span.SetAttributes(
		monitor.AttrTraceFiles.Int(stats.TraceFiles),
		monitor.AttrRecords.Int(stats.Records),
		monitor.AttrEntries.Int(stats.Entries),
	)
	log.Info().Int("trace_files", stats.TraceFiles).Int("records", stats.Records).
		Int("entries", stats.Entries).Str("output", outputPath).Msg("database written")
	return stats, nil
}

func countTraceFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading trace directory: %w", err)
	}
	files := 0
	for _, e := range entries {
		if !e.IsDir() {
			files++
		}
	}
	return files, nil
}
