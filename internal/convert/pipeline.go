package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"csvwatch/internal/fileutil"
	"csvwatch/internal/logging"
	"csvwatch/internal/stability"
)

// Options fixes the conversion behavior for the lifetime of a pipeline.
type Options struct {
	OutputDir string
	Lines     bool
	Indent    int
	Overwrite bool
	Delimiter string
	Quote     string
	Encoding  string
}

// Job is one conversion attempt for a stable source file. Fingerprint is the
// size/mtime pair observed at stabilization; the pipeline aborts if the file
// no longer matches it. SkipHash, when non-empty, is the content hash of the
// last completed conversion for this path; matching content is skipped so a
// bare touch does not produce a duplicate output.
type Job struct {
	ID          string
	SourcePath  string
	Fingerprint stability.Fingerprint
	SkipHash    string
}

// Result describes a finished conversion.
type Result struct {
	OutputPath  string
	Records     int
	ContentHash string
	Skipped     bool
}

// Pipeline converts stable CSV files to JSON documents.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
}

// NewPipeline creates a pipeline with fixed options.
func NewPipeline(opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "convert"),
	}
}

// Run executes one conversion job. Failures carry a Kind: race aborts are
// silent retries, parse errors wait for the file to change again, write
// errors mean the output location is broken for this job.
func (p *Pipeline) Run(ctx context.Context, job Job) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, raceError(job.SourcePath, err)
	}

	current, ok := stability.Stat(job.SourcePath)
	if !ok {
		return Result{}, raceError(job.SourcePath, fmt.Errorf("source vanished"))
	}
	if !current.Equal(job.Fingerprint) {
		return Result{}, raceError(job.SourcePath, fmt.Errorf("fingerprint moved since stabilization"))
	}

	raw, err := os.ReadFile(job.SourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, raceError(job.SourcePath, err)
		}
		return Result{}, parseError(job.SourcePath, err)
	}

	decoded, err := decodeBytes(raw, p.opts.Encoding)
	if err != nil {
		return Result{}, parseError(job.SourcePath, err)
	}

	sum := sha256.Sum256(decoded)
	hash := hex.EncodeToString(sum[:])
	if job.SkipHash != "" && job.SkipHash == hash {
		p.logger.Debug("content unchanged, skipping conversion", logging.Args(
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldSourcePath, job.SourcePath),
		)...)
		return Result{ContentHash: hash, Skipped: true}, nil
	}

	dialect := SniffDialect(decoded, p.opts.Delimiter, p.opts.Quote)
	records, _, err := Parse(decoded, dialect)
	if err != nil {
		return Result{}, parseError(job.SourcePath, err)
	}

	output, err := Serialize(records, p.opts.Lines, p.opts.Indent)
	if err != nil {
		return Result{}, parseError(job.SourcePath, err)
	}

	outputPath, err := p.resolveOutputPath(job.SourcePath)
	if err != nil {
		return Result{}, writeError(job.SourcePath, err)
	}
	if err := fileutil.WriteFileAtomic(outputPath, output, 0o644); err != nil {
		return Result{}, writeError(job.SourcePath, err)
	}

	p.logger.Info("converted", logging.Args(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldSourcePath, job.SourcePath),
		logging.String(logging.FieldOutputPath, outputPath),
		logging.Int("records", len(records)),
	)...)

	return Result{OutputPath: outputPath, Records: len(records), ContentHash: hash}, nil
}

// resolveOutputPath maps the source name to its output location. Overwrite
// mode always targets the deterministic name; otherwise collisions get a
// numeric suffix.
func (p *Pipeline) resolveOutputPath(sourcePath string) (string, error) {
	ext := ".json"
	if p.opts.Lines {
		ext = ".jsonl"
	}
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	candidate := filepath.Join(p.opts.OutputDir, stem+ext)
	if p.opts.Overwrite {
		return candidate, nil
	}
	return fileutil.UniquePath(candidate)
}
