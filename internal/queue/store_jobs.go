package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"csvwatch/internal/stability"
)

const jobColumns = `id, request_id, source_path, size, mtime_ns, status,
    output_path, content_hash, records, error_kind, error_message,
    created_at, updated_at`

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Enqueue records a new pending conversion job for a stabilized file
// version.
func (s *Store) Enqueue(ctx context.Context, requestID, sourcePath string, fp stability.Fingerprint) (*Job, error) {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO conversion_jobs (
            request_id, source_path, size, mtime_ns, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		requestID,
		sourcePath,
		fp.Size,
		fp.ModTime.UnixNano(),
		StatusPending,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM conversion_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// MarkConverting claims a pending job for execution.
func (s *Store) MarkConverting(ctx context.Context, id int64) error {
	return s.transition(ctx,
		`UPDATE conversion_jobs SET status = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusConverting, timestamp(time.Now()), id, StatusPending)
}

// MarkCompleted records a successful conversion with its output location.
func (s *Store) MarkCompleted(ctx context.Context, id int64, outputPath, contentHash string, records int) error {
	return s.transition(ctx,
		`UPDATE conversion_jobs
         SET status = ?, output_path = ?, content_hash = ?, records = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted, outputPath, contentHash, records, timestamp(time.Now()), id, StatusConverting)
}

// MarkSkipped records a job whose source content matched the previous
// completed conversion; no output was written.
func (s *Store) MarkSkipped(ctx context.Context, id int64, contentHash string) error {
	return s.transition(ctx,
		`UPDATE conversion_jobs SET status = ?, content_hash = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusSkipped, contentHash, timestamp(time.Now()), id, StatusConverting)
}

// MarkFailed records a classified conversion failure.
func (s *Store) MarkFailed(ctx context.Context, id int64, kind, message string) error {
	return s.transition(ctx,
		`UPDATE conversion_jobs
         SET status = ?, error_kind = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed, kind, message, timestamp(time.Now()), id, StatusConverting)
}

func (s *Store) transition(ctx context.Context, query string, args ...any) error {
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// SeenFingerprint reports whether any job was already recorded for this
// exact file version. The process-existing sweep uses this to avoid
// converting a startup file twice when its own creation event also arrives.
func (s *Store) SeenFingerprint(ctx context.Context, sourcePath string, fp stability.Fingerprint) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM conversion_jobs
         WHERE source_path = ? AND size = ? AND mtime_ns = ?`,
		sourcePath, fp.Size, fp.ModTime.UnixNano(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	return count > 0, nil
}

// LastCompletedHash returns the content hash of the most recent completed
// or skipped job for sourcePath, or "" when none exists.
func (s *Store) LastCompletedHash(ctx context.Context, sourcePath string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT content_hash FROM conversion_jobs
         WHERE source_path = ? AND status IN (?, ?) AND content_hash != ''
         ORDER BY id DESC LIMIT 1`,
		sourcePath, StatusCompleted, StatusSkipped,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("last completed hash: %w", err)
	}
	return hash, nil
}

// List returns all jobs in insertion order.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM conversion_jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Summarize aggregates job counts per lifecycle state.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COUNT(1) FROM conversion_jobs GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize jobs: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan summary: %w", err)
		}
		summary.Total += count
		switch status {
		case StatusPending:
			summary.Pending = count
		case StatusConverting:
			summary.Converting = count
		case StatusCompleted:
			summary.Completed = count
		case StatusSkipped:
			summary.Skipped = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate summary: %w", err)
	}
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job       Job
		status    string
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(
		&job.ID,
		&job.RequestID,
		&job.SourcePath,
		&job.Size,
		&job.ModTimeNS,
		&status,
		&job.OutputPath,
		&job.ContentHash,
		&job.Records,
		&job.ErrorKind,
		&job.ErrorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		job.CreatedAt = parsed
	}
	if parsed, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		job.UpdatedAt = parsed
	}
	return &job, nil
}
