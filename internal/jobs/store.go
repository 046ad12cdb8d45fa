package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gazeheat/internal/config"
)

// ErrJobNotFound is returned by transitions targeting an unknown job.
var ErrJobNotFound = errors.New("job not found")

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the jobs database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.JobsDBPath())
}

// OpenPath opens the database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a pending job. ID, status and timestamps are assigned here.
func (s *Store) Create(ctx context.Context, job Job) (*Job, error) {
	if job.Kind == "" {
		return nil, errors.New("job kind is required")
	}
	job.ID = uuid.NewString()
	job.Status = StatusPending
	if job.ScaleX == 0 {
		job.ScaleX = 1
	}
	if job.ScaleY == 0 {
		job.ScaleY = 1
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, kind, status, user_name, video_name, tracking_type, click_count,
            source_path, data_path, scale_x, scale_y, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Kind,
		job.Status,
		nullableString(job.UserName),
		nullableString(job.VideoName),
		nullableString(job.TrackingType),
		job.ClickCount,
		nullableString(job.SourcePath),
		nullableString(job.DataPath),
		job.ScaleX,
		job.ScaleY,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, job.ID)
}

// Get fetches a job by identifier. A missing job returns nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(opts.Statuses)+1)
	if len(opts.Statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(opts.Statuses)) + `)`
		for _, status := range opts.Statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC, id`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// Stats counts jobs per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// MarkRunning moves a pending job to running.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	return s.exec(ctx, id,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		StatusRunning, now(), id,
	)
}

// SetSource records the resolved source video and any downscale factors.
func (s *Store) SetSource(ctx context.Context, id, sourcePath string, scaleX, scaleY float64) error {
	return s.exec(ctx, id,
		`UPDATE jobs SET source_path = ?, scale_x = ?, scale_y = ?, updated_at = ? WHERE id = ?`,
		nullableString(sourcePath), scaleX, scaleY, now(), id,
	)
}

// Complete records a successful run. Truncated runs land in StatusTruncated.
func (s *Store) Complete(ctx context.Context, id string, outcome Outcome) error {
	status := StatusCompleted
	if outcome.Truncated {
		status = StatusTruncated
	}
	ts := now()
	return s.exec(ctx, id,
		`UPDATE jobs
         SET status = ?, output_path = ?, frames_written = ?, truncated = ?, hold_frame = ?,
             field_mode = ?, error_message = NULL, updated_at = ?, completed_at = ?
         WHERE id = ?`,
		status,
		nullableString(outcome.OutputPath),
		outcome.FramesWritten,
		boolToInt(outcome.Truncated),
		boolToInt(outcome.HoldFrame),
		nullableString(outcome.FieldMode),
		ts,
		ts,
		id,
	)
}

// Fail records a terminal failure with the given status.
func (s *Store) Fail(ctx context.Context, id string, status Status, message string) error {
	if !status.IsTerminal() || status == StatusCompleted || status == StatusTruncated {
		status = StatusFailed
	}
	ts := now()
	return s.exec(ctx, id,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		status, nullableString(strings.TrimSpace(message)), ts, ts, id,
	)
}

// FailRunning marks jobs left running by a previous process as failed.
func (s *Store) FailRunning(ctx context.Context, reason string) (int64, error) {
	ts := now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?, completed_at = ? WHERE status IN (?, ?)`,
		StatusFailed, reason, ts, ts, StatusPending, StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("fail running jobs: %w", err)
	}
	return res.RowsAffected()
}

// Prune removes terminal jobs created before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE created_at < ? AND status NOT IN (?, ?)`,
		cutoff.UTC().Format(time.RFC3339Nano), StatusPending, StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) exec(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
