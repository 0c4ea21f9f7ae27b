package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

var reportColumns = []string{
	"run_id", "provenance_key", "kind", "library_name", "final_state",
	"status", "enabled", "venv_path", "issues", "recorded_at",
}

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS library_reports (
    run_id         TEXT        NOT NULL,
    provenance_key TEXT        NOT NULL,
    kind           TEXT        NOT NULL,
    library_name   TEXT        NOT NULL DEFAULT '',
    final_state    TEXT        NOT NULL,
    status         TEXT        NOT NULL,
    enabled        BOOLEAN     NOT NULL DEFAULT FALSE,
    venv_path      TEXT        NOT NULL DEFAULT '',
    issues         JSONB       NOT NULL DEFAULT '[]',
    recorded_at    TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (run_id, provenance_key)
);
CREATE INDEX IF NOT EXISTS library_reports_name_idx ON library_reports (library_name);
`

const selectReportsSQL = `
SELECT provenance_key, kind, library_name, final_state, status, enabled, venv_path, issues, recorded_at
FROM library_reports
WHERE run_id = $1
ORDER BY recorded_at ASC, provenance_key ASC;
`

// Store persists lifecycle reports to PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if pool == nil {
		return nil, errors.New("database pool cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the reports table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("failed to create library_reports schema: %w", err)
	}
	return nil
}

// SaveReports writes every report of a run in a single transaction.
func (s *Store) SaveReports(ctx context.Context, reports []schemas.LibraryReport) error {
	if len(reports) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(reports))
	for i, r := range reports {
		issues := r.Issues
		if issues == nil {
			issues = []schemas.LifecycleIssue{}
		}
		encoded, err := json.Marshal(issues)
		if err != nil {
			return fmt.Errorf("failed to encode issues for %s: %w", r.ProvenanceKey, err)
		}
		rows[i] = []interface{}{
			r.RunID, r.ProvenanceKey, r.Kind, r.LibraryName, r.FinalState,
			r.Status.String(), r.Enabled, r.VenvPath, encoded, r.RecordedAt.UTC(),
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit reports ErrTxClosed, which is expected.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"library_reports"}, reportColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy library reports: %w", err)
	}
	if int(copied) != len(reports) {
		return fmt.Errorf("mismatch in copied reports count: expected %d, got %d", len(reports), copied)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Persisted library reports.", zap.Int("count", len(reports)), zap.String("run_id", reports[0].RunID))
	return nil
}

// GetReportsByRunID returns the reports of one run ordered by recording time.
func (s *Store) GetReportsByRunID(ctx context.Context, runID string) ([]schemas.LibraryReport, error) {
	rows, err := s.pool.Query(ctx, selectReportsSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query library reports: %w", err)
	}
	defer rows.Close()

	var reports []schemas.LibraryReport
	for rows.Next() {
		var (
			r        schemas.LibraryReport
			status   string
			issues   []byte
			recorded time.Time
		)
		if err := rows.Scan(&r.ProvenanceKey, &r.Kind, &r.LibraryName, &r.FinalState,
			&status, &r.Enabled, &r.VenvPath, &issues, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan library report row: %w", err)
		}
		if err := r.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, fmt.Errorf("report for %s: %w", r.ProvenanceKey, err)
		}
		if len(issues) > 0 {
			if err := json.Unmarshal(issues, &r.Issues); err != nil {
				return nil, fmt.Errorf("failed to decode issues for %s: %w", r.ProvenanceKey, err)
			}
		}
		r.RunID = runID
		r.RecordedAt = recorded.UTC()
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return reports, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
