package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/nodelib/api/schemas"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool
}

func newTestStore(t *testing.T, mockPool pgxmock.PgxPoolIface, logger *zap.Logger) *Store {
	t.Helper()
	mockPool.ExpectPing()
	s, err := New(context.Background(), mockPool, logger)
	require.NoError(t, err)
	return s
}

func sampleReports(runID string) []schemas.LibraryReport {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []schemas.LibraryReport{
		{
			RunID:         runID,
			ProvenanceKey: "file:/libs/acme/nodes_library.json",
			Kind:          "local_file",
			LibraryName:   "Acme Nodes",
			FinalState:    "Loaded",
			Status:        schemas.StatusFlawed,
			Enabled:       true,
			VenvPath:      "/data/venvs/acme_nodes-0123456789ab",
			Issues:        []schemas.LifecycleIssue{schemas.NewIssue(schemas.StatusFlawed, "dependency installation failed")},
			RecordedAt:    now,
		},
		{
			RunID:         runID,
			ProvenanceKey: "package:other==1.0",
			Kind:          "package",
			FinalState:    "Unusable",
			Status:        schemas.StatusUnusable,
			RecordedAt:    now,
		},
	}
}

// -- Test Cases --

func TestNewStore(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool := newMockPool(t)

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err := New(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr, "Error from ping should be propagated")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should reject a nil pool", func(t *testing.T) {
		_, err := New(context.Background(), nil, zap.NewNop())
		assert.EqualError(t, err, "database pool cannot be nil")
	})
}

func TestEnsureSchema(t *testing.T) {
	mockPool := newMockPool(t)
	s := newTestStore(t, mockPool, zap.NewNop())

	mockPool.ExpectExec(flexibleSQLMatcher(createSchemaSQL)).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, s.EnsureSchema(context.Background()))

	mockPool.ExpectExec(flexibleSQLMatcher(createSchemaSQL)).
		WillReturnError(errors.New("permission denied"))
	err := s.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create library_reports schema")

	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveReports(t *testing.T) {
	ctx := context.Background()

	t.Run("should copy every report in one transaction", func(t *testing.T) {
		mockPool := newMockPool(t)
		observedZapCore, observedLogs := observer.New(zapcore.ErrorLevel)
		s := newTestStore(t, mockPool, zap.New(observedZapCore))

		reports := sampleReports(uuid.NewString())

		mockPool.ExpectBegin()
		mockPool.ExpectCopyFrom(pgx.Identifier{"library_reports"}, reportColumns).WillReturnResult(2)
		// Expect Commit AND the subsequent Rollback (which returns ErrTxClosed)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, s.SaveReports(ctx, reports))
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Empty(t, observedLogs.All(), "Expected no errors logged on successful commit")
	})

	t.Run("should do nothing for an empty run", func(t *testing.T) {
		mockPool := newMockPool(t)
		s := newTestStore(t, mockPool, zap.NewNop())

		require.NoError(t, s.SaveReports(ctx, nil))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should roll back when the copy fails", func(t *testing.T) {
		mockPool := newMockPool(t)
		s := newTestStore(t, mockPool, zap.NewNop())

		mockPool.ExpectBegin()
		mockPool.ExpectCopyFrom(pgx.Identifier{"library_reports"}, reportColumns).
			WillReturnError(errors.New("disk full"))
		mockPool.ExpectRollback()

		err := s.SaveReports(ctx, sampleReports("run-1"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to copy library reports")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should fail on a short copy", func(t *testing.T) {
		mockPool := newMockPool(t)
		s := newTestStore(t, mockPool, zap.NewNop())

		mockPool.ExpectBegin()
		mockPool.ExpectCopyFrom(pgx.Identifier{"library_reports"}, reportColumns).WillReturnResult(1)
		mockPool.ExpectRollback()

		err := s.SaveReports(ctx, sampleReports("run-1"))
		assert.EqualError(t, err, "mismatch in copied reports count: expected 2, got 1")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should surface begin errors", func(t *testing.T) {
		mockPool := newMockPool(t)
		s := newTestStore(t, mockPool, zap.NewNop())

		mockPool.ExpectBegin().WillReturnError(errors.New("connection reset"))

		err := s.SaveReports(ctx, sampleReports("run-1"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestGetReportsByRunID(t *testing.T) {
	ctx := context.Background()
	columns := []string{"provenance_key", "kind", "library_name", "final_state", "status", "enabled", "venv_path", "issues", "recorded_at"}
	recorded := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("should decode rows", func(t *testing.T) {
		mockPool := newMockPool(t)
		s := newTestStore(t, mockPool, zap.NewNop())

		rows := pgxmock.NewRows(columns).
			AddRow("file:/libs/a/nodes_library.json", "local_file", "Acme Nodes", "Loaded", "FLAWED", true,
				"/venvs/a", []byte(`[{"message":"dependency installation failed","severity":"FLAWED"}]`), recorded).
			AddRow("package:x", "package", "", "Unusable", "UNUSABLE", false, "", []byte(`[]`), recorded)
		mockPool.ExpectQuery(flexibleSQLMatcher(selectReportsSQL)).WithArgs("run-42").WillReturnRows(rows)

		reports, err := s.GetReportsByRunID(ctx, "run-42")
		require.NoError(t, err)
		require.Len(t, reports, 2)

		assert.Equal(t, "run-42", reports[0].RunID)
		assert.Equal(t, "Acme Nodes", reports[0].LibraryName)
		assert.Equal(t, schemas.StatusFlawed, reports[0].Status)
		assert.True(t, reports[0].Enabled)
		assert.Equal(t, []schemas.LifecycleIssue{
			{Message: "dependency installation failed", Severity: schemas.StatusFlawed},
		}, reports[0].Issues)
		assert.Equal(t, recorded, reports[0].RecordedAt)

		assert.Equal(t, schemas.StatusUnusable, reports[1].Status)
		assert.Empty(t, reports[1].Issues)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should reject an unknown status", func(t *testing.T) {
		mockPool := newMockPool(t)
		s := newTestStore(t, mockPool, zap.NewNop())

		rows := pgxmock.NewRows(columns).
			AddRow("file:/x", "local_file", "X", "Loaded", "BROKEN", true, "", []byte(`[]`), recorded)
		mockPool.ExpectQuery(flexibleSQLMatcher(selectReportsSQL)).WithArgs("run-1").WillReturnRows(rows)

		_, err := s.GetReportsByRunID(ctx, "run-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown library status")
	})

	t.Run("should surface query errors", func(t *testing.T) {
		mockPool := newMockPool(t)
		s := newTestStore(t, mockPool, zap.NewNop())

		mockPool.ExpectQuery(flexibleSQLMatcher(selectReportsSQL)).WithArgs("run-1").
			WillReturnError(errors.New("relation does not exist"))

		_, err := s.GetReportsByRunID(ctx, "run-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query library reports")
	})
}

func TestClose(t *testing.T) {
	mockPool := newMockPool(t)
	s := newTestStore(t, mockPool, zap.NewNop())

	assert.NotPanics(t, s.Close)
}
