package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitzfusion/fusionx/common/db"
	"github.com/glitzfusion/fusionx/common/db/dbtest"
)

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	sqlDB := dbtest.Open(t)
	ctx := context.Background()

	var count int
	require.NoError(t, sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, db.Migrate(ctx, sqlDB, db.SQLite))
	require.NoError(t, sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count, "second run must not re-apply")
}

func TestIsUniqueViolationSQLite(t *testing.T) {
	sqlDB := dbtest.Open(t)
	ctx := context.Background()

	insert := `INSERT INTO events (id, slug, title, status, document, created_at, updated_at)
		VALUES (?, ?, 'Gala', 'draft', '{}', 0, 0)`
	_, err := sqlDB.ExecContext(ctx, insert, "evt-1", "gala")
	require.NoError(t, err)

	_, err = sqlDB.ExecContext(ctx, insert, "evt-2", "gala")
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err), "slug collision should be a unique violation: %v", err)

	_, err = sqlDB.ExecContext(ctx, insert, "evt-1", "other")
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err), "primary key collision should be a unique violation: %v", err)
}

func TestIsUniqueViolationMySQL(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	assert.True(t, db.IsUniqueViolation(dup))
	assert.True(t, db.IsUniqueViolation(errors.Join(errors.New("insert attendance"), dup)))
	assert.False(t, db.IsUniqueViolation(&mysql.MySQLError{Number: 1213}))
	assert.False(t, db.IsUniqueViolation(sql.ErrNoRows))
	assert.False(t, db.IsUniqueViolation(nil))
}

func TestWithTransactionRollsBack(t *testing.T) {
	sqlDB := dbtest.Open(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTransaction(ctx, sqlDB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO events (id, slug, title, status, document, created_at, updated_at)
			VALUES ('evt-1', 'gala', 'Gala', 'draft', '{}', 0, 0)`)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count))
	assert.Zero(t, count)
}

func TestSplitStatements(t *testing.T) {
	body := db.ExtractUp("-- +migrate Up\nCREATE TABLE a (x INT);\n\nCREATE TABLE b (y INT);\n-- +migrate Down\nDROP TABLE a;")
	stmts := db.SplitStatements(body)
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, stmts)
}

func TestWithRetryRerunsOnStaleVersion(t *testing.T) {
	sqlDB := dbtest.Open(t)
	ctx := context.Background()

	calls := 0
	err := db.WithRetry(ctx, sqlDB, 3, func(tx *sql.Tx) error {
		calls++
		if calls < 3 {
			return db.ErrStaleVersion
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = db.WithRetry(ctx, sqlDB, 2, func(tx *sql.Tx) error {
		calls++
		return db.ErrStaleVersion
	})
	assert.ErrorIs(t, err, db.ErrStaleVersion)
	assert.Equal(t, 2, calls)

	calls = 0
	err = db.WithRetry(ctx, sqlDB, 3, func(tx *sql.Tx) error {
		calls++
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, calls, "other errors are not retried")
}
