package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

var (
	bayCols   = []string{"id", "label", "note", "is_visible", "owner_id", "created_at", "updated_at"}
	availCols = []string{"id", "bay_id", "is_available", "available_from", "available_until", "created_at", "updated_at"}
	claimCols = []string{"id", "availability_id", "claimer_id", "claimed_at", "expected_duration", "released_at", "created_at", "updated_at"}

	t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func cols(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func dupEntry(key string) error {
	return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key '" + key + "'"}
}

func checkViolation(constraint string) error {
	return &mysql.MySQLError{Number: 3819, Message: "Check constraint '" + constraint + "' is violated."}
}
