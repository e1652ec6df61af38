package dbutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinalize_PostgresRebindsAndSwapsLimit(t *testing.T) {
	q, args := Finalize(DriverPostgres, "SELECT a FROM t WHERE b = ? LIMIT ?, ?", []interface{}{"x", 10, 20})
	require.Equal(t, "SELECT a FROM t WHERE b = $1 LIMIT $2 OFFSET $3", q)
	require.Equal(t, []interface{}{"x", 20, 10}, args)
}

func TestFinalize_SqliteKeepsQuestionMarks(t *testing.T) {
	q, _ := Finalize(DriverSqlite, "SELECT a FROM t WHERE b = ?", []interface{}{"x"})
	require.Equal(t, "SELECT a FROM t WHERE b = ?", q)
}
