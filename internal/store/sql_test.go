package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteBackend(t *testing.T) *SQL {
	t.Helper()
	ctx := context.Background()
	db, err := NewSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	b, err := NewSQL(ctx, db, DialectSQLite)
	require.NoError(t, err)
	return b
}

func TestSQL_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t)

	_, ok, err := b.Get(ctx, KeyAccount)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Set(ctx, KeyAccount, []byte(`{"method":"email"}`)))
	require.NoError(t, b.Set(ctx, KeyAccount, []byte(`{"method":"wallet"}`)))

	v, ok, err := b.Get(ctx, KeyAccount)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"method":"wallet"}`, string(v))

	require.NoError(t, b.Remove(ctx, KeyAccount))
	_, ok, err = b.Get(ctx, KeyAccount)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQL_SQLiteThroughStore(t *testing.T) {
	ctx := context.Background()
	s := New(Instrument("sqlite", newSQLiteBackend(t)))

	require.NoError(t, s.SetJSON(ctx, KeyUsers, []string{"a", "b"}))
	var users []string
	found, err := s.GetJSON(ctx, KeyUsers, &users)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, users)
}

func TestSQL_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS records").
		WillReturnResult(sqlmock.NewResult(0, 0))
	b, err := NewSQL(ctx, db, DialectPostgres)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO records (record_key, record_value, updated_at)") + `\s+VALUES \(\$1, \$2, \$3\)`).
		WithArgs(KeyWallet, `{"balance":100}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, b.Set(ctx, KeyWallet, []byte(`{"balance":100}`)))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT record_value FROM records WHERE record_key = $1")).
		WithArgs(KeyWallet).
		WillReturnRows(sqlmock.NewRows([]string{"record_value"}).AddRow(`{"balance":100}`))
	v, ok, err := b.Get(ctx, KeyWallet)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"balance":100}`, string(v))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT record_value FROM records WHERE record_key = $1")).
		WithArgs(KeyTransactions).
		WillReturnRows(sqlmock.NewRows([]string{"record_value"}))
	_, ok, err = b.Get(ctx, KeyTransactions)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM records WHERE record_key = $1")).
		WithArgs(KeyWallet).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, b.Remove(ctx, KeyWallet))

	assert.NoError(t, mock.ExpectationsWereMet())
}
