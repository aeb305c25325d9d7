package pgdelivery

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind models.ErrorKind
		code string
	}{
		{"no rows", pgx.ErrNoRows, models.KindNotFound, "not_found"},
		{"deadline", context.DeadlineExceeded, models.KindStorageUnavailable, "storage_unavailable"},
		{"wrapped deadline", errors.Wrap(context.DeadlineExceeded, "query"), models.KindStorageUnavailable, "storage_unavailable"},
		{"dup username", &pgconn.PgError{Code: "23505", ConstraintName: constraintUsername}, models.KindConflict, "duplicate_username"},
		{"dup active route", &pgconn.PgError{Code: "23505", ConstraintName: constraintActiveRoute}, models.KindConflict, "concurrent_update"},
		{"serialization", &pgconn.PgError{Code: "40001"}, models.KindStorageUnavailable, "storage_unavailable"},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, models.KindStorageUnavailable, "storage_unavailable"},
		{"conn exception", &pgconn.PgError{Code: "08006"}, models.KindStorageUnavailable, "storage_unavailable"},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, models.KindStorageUnavailable, "storage_unavailable"},
		{"check violation", &pgconn.PgError{Code: "23514"}, models.KindInternal, "internal"},
		{"plain", errors.New("boom"), models.KindInternal, "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify(tc.err, "op")
			require.Error(t, err)
			require.Equal(t, tc.kind, models.KindOf(err))
			require.Equal(t, tc.code, models.CodeOf(err))
		})
	}

	require.NoError(t, classify(nil, "op"))
}

func TestDayNumber(t *testing.T) {
	d1, err := timeParse("2024-05-01")
	require.NoError(t, err)
	d2, err := timeParse("2024-05-02")
	require.NoError(t, err)
	require.Equal(t, dayNumber(d1)+1, dayNumber(d2))
	require.Equal(t, dayNumber(d1), dayNumber(d1.Add(23*time.Hour)))
}
