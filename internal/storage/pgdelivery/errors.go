package pgdelivery

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"

	constraintUsername    = "accounts_username_key"
	constraintActiveRoute = "uq_route_traces_active"
)

// classify maps driver errors onto the domain taxonomy. Unknown errors are
// wrapped as-is and end up as internal.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrap(models.ErrNotFound, msg)
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return errors.Wrapf(models.ErrStorageUnavailable, "%s: %v", msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == constraintUsername:
			return errors.Wrap(models.ErrDuplicateUsername, msg)
		case pgErr.Code == codeUniqueViolation:
			return errors.Wrapf(models.ErrConcurrentUpdate, "%s: %s", msg, pgErr.ConstraintName)
		case pgErr.Code == codeSerializationFailure,
			pgErr.Code == codeDeadlockDetected,
			pgErr.Code == codeLockNotAvailable,
			pgErr.Code == codeQueryCanceled,
			// 08xxx connection exception, 53xxx insufficient resources, 57P0x shutdown
			strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "53"),
			strings.HasPrefix(pgErr.Code, "57P0"):
			return errors.Wrapf(models.ErrStorageUnavailable, "%s: %s", msg, pgErr.Code)
		}
		return errors.Wrap(err, msg)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) {
		return errors.Wrapf(models.ErrStorageUnavailable, "%s: %v", msg, err)
	}
	return errors.Wrap(err, msg)
}
