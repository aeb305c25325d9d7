package pgdelivery

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

const accountColumns = `id, username, password_hash, role, active, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAccount relies on the username constraint for duplicate detection.
func (s *Storage) CreateAccount(ctx context.Context, in models.AccountCreateInput) (*models.Account, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	a, err := scanAccount(s.db.QueryRow(ctx, `
INSERT INTO accounts (username, password_hash, role)
VALUES ($1, $2, $3)
RETURNING `+accountColumns, in.Username, in.PasswordHash, in.Role))
	if err != nil {
		return nil, classify(err, "insert account")
	}
	return a, nil
}

// EnsureAccount inserts the account unless the username is taken. Reports
// whether a row was created.
func (s *Storage) EnsureAccount(ctx context.Context, in models.AccountCreateInput) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
INSERT INTO accounts (username, password_hash, role)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO NOTHING
`, in.Username, in.PasswordHash, in.Role)
	if err != nil {
		return false, classify(err, "ensure account")
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Storage) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	a, err := scanAccount(s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "select account")
	}
	return a, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	a, err := scanAccount(s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username))
	if err != nil {
		return nil, classify(err, "select account by username")
	}
	return a, nil
}

func (s *Storage) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, classify(err, "select accounts")
	}
	defer rows.Close()

	out := make([]*models.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan account")
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, classify(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) SetAccountActive(ctx context.Context, id int64, active bool) (*models.Account, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	a, err := scanAccount(s.db.QueryRow(ctx, `
UPDATE accounts SET active = $2, updated_at = now()
WHERE id = $1
RETURNING `+accountColumns, id, active))
	if err != nil {
		return nil, classify(err, "update account active")
	}
	return a, nil
}

func (s *Storage) SetAccountPassword(ctx context.Context, id int64, passwordHash string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tag, err := s.db.Exec(ctx, `UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return classify(err, "update account password")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.ErrNotFound, "update account password")
	}
	return nil
}
