package identity

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/access"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

type Repository interface {
	CreateAccount(ctx context.Context, in models.AccountCreateInput) (*models.Account, error)
	EnsureAccount(ctx context.Context, in models.AccountCreateInput) (bool, error)
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	SetAccountActive(ctx context.Context, id int64, active bool) (*models.Account, error)
	SetAccountPassword(ctx context.Context, id int64, passwordHash string) error
}

type LoginLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
	Reset(ctx context.Context, key string) error
}

type Service struct {
	repo   Repository
	hasher PasswordHasher

	limiter     LoginLimiter
	loginLimit  int64
	loginWindow time.Duration

	// хэш-заглушка для несуществующих логинов, чтобы время ответа не выдавало их отсутствие
	dummyHash string
}

func New(repo Repository, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	dummy, err := hasher.Hash("ponyxpress-timing-equalizer")
	if err != nil {
		slog.Warn("identity: dummy hash", "err", err)
	}
	return &Service{repo: repo, hasher: hasher, dummyHash: dummy}
}

// WithLoginLimit enables login throttling per username. limit <= 0 disables it.
func (s *Service) WithLoginLimit(l LoginLimiter, limit int64, window time.Duration) *Service {
	if l == nil || limit <= 0 {
		return s
	}
	if window <= 0 {
		window = time.Minute
	}
	s.limiter, s.loginLimit, s.loginWindow = l, limit, window
	return s
}

// Authenticate never tells the caller which of username/password/active
// was wrong.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.ErrInvalidCredentials
	}

	key := loginKey(username)
	if s.limiter != nil {
		ok, n, err := s.limiter.Allow(ctx, key, s.loginLimit, s.loginWindow)
		if err != nil {
			// лимитер недоступен: пускаем, но пишем в лог
			slog.Warn("identity: login limiter", "err", err)
		} else if !ok {
			slog.Info("identity: login throttled", "username", username, "attempts", n)
			return nil, models.ErrTooManyAttempts
		}
	}

	acc, err := s.repo.GetAccountByUsername(ctx, username)
	if err != nil {
		if models.KindOf(err) != models.KindNotFound {
			return nil, err
		}
		s.hasher.Verify(s.dummyHash, password)
		return nil, models.ErrInvalidCredentials
	}

	if !s.hasher.Verify(acc.PasswordHash, password) || !acc.Active {
		return nil, models.ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, key); err != nil {
			slog.Warn("identity: login limiter reset", "err", err)
		}
	}
	return acc, nil
}

func (s *Service) Create(ctx context.Context, actor *models.Account, username, password, role string) (*models.Account, error) {
	if err := access.Require(actor, access.ActionWrite, access.Account(access.AnyOwner)); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.ErrEmptyUsername
	}
	if password == "" {
		return nil, models.ErrEmptyPassword
	}
	if !models.ValidRole(role) {
		return nil, models.ErrInvalidRole
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	acc, err := s.repo.CreateAccount(ctx, models.AccountCreateInput{Username: username, PasswordHash: hash, Role: role})
	if err != nil {
		return nil, err
	}
	slog.Info("identity: account created", "id", acc.ID, "username", acc.Username, "role", acc.Role, "by", actor.ID)
	return acc, nil
}

// Bootstrap creates the initial admin if the username is free. Runs without
// an actor: it is only called at startup.
func (s *Service) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, errors.Wrap(err, "hash password")
	}
	created, err := s.repo.EnsureAccount(ctx, models.AccountCreateInput{Username: username, PasswordHash: hash, Role: models.RoleAdmin})
	if err != nil {
		return false, err
	}
	if created {
		slog.Info("identity: bootstrap admin created", "username", username)
	}
	return created, nil
}

// SetActive is idempotent. An admin cannot deactivate itself, so the system
// is never left without a working admin by accident.
func (s *Service) SetActive(ctx context.Context, actor *models.Account, accountID int64, active bool) (*models.Account, error) {
	if err := access.Require(actor, access.ActionWrite, access.Account(accountID)); err != nil {
		return nil, err
	}
	if !active && actor.ID == accountID {
		return nil, &models.Error{Kind: models.KindValidation, Code: "self_deactivation", Message: "cannot deactivate your own account"}
	}
	acc, err := s.repo.SetAccountActive(ctx, accountID, active)
	if err != nil {
		return nil, err
	}
	slog.Info("identity: account active changed", "id", accountID, "active", active, "by", actor.ID)
	return acc, nil
}

func (s *Service) ResetPassword(ctx context.Context, actor *models.Account, accountID int64, password string) error {
	if err := access.Require(actor, access.ActionWrite, access.Account(accountID)); err != nil {
		return err
	}
	if password == "" {
		return models.ErrEmptyPassword
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	if err := s.repo.SetAccountPassword(ctx, accountID, hash); err != nil {
		return err
	}
	slog.Info("identity: password reset", "id", accountID, "by", actor.ID)
	return nil
}

// Get resolves a session's account id. It does not consult the gate: the
// caller has no actor yet.
func (s *Service) Get(ctx context.Context, id int64) (*models.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) List(ctx context.Context, actor *models.Account) ([]*models.Account, error) {
	if err := access.Require(actor, access.ActionRead, access.Account(access.AnyOwner)); err != nil {
		return nil, err
	}
	return s.repo.ListAccounts(ctx)
}

// loginKey normalizes the username so case variants share one counter.
func loginKey(username string) string {
	return "login:" + strings.ToLower(strings.TrimSpace(username))
}
