package pgdelivery

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const defaultOpTimeout = 3 * time.Second

// Storage is the single PostgreSQL handle shared by every service. Each call
// runs under opTimeout so a stuck database surfaces as ErrStorageUnavailable
// instead of a hung request.
type Storage struct {
	db        *pgxpool.Pool
	opTimeout time.Duration
}

func New(connString string, opTimeout time.Duration) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	s := &Storage{db: db, opTimeout: opTimeout}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return classify(s.db.Ping(ctx), "ping")
}

func (s *Storage) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}
