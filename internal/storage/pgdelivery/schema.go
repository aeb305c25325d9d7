package pgdelivery

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS accounts (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('admin', 'carrier', 'substitute')),
  active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  CONSTRAINT accounts_username_key UNIQUE (username)
)`,
		`
CREATE TABLE IF NOT EXISTS route_traces (
  id BIGSERIAL PRIMARY KEY,
  carrier_id BIGINT NOT NULL REFERENCES accounts(id),
  route_date DATE NOT NULL,
  path_data JSONB NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('active', 'inactive')),
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		// Не больше одного активного маршрута на почтальона в день.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_route_traces_active ON route_traces(carrier_id, route_date) WHERE status = 'active'`,
		`CREATE INDEX IF NOT EXISTS idx_route_traces_carrier_date ON route_traces(carrier_id, route_date, created_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS mailbox_stops (
  id BIGSERIAL PRIMARY KEY,
  carrier_id BIGINT NOT NULL REFERENCES accounts(id),
  latitude DOUBLE PRECISION NOT NULL,
  longitude DOUBLE PRECISION NOT NULL,
  photo_ref TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (carrier_id, latitude, longitude)
)`,
		`
CREATE TABLE IF NOT EXISTS scan_events (
  id BIGSERIAL PRIMARY KEY,
  carrier_id BIGINT NOT NULL REFERENCES accounts(id),
  barcode TEXT NOT NULL,
  size_class TEXT NOT NULL CHECK (size_class IN ('big', 'small')),
  latitude DOUBLE PRECISION NULL,
  longitude DOUBLE PRECISION NULL,
  photo_ref TEXT NULL,
  scanned_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  CHECK ((latitude IS NULL) = (longitude IS NULL))
)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_events_carrier_scanned_at ON scan_events(carrier_id, scanned_at)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_events_scanned_at ON scan_events(scanned_at)`,
		`
CREATE TABLE IF NOT EXISTS delivery_logs (
  id BIGSERIAL PRIMARY KEY,
  carrier_id BIGINT NOT NULL REFERENCES accounts(id),
  route_id BIGINT NULL REFERENCES route_traces(id),
  packages_delivered INT NOT NULL DEFAULT 0,
  route_distance DOUBLE PRECISION NULL,
  delivery_date DATE NOT NULL,
  notes TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (carrier_id, delivery_date)
)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
