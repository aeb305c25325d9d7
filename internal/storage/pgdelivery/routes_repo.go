package pgdelivery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

const routeColumns = `id, carrier_id, route_date, path_data, status, created_at, updated_at`

func scanRoute(row pgx.Row) (*models.RouteTrace, error) {
	var r models.RouteTrace
	var path []byte
	if err := row.Scan(&r.ID, &r.CarrierID, &r.RouteDate, &path, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.PathData = json.RawMessage(path)
	return &r, nil
}

// dayNumber is the second key of the advisory lock: days since the epoch.
func dayNumber(d time.Time) int32 {
	return int32(models.DateOnly(d).Unix() / 86400)
}

// SaveRouteTrace replaces the active trace for (carrierID, date). The
// transaction-scoped advisory lock serializes writers of the same key, so the
// later writer always wins; the partial unique index is the backstop.
func (s *Storage) SaveRouteTrace(ctx context.Context, carrierID int64, date time.Time, pathData json.RawMessage) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	day := models.DateOnly(date)

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, classify(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Двухключевая форма принимает int4; коллизии ключей дают лишь лишнюю сериализацию.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, int32(carrierID), dayNumber(day)); err != nil {
		return 0, classify(err, "advisory lock")
	}

	if _, err := tx.Exec(ctx, `
UPDATE route_traces
SET status = 'inactive', updated_at = now()
WHERE carrier_id = $1 AND route_date = $2 AND status = 'active'
`, carrierID, day); err != nil {
		return 0, classify(err, "deactivate route")
	}

	var id int64
	if err := tx.QueryRow(ctx, `
INSERT INTO route_traces (carrier_id, route_date, path_data, status)
VALUES ($1, $2, $3, 'active')
RETURNING id
`, carrierID, day, string(pathData)).Scan(&id); err != nil {
		return 0, classify(err, "insert route")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, classify(err, "commit tx")
	}
	return id, nil
}

func (s *Storage) GetActiveRoute(ctx context.Context, carrierID int64, date time.Time) (*models.RouteTrace, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	r, err := scanRoute(s.db.QueryRow(ctx, `
SELECT `+routeColumns+`
FROM route_traces
WHERE carrier_id = $1 AND route_date = $2 AND status = 'active'
`, carrierID, models.DateOnly(date)))
	if err != nil {
		return nil, classify(err, "select active route")
	}
	return r, nil
}

// ListActiveRoutes returns the active traces of a day, for one carrier when
// carrierID is set.
func (s *Storage) ListActiveRoutes(ctx context.Context, date time.Time, carrierID *int64) ([]*models.RouteTrace, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
SELECT `+routeColumns+`
FROM route_traces
WHERE route_date = $1 AND status = 'active'
  AND ($2::BIGINT IS NULL OR carrier_id = $2)
ORDER BY carrier_id
`, models.DateOnly(date), carrierID)
	if err != nil {
		return nil, classify(err, "select routes")
	}
	return collectRoutes(rows)
}

// RouteHistory lists every trace ever saved for the key, newest first.
func (s *Storage) RouteHistory(ctx context.Context, carrierID int64, date time.Time) ([]*models.RouteTrace, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
SELECT `+routeColumns+`
FROM route_traces
WHERE carrier_id = $1 AND route_date = $2
ORDER BY created_at DESC, id DESC
`, carrierID, models.DateOnly(date))
	if err != nil {
		return nil, classify(err, "select route history")
	}
	return collectRoutes(rows)
}

// ListRoutesForExport returns active traces with route_date in [from, to]
// joined with the carrier username. Zero bounds are open.
func (s *Storage) ListRoutesForExport(ctx context.Context, from, to time.Time) ([]*models.RouteExportRow, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var fromArg, toArg *time.Time
	if !from.IsZero() {
		f := models.DateOnly(from)
		fromArg = &f
	}
	if !to.IsZero() {
		t := models.DateOnly(to)
		toArg = &t
	}

	rows, err := s.db.Query(ctx, `
SELECT r.id, r.carrier_id, r.route_date, r.path_data, r.status, r.created_at, r.updated_at, a.username
FROM route_traces r
JOIN accounts a ON a.id = r.carrier_id
WHERE r.status = 'active'
  AND ($1::DATE IS NULL OR r.route_date >= $1)
  AND ($2::DATE IS NULL OR r.route_date <= $2)
ORDER BY r.route_date, a.username, r.id
`, fromArg, toArg)
	if err != nil {
		return nil, classify(err, "select routes for export")
	}
	defer rows.Close()

	out := make([]*models.RouteExportRow, 0)
	for rows.Next() {
		var r models.RouteExportRow
		var path []byte
		if err := rows.Scan(&r.ID, &r.CarrierID, &r.RouteDate, &path, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.CarrierUsername); err != nil {
			return nil, errors.Wrap(err, "scan route export row")
		}
		r.PathData = json.RawMessage(path)
		out = append(out, &r)
	}
	if rows.Err() != nil {
		return nil, classify(rows.Err(), "rows")
	}
	return out, nil
}

func collectRoutes(rows pgx.Rows) ([]*models.RouteTrace, error) {
	defer rows.Close()

	out := make([]*models.RouteTrace, 0)
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan route")
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, classify(rows.Err(), "rows")
	}
	return out, nil
}
