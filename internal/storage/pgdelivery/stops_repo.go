package pgdelivery

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

const stopColumns = `id, carrier_id, latitude, longitude, photo_ref, created_at, updated_at`

func scanStop(row pgx.Row) (*models.MailboxStop, error) {
	var st models.MailboxStop
	if err := row.Scan(&st.ID, &st.CarrierID, &st.Latitude, &st.Longitude, &st.PhotoRef, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

// UpsertStop is a single atomic statement. A nil photoRef keeps whatever
// photo the stop already has. xmax = 0 only for freshly inserted rows.
func (s *Storage) UpsertStop(ctx context.Context, carrierID int64, lat, lng float64, photoRef *string) (int64, bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var (
		id      int64
		created bool
	)
	err := s.db.QueryRow(ctx, `
INSERT INTO mailbox_stops (carrier_id, latitude, longitude, photo_ref)
VALUES ($1, $2, $3, $4)
ON CONFLICT (carrier_id, latitude, longitude)
DO UPDATE SET
  photo_ref = COALESCE(EXCLUDED.photo_ref, mailbox_stops.photo_ref),
  updated_at = now()
RETURNING id, (xmax = 0)
`, carrierID, lat, lng, photoRef).Scan(&id, &created)
	if err != nil {
		return 0, false, classify(err, "upsert stop")
	}
	return id, created, nil
}

func (s *Storage) GetStop(ctx context.Context, id int64) (*models.MailboxStop, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	st, err := scanStop(s.db.QueryRow(ctx, `SELECT `+stopColumns+` FROM mailbox_stops WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "select stop")
	}
	return st, nil
}

func (s *Storage) ListStops(ctx context.Context, carrierID *int64) ([]*models.MailboxStop, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
SELECT `+stopColumns+`
FROM mailbox_stops
WHERE $1::BIGINT IS NULL OR carrier_id = $1
ORDER BY carrier_id, id
`, carrierID)
	if err != nil {
		return nil, classify(err, "select stops")
	}
	defer rows.Close()

	out := make([]*models.MailboxStop, 0)
	for rows.Next() {
		st, err := scanStop(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan stop")
		}
		out = append(out, st)
	}
	if rows.Err() != nil {
		return nil, classify(rows.Err(), "rows")
	}
	return out, nil
}

// ListStopsForExport returns every stop with its carrier's username.
func (s *Storage) ListStopsForExport(ctx context.Context) ([]*models.StopExportRow, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
SELECT m.id, m.carrier_id, m.latitude, m.longitude, m.photo_ref, m.created_at, m.updated_at, a.username
FROM mailbox_stops m
JOIN accounts a ON a.id = m.carrier_id
ORDER BY a.username, m.id
`)
	if err != nil {
		return nil, classify(err, "select stops for export")
	}
	defer rows.Close()

	out := make([]*models.StopExportRow, 0)
	for rows.Next() {
		var st models.StopExportRow
		if err := rows.Scan(&st.ID, &st.CarrierID, &st.Latitude, &st.Longitude, &st.PhotoRef, &st.CreatedAt, &st.UpdatedAt, &st.CarrierUsername); err != nil {
			return nil, errors.Wrap(err, "scan stop export row")
		}
		out = append(out, &st)
	}
	if rows.Err() != nil {
		return nil, classify(rows.Err(), "rows")
	}
	return out, nil
}
