package pgdelivery

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

// scan_events is append-only: this file has no UPDATE or DELETE on it.

func (s *Storage) InsertScan(ctx context.Context, in models.ScanCreateInput) (*models.ScanEvent, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	scannedAt := in.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}

	e := models.ScanEvent{
		CarrierID: in.CarrierID,
		Barcode:   in.Barcode,
		SizeClass: in.SizeClass,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		PhotoRef:  in.PhotoRef,
	}
	err := s.db.QueryRow(ctx, `
INSERT INTO scan_events (carrier_id, barcode, size_class, latitude, longitude, photo_ref, scanned_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, scanned_at
`, in.CarrierID, in.Barcode, in.SizeClass, in.Latitude, in.Longitude, in.PhotoRef, scannedAt.UTC()).Scan(&e.ID, &e.ScannedAt)
	if err != nil {
		return nil, classify(err, "insert scan")
	}
	return &e, nil
}

// CountScans counts one carrier's scans in [from, to).
func (s *Storage) CountScans(ctx context.Context, carrierID int64, from, to time.Time) (int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var n int
	err := s.db.QueryRow(ctx, `
SELECT count(*) FROM scan_events
WHERE carrier_id = $1 AND scanned_at >= $2 AND scanned_at < $3
`, carrierID, from.UTC(), to.UTC()).Scan(&n)
	if err != nil {
		return 0, classify(err, "count scans")
	}
	return n, nil
}

// ListScansForExport returns scans joined with the carrier username, oldest
// first. Zero bounds are open.
func (s *Storage) ListScansForExport(ctx context.Context, from, to time.Time) ([]*models.ScanExportRow, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var fromArg, toArg *time.Time
	if !from.IsZero() {
		f := from.UTC()
		fromArg = &f
	}
	if !to.IsZero() {
		t := to.UTC()
		toArg = &t
	}

	rows, err := s.db.Query(ctx, `
SELECT
  e.id, e.carrier_id, a.username, e.barcode, e.size_class,
  e.latitude, e.longitude, e.photo_ref, e.scanned_at
FROM scan_events e
JOIN accounts a ON a.id = e.carrier_id
WHERE ($1::TIMESTAMPTZ IS NULL OR e.scanned_at >= $1)
  AND ($2::TIMESTAMPTZ IS NULL OR e.scanned_at < $2)
ORDER BY e.scanned_at, e.id
`, fromArg, toArg)
	if err != nil {
		return nil, classify(err, "select scans")
	}
	defer rows.Close()

	out := make([]*models.ScanExportRow, 0)
	for rows.Next() {
		var r models.ScanExportRow
		if err := rows.Scan(
			&r.ID, &r.CarrierID, &r.CarrierUsername, &r.Barcode, &r.SizeClass,
			&r.Latitude, &r.Longitude, &r.PhotoRef, &r.ScannedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan export row")
		}
		out = append(out, &r)
	}
	if rows.Err() != nil {
		return nil, classify(rows.Err(), "rows")
	}
	return out, nil
}

// PhotoRefs returns every photo reference held by scans or stops.
func (s *Storage) PhotoRefs(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
SELECT photo_ref FROM scan_events WHERE photo_ref IS NOT NULL
UNION
SELECT photo_ref FROM mailbox_stops WHERE photo_ref IS NOT NULL
`)
	if err != nil {
		return nil, classify(err, "select photo refs")
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, errors.Wrap(err, "scan photo ref")
		}
		out[ref] = struct{}{}
	}
	if rows.Err() != nil {
		return nil, classify(rows.Err(), "rows")
	}
	return out, nil
}
