package pgdelivery

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

// UpsertDeliveryLog overwrites the computed columns of the (carrier, date)
// row. Notes are owned by admins and never touched here.
func (s *Storage) UpsertDeliveryLog(ctx context.Context, in models.DeliveryLogUpsert) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.db.Exec(ctx, `
INSERT INTO delivery_logs (carrier_id, route_id, packages_delivered, route_distance, delivery_date)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (carrier_id, delivery_date)
DO UPDATE SET
  route_id = EXCLUDED.route_id,
  packages_delivered = EXCLUDED.packages_delivered,
  route_distance = EXCLUDED.route_distance,
  updated_at = now()
`, in.CarrierID, in.RouteID, in.PackagesDelivered, in.RouteDistance, models.DateOnly(in.DeliveryDate))
	return classify(err, "upsert delivery log")
}

func (s *Storage) ListDeliveryLogs(ctx context.Context) ([]*models.DeliveryLog, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
SELECT
  l.id, l.carrier_id, a.username, l.route_id, l.packages_delivered,
  l.route_distance, l.delivery_date, l.notes, l.created_at, l.updated_at
FROM delivery_logs l
JOIN accounts a ON a.id = l.carrier_id
ORDER BY l.delivery_date DESC, a.username
`)
	if err != nil {
		return nil, classify(err, "select delivery logs")
	}
	defer rows.Close()

	out := make([]*models.DeliveryLog, 0)
	for rows.Next() {
		var l models.DeliveryLog
		if err := rows.Scan(
			&l.ID, &l.CarrierID, &l.CarrierUsername, &l.RouteID, &l.PackagesDelivered,
			&l.RouteDistance, &l.DeliveryDate, &l.Notes, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan delivery log")
		}
		out = append(out, &l)
	}
	if rows.Err() != nil {
		return nil, classify(rows.Err(), "rows")
	}
	return out, nil
}

// Summary counts totals plus scans recorded in [dayStart, dayStart+24h).
func (s *Storage) Summary(ctx context.Context, date, dayStart time.Time) (*models.Summary, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	out := models.Summary{Date: models.DateOnly(date)}
	err := s.db.QueryRow(ctx, `
SELECT
  (SELECT count(*) FROM accounts),
  (SELECT count(*) FROM route_traces WHERE status = 'active'),
  (SELECT count(*) FROM mailbox_stops),
  (SELECT count(*) FROM scan_events WHERE scanned_at >= $1 AND scanned_at < $2)
`, dayStart.UTC(), dayStart.Add(24*time.Hour).UTC()).Scan(&out.Accounts, &out.Routes, &out.MailboxStops, &out.ScansToday)
	if err != nil {
		return nil, classify(err, "summary")
	}
	return &out, nil
}
