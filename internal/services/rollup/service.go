// Package rollup keeps delivery_logs in step with scans and route saves.
// Every event triggers a full recomputation of its (carrier, day) row, so
// redelivered or reordered events converge on the same result.
package rollup

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/broker/messages"
	"github.com/ponyxpress/ponyxpress/internal/geo"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

type Repository interface {
	CountScans(ctx context.Context, carrierID int64, from, to time.Time) (int, error)
	GetActiveRoute(ctx context.Context, carrierID int64, date time.Time) (*models.RouteTrace, error)
	UpsertDeliveryLog(ctx context.Context, in models.DeliveryLogUpsert) error
}

// MessageSource is the consumer side of the broker.
type MessageSource interface {
	Consume(ctx context.Context, handler func(ctx context.Context, topic string, key, value []byte) error) error
}

type Stats struct {
	Processed  int64  `json:"processed"`
	Skipped    int64  `json:"skipped"`
	Failed     int64  `json:"failed"`
	Restarts   int64  `json:"restarts"`
	LastError  string `json:"last_error,omitempty"`
	LastDayKey string `json:"last_day_key,omitempty"`
}

type Service struct {
	repo Repository
	loc  *time.Location

	backoff []time.Duration

	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	restarts  atomic.Int64

	lastMu     sync.Mutex
	lastError  string
	lastDayKey string
}

func New(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:    repo,
		loc:     loc,
		backoff: []time.Duration{time.Second, 5 * time.Second, 15 * time.Second, time.Minute},
	}
}

// WithBackoff задаёт паузы между перезапусками консьюмера; последняя
// повторяется для всех последующих неудач.
func (s *Service) WithBackoff(steps ...time.Duration) *Service {
	if len(steps) > 0 {
		s.backoff = steps
	}
	return s
}

func (s *Service) backoffDelay(fails int) time.Duration {
	if fails <= 1 {
		return s.backoff[0]
	}
	if fails > len(s.backoff) {
		return s.backoff[len(s.backoff)-1]
	}
	return s.backoff[fails-1]
}

// Recompute rebuilds the delivery log for carrierID on the local calendar
// day named by date (YYYY-MM-DD).
func (s *Service) Recompute(ctx context.Context, carrierID int64, date string) (*models.DeliveryLogUpsert, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, s.loc)
	if err != nil {
		return nil, models.ErrInvalidDate
	}

	n, err := s.repo.CountScans(ctx, carrierID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	in := models.DeliveryLogUpsert{
		CarrierID:         carrierID,
		DeliveryDate:      models.DateOnly(day),
		PackagesDelivered: n,
	}

	tr, err := s.repo.GetActiveRoute(ctx, carrierID, in.DeliveryDate)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		id := tr.ID
		in.RouteID = &id
		if pts, perr := geo.ParsePath(tr.PathData); perr == nil {
			d := geo.PathLength(pts)
			in.RouteDistance = &d
		} else {
			slog.Warn("rollup: route path not measurable", "route_id", tr.ID, "error", perr.Error())
		}
	}

	if err := s.repo.UpsertDeliveryLog(ctx, in); err != nil {
		return nil, err
	}
	return &in, nil
}

// HandleMessage is the broker handler. Malformed payloads are dropped;
// storage errors are returned so the message is redelivered.
func (s *Service) HandleMessage(ctx context.Context, topic string, _, value []byte) error {
	var k messages.DayKey
	if err := json.Unmarshal(value, &k); err != nil || k.CarrierID <= 0 || k.Date == "" {
		s.skipped.Add(1)
		slog.Warn("rollup: skip malformed message", "topic", topic, "bytes", len(value))
		return nil
	}

	res, err := s.Recompute(ctx, k.CarrierID, k.Date)
	if err != nil {
		if models.KindOf(err) == models.KindValidation {
			s.skipped.Add(1)
			slog.Warn("rollup: skip message", "topic", topic, "carrier_id", k.CarrierID, "date", k.Date, "error", err.Error())
			return nil
		}
		s.failed.Add(1)
		s.setLastError(err)
		return errors.Wrapf(err, "recompute carrier %d on %s", k.CarrierID, k.Date)
	}

	s.processed.Add(1)
	s.lastMu.Lock()
	s.lastDayKey = k.Date
	s.lastMu.Unlock()
	slog.Info("rollup: delivery log updated",
		"topic", topic,
		"carrier_id", k.CarrierID,
		"date", k.Date,
		"packages", res.PackagesDelivered,
		"has_route", res.RouteID != nil,
	)
	return nil
}

// Run consumes until ctx is cancelled, restarting the consumer with backoff
// after failures.
func (s *Service) Run(ctx context.Context, src MessageSource) error {
	fails := 0
	for {
		err := src.Consume(ctx, s.HandleMessage)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			fails = 0
			continue
		}
		fails++
		s.restarts.Add(1)
		s.setLastError(err)
		delay := s.backoffDelay(fails)
		slog.Error("rollup: consumer stopped", "error", err.Error(), "retry_in", delay.String())

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Service) setLastError(err error) {
	s.lastMu.Lock()
	s.lastError = err.Error()
	s.lastMu.Unlock()
}

func (s *Service) Stats() Stats {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	return Stats{
		Processed:  s.processed.Load(),
		Skipped:    s.skipped.Load(),
		Failed:     s.failed.Load(),
		Restarts:   s.restarts.Load(),
		LastError:  s.lastError,
		LastDayKey: s.lastDayKey,
	}
}
