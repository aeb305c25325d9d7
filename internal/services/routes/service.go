package routes

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ponyxpress/ponyxpress/internal/access"
	"github.com/ponyxpress/ponyxpress/internal/broker/messages"
	"github.com/ponyxpress/ponyxpress/internal/cache"
	"github.com/ponyxpress/ponyxpress/internal/cache/rediscache"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

type Repository interface {
	SaveRouteTrace(ctx context.Context, carrierID int64, date time.Time, pathData json.RawMessage) (int64, error)
	GetActiveRoute(ctx context.Context, carrierID int64, date time.Time) (*models.RouteTrace, error)
	ListActiveRoutes(ctx context.Context, date time.Time, carrierID *int64) ([]*models.RouteTrace, error)
	RouteHistory(ctx context.Context, carrierID int64, date time.Time) ([]*models.RouteTrace, error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, topic string, key []byte, v any) error
}

// Ledger keeps one active route trace per carrier per day. Replacing the
// active trace is serialized in storage; the cache only ever follows it.
type Ledger struct {
	repo      Repository
	cache     cache.VersionedCache
	activeTTL time.Duration
	events    EventPublisher
	topic     string
}

// activeVersionTTL keeps the save counter far longer than any in-flight read.
const activeVersionTTL = 48 * time.Hour

func New(repo Repository, c cache.VersionedCache, activeTTL time.Duration) *Ledger {
	return &Ledger{repo: repo, cache: c, activeTTL: activeTTL, topic: messages.TopicRouteSaved}
}

// WithEvents publishes a RouteSaved event after each committed save.
func (l *Ledger) WithEvents(p EventPublisher, topic string) *Ledger {
	l.events = p
	if topic != "" {
		l.topic = topic
	}
	return l
}

func (l *Ledger) cacheOn() bool { return l.cache != nil && l.activeTTL > 0 }

func (l *Ledger) SaveTrace(ctx context.Context, actor *models.Account, carrierID int64, date time.Time, pathData json.RawMessage) (int64, error) {
	if err := access.Require(actor, access.ActionWrite, access.RouteTrace(carrierID)); err != nil {
		return 0, err
	}
	if len(pathData) == 0 || string(pathData) == "null" {
		return 0, models.ErrEmptyPath
	}
	if !json.Valid(pathData) {
		return 0, models.ErrInvalidPath
	}
	day := models.DateOnly(date)

	id, err := l.repo.SaveRouteTrace(ctx, carrierID, day, pathData)
	if err != nil {
		return 0, err
	}
	slog.Info("routes: trace saved", "route_id", id, "carrier_id", carrierID, "date", day.Format(models.DateLayout), "by", actor.ID)

	if l.cacheOn() {
		// Сначала версия, потом сброс: читатель, загрузивший старую строку до
		// коммита, уже не сможет положить её обратно.
		if err := l.cache.Bump(ctx, rediscache.ActiveRouteVersionKey(carrierID, day), activeVersionTTL); err != nil {
			slog.Warn("routes: cache version bump", "carrier_id", carrierID, "err", err)
		}
		if err := l.cache.Del(ctx, rediscache.ActiveRouteKey(carrierID, day)); err != nil {
			slog.Warn("routes: cache invalidate", "carrier_id", carrierID, "err", err)
		}
	}

	if l.events != nil {
		ev := messages.RouteSaved{RouteID: id, CarrierID: carrierID, Date: day.Format(models.DateLayout), SavedAt: time.Now().UTC()}
		if err := l.events.PublishJSON(ctx, l.topic, messages.PartitionKey(carrierID), ev); err != nil {
			slog.Warn("routes: publish route saved", "route_id", id, "err", err)
		}
	}
	return id, nil
}

// GetActive returns the active trace, or ok=false when there is none.
func (l *Ledger) GetActive(ctx context.Context, actor *models.Account, carrierID int64, date time.Time) (*models.RouteTrace, bool, error) {
	if err := access.Require(actor, access.ActionRead, access.RouteTrace(carrierID)); err != nil {
		return nil, false, err
	}
	day := models.DateOnly(date)
	key := rediscache.ActiveRouteKey(carrierID, day)

	verKey := rediscache.ActiveRouteVersionKey(carrierID, day)

	fill := false
	var ver int64
	if l.cacheOn() {
		if b, ok, err := l.cache.Get(ctx, key); err == nil && ok {
			var r models.RouteTrace
			if json.Unmarshal(b, &r) == nil && r.ID != 0 {
				return &r, true, nil
			}
		}
		// Без известной версии кэш не заполняем.
		if v, err := l.cache.Version(ctx, verKey); err == nil {
			ver, fill = v, true
		}
	}

	r, err := l.repo.GetActiveRoute(ctx, carrierID, day)
	if err != nil {
		if models.KindOf(err) == models.KindNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	if fill {
		b, _ := json.Marshal(r)
		if stored, err := l.cache.SetIfVersion(ctx, verKey, ver, key, b, l.activeTTL); err == nil && !stored {
			slog.Info("routes: trace replaced during read, cache not filled", "carrier_id", carrierID, "date", day.Format(models.DateLayout))
		}
	}
	return r, true, nil
}

// ListForDate returns every carrier's active trace to admins and
// substitutes, and only the caller's own to carriers.
func (l *Ledger) ListForDate(ctx context.Context, actor *models.Account, date time.Time) ([]*models.RouteTrace, error) {
	if access.CanReadAll(actor, access.KindRouteTrace) {
		return l.repo.ListActiveRoutes(ctx, models.DateOnly(date), nil)
	}
	if err := access.Require(actor, access.ActionRead, access.RouteTrace(actorID(actor))); err != nil {
		return nil, err
	}
	own := actor.ID
	return l.repo.ListActiveRoutes(ctx, models.DateOnly(date), &own)
}

// History lists all traces for (carrier, date), newest first.
func (l *Ledger) History(ctx context.Context, actor *models.Account, carrierID int64, date time.Time) ([]*models.RouteTrace, error) {
	if err := access.Require(actor, access.ActionRead, access.RouteTrace(carrierID)); err != nil {
		return nil, err
	}
	return l.repo.RouteHistory(ctx, carrierID, models.DateOnly(date))
}

func actorID(a *models.Account) int64 {
	if a == nil {
		return 0
	}
	return a.ID
}
