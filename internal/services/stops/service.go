package stops

import (
	"context"
	"log/slog"

	"github.com/ponyxpress/ponyxpress/internal/access"
	"github.com/ponyxpress/ponyxpress/internal/geo"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

type Repository interface {
	UpsertStop(ctx context.Context, carrierID int64, lat, lng float64, photoRef *string) (int64, bool, error)
	ListStops(ctx context.Context, carrierID *int64) ([]*models.MailboxStop, error)
}

// Registry deduplicates mailbox stops by exact (carrier, lat, lng).
type Registry struct {
	repo Repository
}

func New(repo Repository) *Registry {
	return &Registry{repo: repo}
}

// Upsert creates the stop or refreshes it; a nil photoRef never clears an
// existing photo.
func (r *Registry) Upsert(ctx context.Context, actor *models.Account, carrierID int64, lat, lng float64, photoRef *string) (int64, bool, error) {
	if err := access.Require(actor, access.ActionWrite, access.MailboxStop(carrierID)); err != nil {
		return 0, false, err
	}
	if !geo.ValidCoordinate(lat, lng) {
		return 0, false, models.ErrInvalidCoordinate
	}
	id, created, err := r.repo.UpsertStop(ctx, carrierID, lat, lng, photoRef)
	if err != nil {
		return 0, false, err
	}
	if created {
		slog.Info("stops: mailbox stop created", "stop_id", id, "carrier_id", carrierID, "lat", lat, "lng", lng)
	}
	return id, created, nil
}

// List returns stops visible to the actor. carrierID narrows the listing;
// carriers always get only their own.
func (r *Registry) List(ctx context.Context, actor *models.Account, carrierID *int64) ([]*models.MailboxStop, error) {
	if carrierID == nil && access.CanReadAll(actor, access.KindMailboxStop) {
		return r.repo.ListStops(ctx, nil)
	}
	owner := int64(0)
	if carrierID != nil {
		owner = *carrierID
	} else if actor != nil {
		owner = actor.ID
	}
	if err := access.Require(actor, access.ActionRead, access.MailboxStop(owner)); err != nil {
		return nil, err
	}
	return r.repo.ListStops(ctx, &owner)
}
