package deliveries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ponyxpress/ponyxpress/internal/access"
	"github.com/ponyxpress/ponyxpress/internal/broker/messages"
	"github.com/ponyxpress/ponyxpress/internal/geo"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

type Repository interface {
	InsertScan(ctx context.Context, in models.ScanCreateInput) (*models.ScanEvent, error)
}

type StopRegistry interface {
	Upsert(ctx context.Context, actor *models.Account, carrierID int64, lat, lng float64, photoRef *string) (int64, bool, error)
}

type PhotoStore interface {
	Validate(data []byte) (string, error)
	Put(data []byte) (string, error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, topic string, key []byte, v any) error
}

type ScanInput struct {
	Barcode   string
	SizeClass string
	Latitude  *float64
	Longitude *float64
	Photo     []byte
}

// ScanResult reports the side effects of a recorded scan. StopErr and
// PhotoErr are informational: the scan itself is already committed.
type ScanResult struct {
	Event           *models.ScanEvent
	StopID          *int64
	AutoStopCreated bool
	StopErr         error
	PhotoErr        error
}

type Recorder struct {
	repo   Repository
	stops  StopRegistry
	photos PhotoStore

	events EventPublisher
	topic  string

	loc *time.Location
	now func() time.Time
}

func New(repo Repository, stops StopRegistry, photos PhotoStore) *Recorder {
	return &Recorder{
		repo:   repo,
		stops:  stops,
		photos: photos,
		topic:  messages.TopicScanRecorded,
		loc:    time.UTC,
		now:    time.Now,
	}
}

func (r *Recorder) WithEvents(p EventPublisher, topic string) *Recorder {
	r.events = p
	if topic != "" {
		r.topic = topic
	}
	return r
}

// WithLocation sets the time zone that decides which delivery day a scan
// belongs to.
func (r *Recorder) WithLocation(loc *time.Location) *Recorder {
	if loc != nil {
		r.loc = loc
	}
	return r
}

func (r *Recorder) RecordScan(ctx context.Context, actor *models.Account, carrierID int64, in ScanInput) (*ScanResult, error) {
	if err := access.Require(actor, access.ActionWrite, access.ScanEvent(carrierID)); err != nil {
		return nil, err
	}

	barcode := strings.TrimSpace(in.Barcode)
	if barcode == "" {
		return nil, models.ErrMissingBarcode
	}
	size := strings.ToLower(strings.TrimSpace(in.SizeClass))
	if !models.ValidSizeClass(size) {
		return nil, models.ErrInvalidSizeClass
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, models.ErrPartialCoordinate
	}
	located := in.Latitude != nil
	if located && !geo.ValidCoordinate(*in.Latitude, *in.Longitude) {
		return nil, models.ErrInvalidCoordinate
	}

	res := &ScanResult{}

	// Фото пишется до вставки скана: строка никогда не ссылается на несуществующий файл.
	var photoRef *string
	if len(in.Photo) > 0 {
		if r.photos == nil {
			res.PhotoErr = models.ErrInvalidPhoto
		} else {
			if _, err := r.photos.Validate(in.Photo); err != nil {
				return nil, err
			}
			ref, err := r.photos.Put(in.Photo)
			if err != nil {
				slog.Error("deliveries: photo store", "carrier_id", carrierID, "barcode", barcode, "err", err)
				res.PhotoErr = err
			} else {
				photoRef = &ref
			}
		}
	}

	ev, err := r.repo.InsertScan(ctx, models.ScanCreateInput{
		CarrierID: carrierID,
		Barcode:   barcode,
		SizeClass: size,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		PhotoRef:  photoRef,
		ScannedAt: r.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	res.Event = ev

	if size == models.SizeClassSmall && located {
		stopID, created, err := r.stops.Upsert(ctx, actor, carrierID, *in.Latitude, *in.Longitude, photoRef)
		if err != nil {
			slog.Warn("deliveries: auto stop upsert failed", "scan_id", ev.ID, "carrier_id", carrierID, "err", err)
			res.StopErr = err
		} else {
			res.StopID = &stopID
			res.AutoStopCreated = created
		}
	}

	slog.Info("deliveries: scan recorded",
		"scan_id", ev.ID, "carrier_id", carrierID, "barcode", barcode, "size_class", size,
		"auto_stop", res.StopID != nil, "by", actor.ID,
	)

	if r.events != nil {
		msg := messages.ScanRecorded{
			ScanID:    ev.ID,
			CarrierID: carrierID,
			Date:      ev.ScannedAt.In(r.loc).Format(models.DateLayout),
			Barcode:   barcode,
			SizeClass: size,
			StopID:    res.StopID,
			PhotoRef:  photoRef,
			ScannedAt: ev.ScannedAt,
		}
		if err := r.events.PublishJSON(ctx, r.topic, messages.PartitionKey(carrierID), msg); err != nil {
			slog.Warn("deliveries: publish scan recorded", "scan_id", ev.ID, "err", err)
		}
	}

	return res, nil
}
