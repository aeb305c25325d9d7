package reports

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/access"
	"github.com/ponyxpress/ponyxpress/internal/geo"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

type Repository interface {
	ListScansForExport(ctx context.Context, from, to time.Time) ([]*models.ScanExportRow, error)
	ListRoutesForExport(ctx context.Context, from, to time.Time) ([]*models.RouteExportRow, error)
	ListStopsForExport(ctx context.Context) ([]*models.StopExportRow, error)
	ListDeliveryLogs(ctx context.Context) ([]*models.DeliveryLog, error)
	Summary(ctx context.Context, date, dayStart time.Time) (*models.Summary, error)
}

var (
	scanHeader  = []string{"date", "carrier", "barcode", "size_class", "lat", "lng", "timestamp"}
	logHeader   = []string{"date", "carrier", "packages_delivered", "route_distance_m", "notes", "created_at"}
	routeHeader = []string{"date", "carrier", "route_points", "route_distance_m", "created_at", "updated_at"}
	stopHeader  = []string{"carrier", "lat", "lng", "photo_ref", "created_at"}
)

// Service builds the admin dashboard data and CSV exports. Dates are
// rendered in loc.
type Service struct {
	repo Repository
	loc  *time.Location
}

func New(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc}
}

// ExportScansCSV writes scans in [from, to) as CSV. Zero bounds are open.
func (s *Service) ExportScansCSV(ctx context.Context, actor *models.Account, w io.Writer, from, to time.Time) error {
	if err := access.Require(actor, access.ActionRead, access.Export()); err != nil {
		return err
	}
	rows, err := s.repo.ListScansForExport(ctx, from, to)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(scanHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, r := range rows {
		at := r.ScannedAt.In(s.loc)
		rec := []string{
			at.Format(models.DateLayout),
			r.CarrierUsername,
			r.Barcode,
			r.SizeClass,
			optFloat(r.Latitude),
			optFloat(r.Longitude),
			at.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

func (s *Service) ExportDeliveryLogsCSV(ctx context.Context, actor *models.Account, w io.Writer) error {
	if err := access.Require(actor, access.ActionRead, access.Export()); err != nil {
		return err
	}
	logs, err := s.repo.ListDeliveryLogs(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(logHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, l := range logs {
		notes := ""
		if l.Notes != nil {
			notes = *l.Notes
		}
		dist := ""
		if l.RouteDistance != nil {
			dist = strconv.FormatFloat(*l.RouteDistance, 'f', 1, 64)
		}
		rec := []string{
			l.DeliveryDate.Format(models.DateLayout),
			l.CarrierUsername,
			strconv.Itoa(l.PackagesDelivered),
			dist,
			notes,
			l.CreatedAt.In(s.loc).Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// ExportRoutesCSV writes the active traces dated within [from, to]. Zero
// bounds are open. Point count and length are left blank for path blobs
// that are not recognisable geometry.
func (s *Service) ExportRoutesCSV(ctx context.Context, actor *models.Account, w io.Writer, from, to time.Time) error {
	if err := access.Require(actor, access.ActionRead, access.Export()); err != nil {
		return err
	}
	routes, err := s.repo.ListRoutesForExport(ctx, from, to)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(routeHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, r := range routes {
		points, dist := "", ""
		if pts, perr := geo.ParsePath(r.PathData); perr == nil {
			points = strconv.Itoa(len(pts))
			dist = strconv.FormatFloat(geo.PathLength(pts), 'f', 1, 64)
		}
		rec := []string{
			r.RouteDate.Format(models.DateLayout),
			r.CarrierUsername,
			points,
			dist,
			r.CreatedAt.In(s.loc).Format(time.RFC3339),
			r.UpdatedAt.In(s.loc).Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

func (s *Service) ExportStopsCSV(ctx context.Context, actor *models.Account, w io.Writer) error {
	if err := access.Require(actor, access.ActionRead, access.Export()); err != nil {
		return err
	}
	stops, err := s.repo.ListStopsForExport(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(stopHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, st := range stops {
		photo := ""
		if st.PhotoRef != nil {
			photo = *st.PhotoRef
		}
		rec := []string{
			st.CarrierUsername,
			strconv.FormatFloat(st.Latitude, 'f', -1, 64),
			strconv.FormatFloat(st.Longitude, 'f', -1, 64),
			photo,
			st.CreatedAt.In(s.loc).Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

func (s *Service) DeliveryLogs(ctx context.Context, actor *models.Account) ([]*models.DeliveryLog, error) {
	if err := access.Require(actor, access.ActionRead, access.DeliveryLog(access.AnyOwner)); err != nil {
		return nil, err
	}
	return s.repo.ListDeliveryLogs(ctx)
}

// Summary counts for the admin dashboard; "today" is the calendar day of
// now in the service time zone.
func (s *Service) Summary(ctx context.Context, actor *models.Account, now time.Time) (*models.Summary, error) {
	if err := access.Require(actor, access.ActionRead, access.Export()); err != nil {
		return nil, err
	}
	local := now.In(s.loc)
	y, m, d := local.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	return s.repo.Summary(ctx, time.Date(y, m, d, 0, 0, 0, 0, time.UTC), dayStart)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
