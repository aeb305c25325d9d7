package ponyxpress_api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/ponyxpress/ponyxpress/internal/services/deliveries"
	"github.com/ponyxpress/ponyxpress/internal/session"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Identity interface {
	Authenticate(ctx context.Context, username, password string) (*models.Account, error)
	Get(ctx context.Context, id int64) (*models.Account, error)
	List(ctx context.Context, actor *models.Account) ([]*models.Account, error)
	Create(ctx context.Context, actor *models.Account, username, password, role string) (*models.Account, error)
	SetActive(ctx context.Context, actor *models.Account, accountID int64, active bool) (*models.Account, error)
	ResetPassword(ctx context.Context, actor *models.Account, accountID int64, password string) error
}

type Routes interface {
	SaveTrace(ctx context.Context, actor *models.Account, carrierID int64, date time.Time, pathData json.RawMessage) (int64, error)
	GetActive(ctx context.Context, actor *models.Account, carrierID int64, date time.Time) (*models.RouteTrace, bool, error)
	ListForDate(ctx context.Context, actor *models.Account, date time.Time) ([]*models.RouteTrace, error)
	History(ctx context.Context, actor *models.Account, carrierID int64, date time.Time) ([]*models.RouteTrace, error)
}

type Stops interface {
	List(ctx context.Context, actor *models.Account, carrierID *int64) ([]*models.MailboxStop, error)
}

type Scans interface {
	RecordScan(ctx context.Context, actor *models.Account, carrierID int64, in deliveries.ScanInput) (*deliveries.ScanResult, error)
}

type Reports interface {
	ExportScansCSV(ctx context.Context, actor *models.Account, w io.Writer, from, to time.Time) error
	ExportDeliveryLogsCSV(ctx context.Context, actor *models.Account, w io.Writer) error
	ExportRoutesCSV(ctx context.Context, actor *models.Account, w io.Writer, from, to time.Time) error
	ExportStopsCSV(ctx context.Context, actor *models.Account, w io.Writer) error
	DeliveryLogs(ctx context.Context, actor *models.Account) ([]*models.DeliveryLog, error)
	Summary(ctx context.Context, actor *models.Account, now time.Time) (*models.Summary, error)
}

type Photos interface {
	Open(ref string) (*os.File, error)
}

// Deps is everything the HTTP layer talks to. Ping is optional.
type Deps struct {
	Identity Identity
	Routes   Routes
	Stops    Stops
	Scans    Scans
	Reports  Reports
	Photos   Photos
	Sessions *session.Manager

	Location     *time.Location
	MaxBodyBytes int64
	SwaggerPath  string
	Ping         func(ctx context.Context) error
}

type PonyXpressAPI struct {
	d   Deps
	now func() time.Time
}

func New(d Deps) *PonyXpressAPI {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = 32 << 20
	}
	return &PonyXpressAPI{d: d, now: time.Now}
}

// today is the delivery day of now in the service time zone, as a UTC date.
func (a *PonyXpressAPI) today() time.Time {
	return models.DateOnly(a.now().In(a.d.Location))
}

func (a *PonyXpressAPI) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(logRequests)
	r.Use(middleware.RequestSize(a.d.MaxBodyBytes))

	r.Get("/healthz", a.healthz)
	if a.d.SwaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, a.d.SwaggerPath)
		})
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/swagger.json")))
	}

	r.Post("/api/login", a.login)
	r.Post("/api/logout", a.logout)

	r.Group(func(r chi.Router) {
		r.Use(a.requireSession)

		r.Get("/api/me", a.me)

		r.Post("/api/route/save", a.saveRoute)
		r.Get("/api/route/active", a.activeRoute)
		r.Get("/api/routes/{date}", a.routesForDate)
		r.Get("/api/routes/{date}/history", a.routeHistory)

		r.Post("/api/package/scan", a.scanPackage)
		r.Get("/api/mailbox-stops", a.mailboxStops)

		r.Get("/photos/{ref}", a.photo)

		r.Route("/api/admin", func(r chi.Router) {
			r.Get("/accounts", a.listAccounts)
			r.Post("/accounts", a.createAccount)
			r.Post("/accounts/{id}/active", a.setAccountActive)
			r.Post("/accounts/{id}/password", a.resetPassword)
			r.Get("/delivery-logs", a.deliveryLogs)
			r.Get("/summary", a.summary)
			r.Get("/export/scans.csv", a.exportScans)
			r.Get("/export/delivery-logs.csv", a.exportDeliveryLogs)
			r.Get("/export/routes.csv", a.exportRoutes)
			r.Get("/export/mailbox-stops.csv", a.exportStops)
		})
	})

	return r
}

func (a *PonyXpressAPI) healthz(w http.ResponseWriter, r *http.Request) {
	if a.d.Ping != nil {
		if err := a.d.Ping(r.Context()); err != nil {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
