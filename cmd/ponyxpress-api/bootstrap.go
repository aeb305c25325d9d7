package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ponyxpress/ponyxpress/config"
	ponyxpressapi "github.com/ponyxpress/ponyxpress/internal/api/ponyxpress_api"
	"github.com/ponyxpress/ponyxpress/internal/broker/kafka"
	"github.com/ponyxpress/ponyxpress/internal/cache"
	"github.com/ponyxpress/ponyxpress/internal/cache/rediscache"
	"github.com/ponyxpress/ponyxpress/internal/photostore"
	"github.com/ponyxpress/ponyxpress/internal/services/deliveries"
	"github.com/ponyxpress/ponyxpress/internal/services/identity"
	"github.com/ponyxpress/ponyxpress/internal/services/reports"
	"github.com/ponyxpress/ponyxpress/internal/services/routes"
	"github.com/ponyxpress/ponyxpress/internal/services/stops"
	"github.com/ponyxpress/ponyxpress/internal/session"
	"github.com/ponyxpress/ponyxpress/internal/storage/pgdelivery"
)

type apiApp struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    apiOpts
	handler http.Handler
	closers []func()
}

func mustBootstrapAPI() *apiApp {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using process environment")
	}

	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	set, err := resolveAPISettings(cfg)
	if err != nil {
		panic(fmt.Sprintf("invalid settings: %v", err))
	}

	app := &apiApp{}

	st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), set.storageTimeout, 60*time.Second)
	app.closers = append(app.closers, st.Close)

	// Redis и Kafka необязательны: без них нет кэша, троттлинга логинов и событий.
	var routeCache cache.VersionedCache
	var limiter identity.LoginLimiter
	if addr := cfg.Redis.Addr(); addr != "" {
		rc := rediscache.New(addr)
		rl := rediscache.NewRateLimiter(addr)
		routeCache, limiter = rc, rl
		app.closers = append(app.closers, func() { _ = rc.Close() })
	}
	var producer *kafka.Producer
	if brokers := cfg.Kafka.Brokers(); len(brokers) > 0 {
		producer = kafka.NewProducer(brokers)
		app.closers = append(app.closers, func() { _ = producer.Close() })
	}

	photos, err := photostore.New(set.photoDir, set.photoMaxBytes)
	if err != nil {
		panic(err)
	}
	sessions, err := session.NewManager(cfg.PonyXpress.SessionSecret, set.sessionTTL, set.secureCookies)
	if err != nil {
		panic(err)
	}

	idSvc := identity.New(st, identity.BcryptHasher{Cost: set.bcryptCost}).
		WithLoginLimit(limiter, set.loginMaxAttempts, set.loginWindow)
	if _, err := idSvc.Bootstrap(context.Background(), cfg.PonyXpress.AdminUsername, cfg.PonyXpress.AdminPassword); err != nil {
		panic(fmt.Sprintf("bootstrap admin: %v", err))
	}

	ledger := routes.New(st, routeCache, set.activeRouteTTL)
	stopReg := stops.New(st)
	recorder := deliveries.New(st, stopReg, photos).WithLocation(set.location)
	if producer != nil {
		ledger.WithEvents(producer, set.routeTopic)
		recorder.WithEvents(producer, set.scanTopic)
	}

	api := ponyxpressapi.New(ponyxpressapi.Deps{
		Identity:     idSvc,
		Routes:       ledger,
		Stops:        stopReg,
		Scans:        recorder,
		Reports:      reports.New(st, set.location),
		Photos:       photos,
		Sessions:     sessions,
		Location:     set.location,
		MaxBodyBytes: set.photoMaxBytes*2 + 1<<20,
		SwaggerPath:  os.Getenv("swaggerPath"),
		Ping:         st.Ping,
	})

	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app.opts = apiOpts{httpAddr: set.httpAddr}
	app.handler = api.Router()

	slog.Info("ponyxpress api configured",
		"time_zone", set.location.String(),
		"redis", routeCache != nil,
		"kafka", producer != nil,
		"photo_dir", set.photoDir,
	)
	return app
}

func mustOpenPostgresWithRetry(connString string, opTimeout, wait time.Duration) *pgdelivery.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgdelivery.New(connString, opTimeout)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *apiApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *apiApp) Run() error {
	return runPonyXpressAPI(a.ctx, a.opts, a.handler)
}
