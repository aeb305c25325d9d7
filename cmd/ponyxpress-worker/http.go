package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ponyxpress/ponyxpress/internal/services/janitor"
	"github.com/ponyxpress/ponyxpress/internal/services/rollup"
	httpSwagger "github.com/swaggo/http-swagger"
)

type workerHTTPOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)

	rollup   *rollup.Service
	janitor  *janitor.Janitor
	ping     func(ctx context.Context) error
	settings *workerSettings
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.ping != nil {
			if err := opts.ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		out := map[string]any{}
		if opts.rollup != nil {
			out["rollup"] = opts.rollup.Stats()
		}
		if opts.janitor != nil {
			out["janitor"] = opts.janitor.Stats()
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.settings == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		s := opts.settings
		backoff := make([]string, 0, len(s.rollupBackoff))
		for _, d := range s.rollupBackoff {
			backoff = append(backoff, d.String())
		}
		// Только рабочие параметры, без секретов.
		out := map[string]any{
			"timeZone":           s.location.String(),
			"photoDir":           s.photoDir,
			"kafkaEnabled":       len(s.brokers) > 0,
			"topics":             s.topics,
			"consumerGroup":      s.consumerGroup,
			"rollupBackoff":      backoff,
			"janitorInterval":    s.janitorInterval.String(),
			"janitorMaxPhotoAge": s.janitorMaxAge.String(),
			"janitorConcurrency": s.janitorConcurrency,
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.janitor == nil {
			_, _ = w.Write([]byte(`{"error":"janitor not wired"}`))
			return
		}
		opts.janitor.Trigger()
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	if opts.swaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, opts.swaggerPath)
		})

		swaggerURL := "/swagger.json"
		if fi, err := os.Stat(opts.swaggerPath); err == nil {
			swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
		}
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
	}

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
