package ponyxpress_api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ponyxpress/ponyxpress/internal/access"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		next.ServeHTTP(sw, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"dur_ms", time.Since(start).Milliseconds(),
		)
	})
}

type ctxKey struct{}

func withAccount(ctx context.Context, a *models.Account) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func accountFrom(ctx context.Context) *models.Account {
	a, _ := ctx.Value(ctxKey{}).(*models.Account)
	return a
}

var errNotAuthenticated = &models.DeniedError{Reason: string(access.ReasonNotAuthenticated)}

// requireSession resolves the session to a live account. A deactivated or
// deleted account loses access on its next request.
func (a *PonyXpressAPI) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.d.Sessions.FromRequest(r)
		if err != nil {
			writeError(w, r, errNotAuthenticated)
			return
		}
		acct, err := a.d.Identity.Get(r.Context(), id)
		if err != nil {
			if models.KindOf(err) == models.KindNotFound {
				a.d.Sessions.ClearCookie(w)
				writeError(w, r, errNotAuthenticated)
				return
			}
			writeError(w, r, err)
			return
		}
		if !acct.Active {
			a.d.Sessions.ClearCookie(w)
			writeError(w, r, errNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), acct)))
	})
}
