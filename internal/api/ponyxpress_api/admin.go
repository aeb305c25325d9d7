package ponyxpress_api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/ponyxpress/ponyxpress/internal/models"
)

type createAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (a *PonyXpressAPI) listAccounts(w http.ResponseWriter, r *http.Request) {
	out, err := a.d.Identity.List(r.Context(), accountFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []*models.Account{}
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (a *PonyXpressAPI) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	acct, err := a.d.Identity.Create(r.Context(), accountFrom(r.Context()), req.Username, req.Password, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, acct)
}

func (a *PonyXpressAPI) setAccountActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req setActiveRequest
	if err := decodeJSON(r, &req); err != nil || req.Active == nil {
		writeError(w, r, models.ErrInvalidRequest)
		return
	}
	acct, err := a.d.Identity.SetActive(r.Context(), accountFrom(r.Context()), id, *req.Active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, acct)
}

func (a *PonyXpressAPI) resetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.d.Identity.ResetPassword(r.Context(), accountFrom(r.Context()), id, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (a *PonyXpressAPI) deliveryLogs(w http.ResponseWriter, r *http.Request) {
	out, err := a.d.Reports.DeliveryLogs(r.Context(), accountFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []*models.DeliveryLog{}
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (a *PonyXpressAPI) summary(w http.ResponseWriter, r *http.Request) {
	out, err := a.d.Reports.Summary(r.Context(), accountFrom(r.Context()), a.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

// exportRange reads optional from/to dates (inclusive) as local midnights
// in the service time zone. Missing bounds stay zero.
func (a *PonyXpressAPI) exportRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		if from, err = time.ParseInLocation(models.DateLayout, raw, a.d.Location); err != nil {
			return time.Time{}, time.Time{}, models.ErrInvalidDate
		}
	}
	if raw := q.Get("to"); raw != "" {
		if to, err = time.ParseInLocation(models.DateLayout, raw, a.d.Location); err != nil {
			return time.Time{}, time.Time{}, models.ErrInvalidDate
		}
	}
	return from, to, nil
}

func (a *PonyXpressAPI) exportScans(w http.ResponseWriter, r *http.Request) {
	from, to, err := a.exportRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1)
	}

	// Буферизуем, чтобы ошибка доступа или БД вернулась нормальным статусом,
	// а не обрезанным CSV.
	var buf bytes.Buffer
	if err := a.d.Reports.ExportScansCSV(r.Context(), accountFrom(r.Context()), &buf, from, to); err != nil {
		writeError(w, r, err)
		return
	}
	writeCSV(w, "scans.csv", buf.Bytes())
}

func (a *PonyXpressAPI) exportDeliveryLogs(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := a.d.Reports.ExportDeliveryLogsCSV(r.Context(), accountFrom(r.Context()), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	writeCSV(w, "delivery-logs.csv", buf.Bytes())
}

// exportRoutes filters on the route date, so both bounds are plain dates.
func (a *PonyXpressAPI) exportRoutes(w http.ResponseWriter, r *http.Request) {
	from, to, err := a.exportRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := a.d.Reports.ExportRoutesCSV(r.Context(), accountFrom(r.Context()), &buf, from, to); err != nil {
		writeError(w, r, err)
		return
	}
	writeCSV(w, "routes.csv", buf.Bytes())
}

func (a *PonyXpressAPI) exportStops(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := a.d.Reports.ExportStopsCSV(r.Context(), accountFrom(r.Context()), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	writeCSV(w, "mailbox-stops.csv", buf.Bytes())
}

func writeCSV(w http.ResponseWriter, name string, b []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
