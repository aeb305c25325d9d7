package ponyxpress_api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ponyxpress/ponyxpress/internal/access"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

type saveRouteRequest struct {
	RouteData json.RawMessage `json:"routeData"`
}

type saveRouteResponse struct {
	Success bool  `json:"success"`
	RouteID int64 `json:"routeId"`
}

// saveRoute records the caller's path for today; it replaces any trace
// saved earlier the same day.
func (a *PonyXpressAPI) saveRoute(w http.ResponseWriter, r *http.Request) {
	actor := accountFrom(r.Context())
	if err := access.RequireRole(actor, models.RoleCarrier); err != nil {
		writeError(w, r, err)
		return
	}
	var req saveRouteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := a.d.Routes.SaveTrace(r.Context(), actor, actor.ID, a.today(), req.RouteData)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, saveRouteResponse{Success: true, RouteID: id})
}

func (a *PonyXpressAPI) activeRoute(w http.ResponseWriter, r *http.Request) {
	actor := accountFrom(r.Context())
	date, err := parseDate(r.URL.Query().Get("date"), a.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	carrierID := actor.ID
	if id, err := queryID(r, "carrierId"); err != nil {
		writeError(w, r, err)
		return
	} else if id != nil {
		carrierID = *id
	}

	tr, ok, err := a.d.Routes.GetActive(r.Context(), actor, carrierID, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, models.ErrNotFound)
		return
	}
	writeJSON(w, r, http.StatusOK, tr)
}

func (a *PonyXpressAPI) routesForDate(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(chi.URLParam(r, "date"), a.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := a.d.Routes.ListForDate(r.Context(), accountFrom(r.Context()), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []*models.RouteTrace{}
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (a *PonyXpressAPI) routeHistory(w http.ResponseWriter, r *http.Request) {
	actor := accountFrom(r.Context())
	date, err := parseDate(chi.URLParam(r, "date"), a.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	carrierID := actor.ID
	if id, err := queryID(r, "carrierId"); err != nil {
		writeError(w, r, err)
		return
	} else if id != nil {
		carrierID = *id
	}

	out, err := a.d.Routes.History(r.Context(), actor, carrierID, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []*models.RouteTrace{}
	}
	writeJSON(w, r, http.StatusOK, out)
}
