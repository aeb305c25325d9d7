package ponyxpress_api

import (
	"net/http"

	"github.com/ponyxpress/ponyxpress/internal/access"
	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/ponyxpress/ponyxpress/internal/photostore"
	"github.com/ponyxpress/ponyxpress/internal/services/deliveries"
)

type scanRequest struct {
	Barcode   string   `json:"barcode"`
	SizeClass string   `json:"sizeClass"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Photo     string   `json:"photo"`
}

type scanResponse struct {
	Success         bool    `json:"success"`
	ScanID          int64   `json:"scanId"`
	AutoStopCreated bool    `json:"autoStopCreated"`
	StopID          *int64  `json:"stopId,omitempty"`
	PhotoRef        *string `json:"photoRef,omitempty"`
	PhotoStored     *bool   `json:"photoStored,omitempty"`
}

func (a *PonyXpressAPI) scanPackage(w http.ResponseWriter, r *http.Request) {
	actor := accountFrom(r.Context())
	if err := access.RequireRole(actor, models.RoleCarrier, models.RoleSubstitute); err != nil {
		writeError(w, r, err)
		return
	}

	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in := deliveries.ScanInput{
		Barcode:   req.Barcode,
		SizeClass: req.SizeClass,
		Latitude:  req.Lat,
		Longitude: req.Lng,
	}
	if req.Photo != "" {
		b, err := photostore.DecodeInline(req.Photo)
		if err != nil {
			writeError(w, r, err)
			return
		}
		in.Photo = b
	}

	res, err := a.d.Scans.RecordScan(r.Context(), actor, actor.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := scanResponse{
		Success:         true,
		ScanID:          res.Event.ID,
		AutoStopCreated: res.AutoStopCreated,
		StopID:          res.StopID,
		PhotoRef:        res.Event.PhotoRef,
	}
	if len(in.Photo) > 0 {
		stored := res.PhotoErr == nil
		out.PhotoStored = &stored
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (a *PonyXpressAPI) mailboxStops(w http.ResponseWriter, r *http.Request) {
	carrierID, err := queryID(r, "carrierId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := a.d.Stops.List(r.Context(), accountFrom(r.Context()), carrierID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []*models.MailboxStop{}
	}
	writeJSON(w, r, http.StatusOK, out)
}
