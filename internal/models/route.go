package models

import (
	"encoding/json"
	"time"
)

const (
	RouteStatusActive   = "active"
	RouteStatusInactive = "inactive"
)

// RouteTrace is one carrier's recorded path for one day. PathData is stored
// as-is; the service never interprets it beyond checking it is JSON.
type RouteTrace struct {
	ID        int64           `json:"id"`
	CarrierID int64           `json:"carrierId"`
	RouteDate time.Time       `json:"routeDate"`
	PathData  json.RawMessage `json:"pathData"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RouteExportRow is a trace joined with the carrier's username.
type RouteExportRow struct {
	RouteTrace
	CarrierUsername string
}

// DateOnly обрезает время до полуночи UTC того же календарного дня.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const DateLayout = "2006-01-02"
