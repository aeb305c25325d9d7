package messages

import (
	"strconv"
	"time"
)

const (
	TopicScanRecorded = "ponyxpress.scan.recorded"
	TopicRouteSaved   = "ponyxpress.route.saved"
)

// ScanRecorded is published after a scan row commits.
type ScanRecorded struct {
	ScanID    int64     `json:"scan_id"`
	CarrierID int64     `json:"carrier_id"`
	Date      string    `json:"date"`
	Barcode   string    `json:"barcode"`
	SizeClass string    `json:"size_class"`
	StopID    *int64    `json:"stop_id,omitempty"`
	PhotoRef  *string   `json:"photo_ref,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}

// RouteSaved is published after a route trace replaces the active one.
type RouteSaved struct {
	RouteID   int64     `json:"route_id"`
	CarrierID int64     `json:"carrier_id"`
	Date      string    `json:"date"`
	SavedAt   time.Time `json:"saved_at"`
}

// DayKey is the part both events share; consumers that only need to know
// which (carrier, day) changed decode into it.
type DayKey struct {
	CarrierID int64  `json:"carrier_id"`
	Date      string `json:"date"`
}

// PartitionKey keeps one carrier's events ordered on a single partition.
func PartitionKey(carrierID int64) []byte {
	return []byte(strconv.FormatInt(carrierID, 10))
}
