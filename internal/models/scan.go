package models

import "time"

const (
	SizeClassBig   = "big"
	SizeClassSmall = "small"
)

func ValidSizeClass(s string) bool {
	return s == SizeClassBig || s == SizeClassSmall
}

// ScanEvent is immutable once inserted.
type ScanEvent struct {
	ID        int64     `json:"id"`
	CarrierID int64     `json:"carrierId"`
	Barcode   string    `json:"barcode"`
	SizeClass string    `json:"sizeClass"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	PhotoRef  *string   `json:"photoRef,omitempty"`
	ScannedAt time.Time `json:"scannedAt"`
}

type ScanCreateInput struct {
	CarrierID int64
	Barcode   string
	SizeClass string
	Latitude  *float64
	Longitude *float64
	PhotoRef  *string
	ScannedAt time.Time
}

// ScanExportRow is a scan joined with the carrier's username.
type ScanExportRow struct {
	ScanEvent
	CarrierUsername string
}
