package models

import "time"

type MailboxStop struct {
	ID        int64     `json:"id"`
	CarrierID int64     `json:"carrierId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	PhotoRef  *string   `json:"photoRef,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type StopExportRow struct {
	MailboxStop
	CarrierUsername string
}
