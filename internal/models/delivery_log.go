package models

import "time"

type DeliveryLog struct {
	ID                int64     `json:"id"`
	CarrierID         int64     `json:"carrierId"`
	CarrierUsername   string    `json:"carrierUsername,omitempty"`
	RouteID           *int64    `json:"routeId,omitempty"`
	PackagesDelivered int       `json:"packagesDelivered"`
	RouteDistance     *float64  `json:"routeDistance,omitempty"`
	DeliveryDate      time.Time `json:"deliveryDate"`
	Notes             *string   `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type DeliveryLogUpsert struct {
	CarrierID         int64
	DeliveryDate      time.Time
	RouteID           *int64
	PackagesDelivered int
	RouteDistance     *float64
}

type Summary struct {
	Date         time.Time `json:"date"`
	Accounts     int64     `json:"accounts"`
	Routes       int64     `json:"routes"`
	MailboxStops int64     `json:"mailboxStops"`
	ScansToday   int64     `json:"scansToday"`
}
