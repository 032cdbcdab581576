package models

import "time"

// Delivery outcomes recorded in the delivery log.
const (
	OutcomeQueued   = "queued"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
	OutcomeApplied  = "applied"
	OutcomeFailed   = "failed"
)

// Delivery is one row of the delivery log: either an inbound webhook as seen
// by the intake endpoint, or the result of projecting a queued event.
type Delivery struct {
	ID         int64     `json:"id"          db:"id"          yaml:"id"`
	DeliveryID string    `json:"delivery_id" db:"delivery_id" yaml:"delivery_id"` // X-GitHub-Delivery, may be empty
	Kind       string    `json:"kind"        db:"kind"        yaml:"kind"`        // X-GitHub-Event
	Action     string    `json:"action"      db:"action"      yaml:"action"`
	PRNumber   int       `json:"pr_number"   db:"pr_number"   yaml:"pr_number"`
	Event      string    `json:"event"       db:"event"       yaml:"event"` // canonical event name, empty when ignored
	Outcome    string    `json:"outcome"     db:"outcome"     yaml:"outcome"`
	Detail     string    `json:"detail"      db:"detail"      yaml:"detail"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"  yaml:"created_at"`
}
