package models

import "time"

// Origin indicates why an entry was recorded in the ledger
type Origin string

const (
	// OriginPromotion marks an A-only entry selected for promotion to B
	OriginPromotion Origin = "promotion"
	// OriginReview marks a both-present entry inspected via content comparison
	OriginReview Origin = "review"
)

// LedgerEntry is one Selection/Review ledger record
type LedgerEntry struct {
	ID       string    `json:"id"`
	Category string    `json:"category"`
	Entry    string    `json:"entry"`
	Origin   Origin    `json:"origin"`
	Verdict  Verdict   `json:"verdict,omitempty"`
	Recorded time.Time `json:"recorded"`
}
