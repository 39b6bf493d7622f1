package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerReason explains why a balance moved.
type LedgerReason string

const (
	ReasonPurchase        LedgerReason = "purchase"
	ReasonAdminAdjustment LedgerReason = "admin-adjustment"
	ReasonUsage           LedgerReason = "usage"
)

func (r LedgerReason) Valid() bool {
	switch r {
	case ReasonPurchase, ReasonAdminAdjustment, ReasonUsage:
		return true
	}
	return false
}

// LedgerAccount is a user's coin balance. Version increases on every write.
type LedgerAccount struct {
	UserID    string    `json:"userId"`
	Balance   int64     `json:"balance"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LedgerEntry is an append-only record of a balance change.
type LedgerEntry struct {
	ID               uuid.UUID    `json:"id"`
	UserID           string       `json:"userId"`
	Delta            int64        `json:"delta"`
	Reason           LedgerReason `json:"reason"`
	RelatedPaymentID *uuid.UUID   `json:"relatedPaymentId,omitempty"`
	Note             string       `json:"note,omitempty"`
	Actor            string       `json:"actor,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}

func NewLedgerEntry(userID string, delta int64, reason LedgerReason, paymentID *uuid.UUID, note string) *LedgerEntry {
	return &LedgerEntry{
		ID:               uuid.New(),
		UserID:           userID,
		Delta:            delta,
		Reason:           reason,
		RelatedPaymentID: paymentID,
		Note:             note,
		CreatedAt:        time.Now().UTC(),
	}
}
