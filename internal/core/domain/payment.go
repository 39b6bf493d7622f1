// Package domain defines the payment attempt, ledger and callback models for the credit top-up core.
package domain

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the current state of a payment attempt in its lifecycle
type PaymentStatus string

const (
	StatusPending       PaymentStatus = "pending"
	StatusCompleted     PaymentStatus = "completed"
	StatusCancelled     PaymentStatus = "cancelled"
	StatusFailed        PaymentStatus = "failed"
	StatusPendingReview PaymentStatus = "pending_review"
	StatusApproved      PaymentStatus = "approved"
	StatusRejected      PaymentStatus = "rejected"
)

// PaymentMethod is how the payer settles the attempt.
type PaymentMethod string

const (
	MethodMobileMoney PaymentMethod = "mobile_money"
	MethodCard        PaymentMethod = "card"
)

// Gateway result codes that carry meaning for the state machine.
const (
	ResultCodeSuccess   = "0"
	ResultCodeCancelled = "1032"
)

// PaymentAttempt is one request to buy credits and the single source of truth for its outcome.
type PaymentAttempt struct {
	ID        uuid.UUID
	UserID    string
	UserEmail string
	UserName  string

	Amount        int64
	Coins         int64
	PackageID     string
	PackageInfo   string
	PaymentMethod PaymentMethod
	Phone         string

	GatewayCheckoutRef *string
	GatewayMerchantRef *string

	Status         PaymentStatus
	TransactionRef *string
	ResultDetails  json.RawMessage
	ReviewReason   *string
	ReviewedBy     *string // who approved or rejected the attempt

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	ApprovedAt  *time.Time
	RejectedAt  *time.Time
}

// NewPaymentAttempt builds a pending attempt. Amount and coins must already be validated by the caller.
func NewPaymentAttempt(userID, userEmail, userName, phone string, amount, coins int64, packageID, packageInfo string) (*PaymentAttempt, error) {
	if userID == "" {
		return nil, NewMissingRequiredFieldError("userId")
	}
	if amount < 1 {
		return nil, NewInvalidAmountError(amount)
	}
	if coins < 1 {
		return nil, NewInvalidCoinsError(coins)
	}

	now := time.Now().UTC()
	return &PaymentAttempt{
		ID:            uuid.New(),
		UserID:        userID,
		UserEmail:     userEmail,
		UserName:      userName,
		Phone:         phone,
		Amount:        amount,
		Coins:         coins,
		PackageID:     packageID,
		PackageInfo:   packageInfo,
		PaymentMethod: MethodMobileMoney,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// predecessors lists, for every reachable status, the statuses it may be entered from.
var predecessors = map[PaymentStatus][]PaymentStatus{
	StatusCompleted:     {StatusPending},
	StatusCancelled:     {StatusPending},
	StatusFailed:        {StatusPending},
	StatusPendingReview: {StatusPending},
	StatusApproved:      {StatusCompleted},
	StatusRejected:      {StatusCompleted, StatusPendingReview},
}

// Predecessors returns the statuses from which target may be entered.
// The returned slice is a copy and safe to modify.
func Predecessors(target PaymentStatus) []PaymentStatus {
	return slices.Clone(predecessors[target])
}

// CanTransition reports whether from -> to is a legal edge of the state machine.
func CanTransition(from, to PaymentStatus) bool {
	return slices.Contains(predecessors[to], from)
}

// CanTransitionTo validates a move from the attempt's current status.
//
// Valid transitions are:
//   - pending → completed, cancelled, failed, pending_review
//   - completed → approved, rejected
//   - pending_review → rejected
//
// Any other transition returns an INVALID_TRANSITION error.
func (p *PaymentAttempt) CanTransitionTo(target PaymentStatus) error {
	if CanTransition(p.Status, target) {
		return nil
	}
	return NewInvalidTransitionError(p.Status, target)
}

// IsTerminal reports whether no further transition can leave the current status.
func (p *PaymentAttempt) IsTerminal() bool {
	return p.Status.IsTerminal()
}

func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// IsReviewable reports whether the status belongs on the administrative review queue.
func (s PaymentStatus) IsReviewable() bool {
	return s == StatusCompleted || s == StatusPendingReview
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled, StatusFailed,
		StatusPendingReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// TerminalStatuses are the statuses the retention policy may purge.
func TerminalStatuses() []PaymentStatus {
	return []PaymentStatus{StatusApproved, StatusRejected, StatusCancelled, StatusFailed}
}

// StatusUpdate carries the fields written together with a guarded status change.
// Nil fields are left untouched.
type StatusUpdate struct {
	TransactionRef *string
	ResultDetails  json.RawMessage
	ReviewReason   *string
	ReviewedBy     *string
	CompletedAt    *time.Time
	ApprovedAt     *time.Time
	RejectedAt     *time.Time
}

// Apply copies the update onto the attempt after a successful guarded write.
func (u StatusUpdate) Apply(p *PaymentAttempt, status PaymentStatus, at time.Time) {
	p.Status = status
	p.UpdatedAt = at
	if u.TransactionRef != nil {
		p.TransactionRef = u.TransactionRef
	}
	if u.ResultDetails != nil {
		p.ResultDetails = u.ResultDetails
	}
	if u.ReviewReason != nil {
		p.ReviewReason = u.ReviewReason
	}
	if u.ReviewedBy != nil {
		p.ReviewedBy = u.ReviewedBy
	}
	if u.CompletedAt != nil {
		p.CompletedAt = u.CompletedAt
	}
	if u.ApprovedAt != nil {
		p.ApprovedAt = u.ApprovedAt
	}
	if u.RejectedAt != nil {
		p.RejectedAt = u.RejectedAt
	}
}

// ResultDetails is the advisory diagnostic payload stored on an attempt.
type ResultDetails struct {
	ResultCode string         `json:"resultCode"`
	ResultDesc string         `json:"resultDesc"`
	Source     string         `json:"source,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (r ResultDetails) JSON() json.RawMessage {
	b, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return b
}

// PaymentFilter narrows administrative listings.
type PaymentFilter struct {
	Statuses []PaymentStatus
	UserID   string
	Limit    int
	Offset   int
}
