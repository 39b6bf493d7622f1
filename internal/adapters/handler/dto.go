package handler

import (
	"encoding/json"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/shopspring/decimal"
)

type InitiateRequest struct {
	Phone       string          `json:"phone" validate:"required" example:"0712345678"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"number" example:"100"`
	Reference   string          `json:"reference" validate:"max=12" example:"Coins500"`
	Description string          `json:"description" validate:"max=13" example:"Buy coins"`
	UserID      string          `json:"userId" validate:"required" example:"user-42"`
	UserEmail   string          `json:"userEmail" example:"jane@example.com"`
	UserName    string          `json:"userName" example:"Jane"`
	Coins       int64           `json:"coins" validate:"required,gt=0" example:"500"`
	PackageID   string          `json:"packageId" example:"pkg-500"`
	PackageInfo string          `json:"packageInfo" example:"500 coins"`
}

// InitiateResponse keeps the flat shape the storefront already consumes.
type InitiateResponse struct {
	Success         bool   `json:"success"`
	CheckoutRef     string `json:"checkoutRef,omitempty"`
	MerchantRef     string `json:"merchantRef,omitempty"`
	PaymentID       string `json:"paymentId,omitempty"`
	CustomerMessage string `json:"customerMessage,omitempty"`
	Message         string `json:"message,omitempty"`
	ErrorCode       string `json:"errorCode,omitempty"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required" example:"duplicate receipt"`
}

type AdjustmentRequest struct {
	Delta int64  `json:"delta" validate:"required" example:"-20"`
	Note  string `json:"note" validate:"required" example:"goodwill credit"`
}

type UsageRequest struct {
	Coins int64  `json:"coins" validate:"required,gt=0" example:"5"`
	Note  string `json:"note" example:"chapter unlock"`
}

// CallbackAck is the acknowledgement body the gateway expects.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

type PaymentResponse struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	UserEmail      string          `json:"userEmail,omitempty"`
	UserName       string          `json:"userName,omitempty"`
	Amount         int64           `json:"amount"`
	Coins          int64           `json:"coins"`
	PackageID      string          `json:"packageId,omitempty"`
	PackageInfo    string          `json:"packageInfo,omitempty"`
	PaymentMethod  string          `json:"paymentMethod"`
	Phone          string          `json:"phone"`
	CheckoutRef    *string         `json:"checkoutRef,omitempty"`
	MerchantRef    *string         `json:"merchantRef,omitempty"`
	Status         string          `json:"status"`
	TransactionRef *string         `json:"transactionRef,omitempty"`
	ResultDetails  json.RawMessage `json:"resultDetails,omitempty"`
	ReviewReason   *string         `json:"reviewReason,omitempty"`
	ReviewedBy     *string         `json:"reviewedBy,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	ApprovedAt     *time.Time      `json:"approvedAt,omitempty"`
	RejectedAt     *time.Time      `json:"rejectedAt,omitempty"`
}

func toPaymentResponse(p *domain.PaymentAttempt) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID.String(),
		UserID:         p.UserID,
		UserEmail:      p.UserEmail,
		UserName:       p.UserName,
		Amount:         p.Amount,
		Coins:          p.Coins,
		PackageID:      p.PackageID,
		PackageInfo:    p.PackageInfo,
		PaymentMethod:  string(p.PaymentMethod),
		Phone:          p.Phone,
		CheckoutRef:    p.GatewayCheckoutRef,
		MerchantRef:    p.GatewayMerchantRef,
		Status:         string(p.Status),
		TransactionRef: p.TransactionRef,
		ResultDetails:  p.ResultDetails,
		ReviewReason:   p.ReviewReason,
		ReviewedBy:     p.ReviewedBy,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		CompletedAt:    p.CompletedAt,
		ApprovedAt:     p.ApprovedAt,
		RejectedAt:     p.RejectedAt,
	}
}

func toPaymentResponses(payments []*domain.PaymentAttempt) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	return out
}
