package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CallbackStatus tracks a received gateway callback through deferred processing.
type CallbackStatus string

const (
	CallbackReceived  CallbackStatus = "received"
	CallbackProcessed CallbackStatus = "processed"
	CallbackDiscarded CallbackStatus = "discarded"
	CallbackDead      CallbackStatus = "dead"
)

// GatewayCallback is the durable inbox row written before the webhook is acknowledged.
type GatewayCallback struct {
	ID          uuid.UUID
	CheckoutRef string
	MerchantRef string
	ResultCode  string
	ResultDesc  string
	Metadata    map[string]any
	Payload     json.RawMessage

	Status       CallbackStatus
	AttemptCount int
	NextRetryAt  *time.Time
	LastError    *string
	Note         *string

	ReceivedAt  time.Time
	ProcessedAt *time.Time
}

// STKCallback is the parsed body of a gateway push-result callback.
type STKCallback struct {
	MerchantRef string
	CheckoutRef string
	ResultCode  string
	ResultDesc  string
	Metadata    map[string]any
}

// Receipt returns the external receipt identifier carried by a successful callback.
func (c STKCallback) Receipt() string {
	return ReceiptFrom(c.Metadata)
}

// ReceiptFrom extracts the gateway receipt number from result metadata.
func ReceiptFrom(metadata map[string]any) string {
	if s, ok := metadata["MpesaReceiptNumber"].(string); ok {
		return s
	}
	return ""
}

func NewGatewayCallback(cb STKCallback, payload json.RawMessage) *GatewayCallback {
	return &GatewayCallback{
		ID:          uuid.New(),
		CheckoutRef: cb.CheckoutRef,
		MerchantRef: cb.MerchantRef,
		ResultCode:  cb.ResultCode,
		ResultDesc:  cb.ResultDesc,
		Metadata:    cb.Metadata,
		Payload:     payload,
		Status:      CallbackReceived,
		ReceivedAt:  time.Now().UTC(),
	}
}
