package domain

import (
	"errors"
	"fmt"
)

// PushRequest is a normalized push-payment request. Phone is canonical and Amount is whole units.
type PushRequest struct {
	Phone       string
	Amount      int64
	Reference   string
	Description string
}

// PushResponse carries the references the gateway assigns to an accepted push.
type PushResponse struct {
	CheckoutRef     string `json:"checkoutRef"`
	MerchantRef     string `json:"merchantRef"`
	ResponseCode    string `json:"responseCode,omitempty"`
	CustomerMessage string `json:"customerMessage,omitempty"`
}

// StatusResult is the gateway's answer to a status query. ResultCode is empty while
// the gateway has no conclusive outcome yet.
type StatusResult struct {
	ResultCode string         `json:"resultCode"`
	ResultDesc string         `json:"resultDesc"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Raw        map[string]any `json:"raw,omitempty"`
}

// GatewayError is the typed failure every gateway call is converted into.
type GatewayError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway error [%s]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("gateway error [%s]: %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ErrGatewayUnavailable marks a failed access token acquisition.
var ErrGatewayUnavailable = errors.New("gateway unavailable")

func IsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}

// Outcome classifies a gateway result code against the state machine.
type Outcome int

const (
	OutcomeInconclusive Outcome = iota
	OutcomeSuccess
	OutcomeCancelled
	OutcomeFailed
)

// inconclusiveCodes are result codes the gateway uses while a push is still being processed.
var inconclusiveCodes = map[string]bool{
	"":     true,
	"4999": true,
}

// ClassifyResultCode maps a gateway result code to an outcome.
func ClassifyResultCode(code string) Outcome {
	switch {
	case inconclusiveCodes[code]:
		return OutcomeInconclusive
	case code == ResultCodeSuccess:
		return OutcomeSuccess
	case code == ResultCodeCancelled:
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}

// TargetStatus is the status a conclusive outcome moves a pending attempt to.
func (o Outcome) TargetStatus() (PaymentStatus, bool) {
	switch o {
	case OutcomeSuccess:
		return StatusCompleted, true
	case OutcomeCancelled:
		return StatusCancelled, true
	case OutcomeFailed:
		return StatusFailed, true
	}
	return "", false
}

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	}
	return "inconclusive"
}
