package testhelpers

import (
	"testing"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// NewAttempt returns a valid pending attempt for userID that has not been stored.
func NewAttempt(t *testing.T, userID string, coins int64) *domain.PaymentAttempt {
	t.Helper()
	attempt, err := domain.NewPaymentAttempt(userID, userID+"@example.com", "Test User", "254712345678", 100, coins, "pkg-6000", "6000 coins + 50 bonus")
	require.NoError(t, err)
	return attempt
}

// CheckoutRef returns a fresh gateway-style checkout reference.
func CheckoutRef() string {
	return "ws_CO_" + uuid.NewString()
}

// DefaultCallback returns a successful push-result callback for checkoutRef.
func DefaultCallback(checkoutRef string) domain.STKCallback {
	return domain.STKCallback{
		MerchantRef: "29115-34620561-1",
		CheckoutRef: checkoutRef,
		ResultCode:  "0",
		ResultDesc:  "The service request is processed successfully.",
		Metadata: map[string]any{
			"Amount":             float64(100),
			"MpesaReceiptNumber": "NLJ7RT61SV",
			"PhoneNumber":        float64(254712345678),
		},
	}
}
