package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func successObservation(source string) service.Observation {
	return service.Observation{
		ResultCode: "0",
		ResultDesc: "The service request is processed successfully.",
		Metadata:   map[string]any{"MpesaReceiptNumber": "NLJ7RT61SV", "Amount": "100"},
		Source:     source,
	}
}

func TestSettlement_WebhookAndPollerRaceCompletesOnce(t *testing.T) {
	f := newFixture(t)
	attempt := f.seedAttempt(t, 6050, domain.StatusPending)

	const racers = 16
	var applied atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		source := service.SourceWebhook
		if i%2 == 1 {
			source = service.SourcePoller
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := f.settlement.Apply(context.Background(), attempt.ID, successObservation(source))
			if assert.NoError(t, err) && ok {
				applied.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, applied.Load())

	got := f.reload(t, attempt.ID)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.TransactionRef)
	assert.Equal(t, "NLJ7RT61SV", *got.TransactionRef)
	assert.Equal(t, []string{ports.EventPaymentCompleted}, f.events.types())
}

func TestSettlement_AutoApproveRaceCreditsOnce(t *testing.T) {
	f := newFixture(t, withAutoApprove())
	attempt := f.seedAttempt(t, 6050, domain.StatusPending)

	var wg sync.WaitGroup
	for _, source := range []string{service.SourceWebhook, service.SourcePoller, service.SourceWebhook} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.settlement.Apply(context.Background(), attempt.ID, successObservation(source))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got := f.reload(t, attempt.ID)
	assert.Equal(t, domain.StatusApproved, got.Status)
	assert.Equal(t, int64(6050), f.balance(t, attempt.UserID))
}

func TestSettlement_OutcomeMapping(t *testing.T) {
	tests := []struct {
		name       string
		resultCode string
		applied    bool
		want       domain.PaymentStatus
	}{
		{"success", "0", true, domain.StatusCompleted},
		{"cancelled by payer", "1032", true, domain.StatusCancelled},
		{"insufficient funds", "1", true, domain.StatusFailed},
		{"timeout on handset", "1037", true, domain.StatusFailed},
		{"still processing", "", false, domain.StatusPending},
		{"inconclusive code", "4999", false, domain.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			attempt := f.seedAttempt(t, 100, domain.StatusPending)

			applied, err := f.settlement.Apply(context.Background(), attempt.ID, service.Observation{
				ResultCode: tt.resultCode,
				ResultDesc: "desc",
				Source:     service.SourceWebhook,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.applied, applied)
			got := f.reload(t, attempt.ID)
			assert.Equal(t, tt.want, got.Status)
			if tt.applied {
				var details domain.ResultDetails
				require.NoError(t, json.Unmarshal(got.ResultDetails, &details))
				assert.Equal(t, tt.resultCode, details.ResultCode)
				assert.Equal(t, service.SourceWebhook, details.Source)
			}
		})
	}
}

func TestSettlement_LateSignalNeverReversesTerminalState(t *testing.T) {
	f := newFixture(t)
	attempt := f.seedAttempt(t, 100, domain.StatusCancelled)

	applied, err := f.settlement.Apply(context.Background(), attempt.ID, successObservation(service.SourceWebhook))

	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, domain.StatusCancelled, f.reload(t, attempt.ID).Status)
}

func TestSettlement_MarkPendingReviewOnlyFromPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.seedAttempt(t, 100, domain.StatusPending)
	completed := f.seedAttempt(t, 100, domain.StatusCompleted)

	ok, err := f.settlement.MarkPendingReview(ctx, pending.ID, "timed out", service.SourcePoller)
	require.NoError(t, err)
	assert.True(t, ok)
	got := f.reload(t, pending.ID)
	assert.Equal(t, domain.StatusPendingReview, got.Status)
	require.NotNil(t, got.ReviewReason)
	assert.Equal(t, "timed out", *got.ReviewReason)

	ok, err = f.settlement.MarkPendingReview(ctx, completed.ID, "timed out", service.SourcePoller)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.StatusCompleted, f.reload(t, completed.ID).Status)
}
