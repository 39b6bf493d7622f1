package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

func defaultCommand() service.InitiateCommand {
	return service.InitiateCommand{
		UserID:      "user-1",
		UserEmail:   "user@example.com",
		UserName:    "Test User",
		Phone:       "0712 345 678",
		Amount:      decimal.RequireFromString("100.75"),
		Coins:       6050,
		PackageID:   "pkg-6000",
		PackageInfo: "6000 coins + 50 bonus",
	}
}

func acceptedPush() *domain.PushResponse {
	return &domain.PushResponse{
		CheckoutRef:     "ws_CO_191220191020363925",
		MerchantRef:     "29115-34620561-1",
		ResponseCode:    "0",
		CustomerMessage: "Success. Request accepted for processing",
	}
}

func TestInitiate_Success(t *testing.T) {
	f := newFixture(t)
	svc := service.NewInitiateService(f.payments, f.gateway, f.settlement, nil, nil, discardLogger())

	f.gateway.EXPECT().
		InitiatePush(mock.Anything, mock.MatchedBy(func(req domain.PushRequest) bool {
			return req.Phone == "254712345678" && req.Amount == 100
		})).
		Return(acceptedPush(), nil).
		Once()

	res, err := svc.Initiate(context.Background(), defaultCommand())

	require.NoError(t, err)
	assert.Equal(t, "ws_CO_191220191020363925", res.CheckoutRef)
	assert.Equal(t, "29115-34620561-1", res.MerchantRef)

	stored, err := f.payments.FindByCheckoutRef(context.Background(), res.CheckoutRef)
	require.NoError(t, err)
	assert.Equal(t, res.Payment.ID, stored.ID)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Equal(t, int64(100), stored.Amount)
	assert.Equal(t, int64(6050), stored.Coins)
	assert.Equal(t, "254712345678", stored.Phone)
}

func TestInitiate_InputErrorsNeverReachGateway(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*service.InitiateCommand)
		code   string
	}{
		{"bad phone", func(c *service.InitiateCommand) { c.Phone = "12345" }, domain.ErrCodeInvalidPhone},
		{"amount below one unit", func(c *service.InitiateCommand) { c.Amount = decimal.RequireFromString("0.99") }, domain.ErrCodeInvalidAmount},
		{"amount beyond int64", func(c *service.InitiateCommand) { c.Amount = decimal.RequireFromString("18446744073709551716") }, domain.ErrCodeInvalidAmount},
		{"no coins", func(c *service.InitiateCommand) { c.Coins = 0 }, domain.ErrCodeInvalidCoins},
		{"no user", func(c *service.InitiateCommand) { c.UserID = "" }, domain.ErrCodeMissingRequiredField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc := service.NewInitiateService(f.payments, f.gateway, f.settlement, nil, nil, discardLogger())
			cmd := defaultCommand()
			tt.mutate(&cmd)

			_, err := svc.Initiate(context.Background(), cmd)

			require.Error(t, err)
			assert.True(t, domain.IsErrorCode(err, tt.code), "got %v", err)
			list, err := f.payments.List(context.Background(), domain.PaymentFilter{})
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestInitiate_GatewayFailureMarksAttemptFailed(t *testing.T) {
	f := newFixture(t)
	svc := service.NewInitiateService(f.payments, f.gateway, f.settlement, nil, nil, discardLogger())

	f.gateway.EXPECT().InitiatePush(mock.Anything, mock.Anything).
		Return(nil, &domain.GatewayError{Code: domain.ErrCodeToken, Message: "no token", Err: domain.ErrGatewayUnavailable}).
		Once()

	_, err := svc.Initiate(context.Background(), defaultCommand())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	list, err := f.payments.List(context.Background(), domain.PaymentFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.StatusFailed, list[0].Status)
	assert.Nil(t, list[0].GatewayCheckoutRef)
	assert.Zero(t, f.balance(t, "user-1"))
}

func TestInitiate_RateLimited(t *testing.T) {
	f := newFixture(t)
	limiter := &stubLimiter{allow: false}
	svc := service.NewInitiateService(f.payments, f.gateway, f.settlement, nil, limiter, discardLogger())

	_, err := svc.Initiate(context.Background(), defaultCommand())

	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeRateLimited))
	assert.Equal(t, []string{"user-1"}, limiter.keys)
}

func TestInitiate_LimiterOutageFailsOpen(t *testing.T) {
	f := newFixture(t)
	limiter := &stubLimiter{err: errors.New("redis: connection refused")}
	svc := service.NewInitiateService(f.payments, f.gateway, f.settlement, nil, limiter, discardLogger())

	f.gateway.EXPECT().InitiatePush(mock.Anything, mock.Anything).Return(acceptedPush(), nil).Once()

	_, err := svc.Initiate(context.Background(), defaultCommand())

	require.NoError(t, err)
}

func TestInitiate_StartsPollSession(t *testing.T) {
	f := newFixture(t, withPoller(5*time.Millisecond, 24), withAutoApprove())
	svc := service.NewInitiateService(f.payments, f.gateway, f.settlement, f.poller, nil, discardLogger())

	f.gateway.EXPECT().InitiatePush(mock.Anything, mock.Anything).Return(acceptedPush(), nil).Once()
	f.gateway.EXPECT().QueryStatus(mock.Anything, "ws_CO_191220191020363925").
		Return(&domain.StatusResult{ResultCode: "0", Metadata: map[string]any{"MpesaReceiptNumber": "NLJ7RT61SV"}}, nil).
		Once()

	res, err := svc.Initiate(context.Background(), defaultCommand())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return f.reload(t, res.Payment.ID).Status == domain.StatusApproved
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(6050), f.balance(t, "user-1"))
}
