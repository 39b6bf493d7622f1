package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/shopspring/decimal"
)

// InitiateCommand is a user's request to buy a coin package.
type InitiateCommand struct {
	UserID      string
	UserEmail   string
	UserName    string
	Phone       string
	Amount      decimal.Decimal
	Coins       int64
	PackageID   string
	PackageInfo string
	Reference   string
	Description string
}

type InitiateResult struct {
	Payment         *domain.PaymentAttempt
	CheckoutRef     string
	MerchantRef     string
	CustomerMessage string
}

type InitiateService struct {
	repo       ports.PaymentRepository
	gateway    ports.GatewayPort
	settlement *Settlement
	poller     *Poller
	limiter    ports.RateLimiter
	logger     *slog.Logger
}

func NewInitiateService(
	repo ports.PaymentRepository,
	gateway ports.GatewayPort,
	settlement *Settlement,
	poller *Poller,
	limiter ports.RateLimiter,
	logger *slog.Logger,
) *InitiateService {
	return &InitiateService{
		repo:       repo,
		gateway:    gateway,
		settlement: settlement,
		poller:     poller,
		limiter:    limiter,
		logger:     logger,
	}
}

// Initiate validates the request, records a pending attempt, sends the push and
// starts a poll session. Input errors never reach the gateway. A push the
// gateway does not accept leaves the attempt failed.
func (s *InitiateService) Initiate(ctx context.Context, cmd InitiateCommand) (*InitiateResult, error) {
	amount, err := domain.FloorAmount(cmd.Amount)
	if err != nil {
		return nil, err
	}
	phone, err := domain.NormalizePhone(cmd.Phone)
	if err != nil {
		return nil, err
	}
	payment, err := domain.NewPaymentAttempt(cmd.UserID, cmd.UserEmail, cmd.UserName, phone, amount, cmd.Coins, cmd.PackageID, cmd.PackageInfo)
	if err != nil {
		return nil, err
	}
	if err := s.allow(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	reference, description := cmd.Reference, cmd.Description
	if reference == "" {
		reference = fmt.Sprintf("Coins%d", cmd.Coins)
	}
	if description == "" {
		description = "Buy coins"
	}

	resp, err := s.gateway.InitiatePush(ctx, domain.PushRequest{
		Phone:       phone,
		Amount:      amount,
		Reference:   reference,
		Description: description,
	})
	if err != nil {
		s.logger.Warn("push not accepted",
			"payment_id", payment.ID,
			"error_code", domain.ErrorCode(err),
			"error", err,
		)
		if _, markErr := s.settlement.MarkFailed(context.WithoutCancel(ctx), payment.ID, domain.ErrorCode(err), PushFailureMessage(err), SourceInitiate); markErr != nil {
			s.logger.Error("failed to mark payment failed", "payment_id", payment.ID, "error", markErr)
		}
		return nil, err
	}

	if err := s.repo.AttachGatewayRefs(ctx, payment.ID, resp.CheckoutRef, resp.MerchantRef); err != nil {
		// The push is live; the sweeper will park the attempt for review.
		s.logger.Error("failed to attach gateway references",
			"payment_id", payment.ID,
			"checkout_ref", resp.CheckoutRef,
			"error", err,
		)
		return nil, err
	}
	payment.GatewayCheckoutRef = &resp.CheckoutRef
	payment.GatewayMerchantRef = &resp.MerchantRef

	if s.poller != nil {
		if _, err := s.poller.Start(resp.CheckoutRef); err != nil {
			s.logger.Warn("could not start poll session", "checkout_ref", resp.CheckoutRef, "error", err)
		}
	}

	s.logger.Info("payment initiated",
		"payment_id", payment.ID,
		"user_id", payment.UserID,
		"checkout_ref", resp.CheckoutRef,
		"amount", amount,
		"coins", payment.Coins,
	)

	return &InitiateResult{
		Payment:         payment,
		CheckoutRef:     resp.CheckoutRef,
		MerchantRef:     resp.MerchantRef,
		CustomerMessage: resp.CustomerMessage,
	}, nil
}

// allow fails open when the limiter itself is unavailable.
func (s *InitiateService) allow(ctx context.Context, userID string) error {
	if s.limiter == nil || userID == "" {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		s.logger.Warn("rate limiter unavailable", "user_id", userID, "error", err)
		return nil
	}
	if !ok {
		return domain.NewRateLimitedError(userID)
	}
	return nil
}

// PushFailureMessage is the user-facing text for a push the gateway did not accept.
func PushFailureMessage(err error) string {
	switch domain.ErrorCode(err) {
	case domain.ErrCodeToken, domain.ErrCodeNetwork:
		return "The payment service is temporarily unavailable. Please try again."
	case domain.ErrCodeConfig:
		return "Payments are not configured. Please contact support."
	case domain.ErrCodeSTKFailed:
		return "The payment request was declined. Please check your number and try again."
	case domain.ErrCodeParse:
		return "Unexpected response from the payment service. Please try again."
	default:
		return "Failed to initiate payment. Please try again."
	}
}
