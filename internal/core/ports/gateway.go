package ports

import (
	"context"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
)

// GatewayPort is the boundary to the external push-payment gateway.
// Every failure is returned as a *domain.GatewayError.
type GatewayPort interface {
	InitiatePush(ctx context.Context, req domain.PushRequest) (*domain.PushResponse, error)
	QueryStatus(ctx context.Context, checkoutRef string) (*domain.StatusResult, error)
}
