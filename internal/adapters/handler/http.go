package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/service"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/swaggo/swag"
)

type InitiateService interface {
	Initiate(ctx context.Context, cmd service.InitiateCommand) (*service.InitiateResult, error)
}

type QueryService interface {
	GetPaymentByID(ctx context.Context, id uuid.UUID) (*domain.PaymentAttempt, error)
	ReviewQueue(ctx context.Context, filter domain.PaymentFilter) ([]*domain.PaymentAttempt, error)
}

type StatusQuerier interface {
	QueryStatus(ctx context.Context, checkoutRef string) (*domain.StatusResult, error)
}

type PollController interface {
	Start(checkoutRef string) (bool, error)
	Cancel(checkoutRef string) bool
}

type CallbackReceiver interface {
	Receive(ctx context.Context, cb domain.STKCallback, payload []byte) (*domain.GatewayCallback, error)
}

// CallbackDispatcher hands a stored callback to background processing.
type CallbackDispatcher interface {
	Submit(cb *domain.GatewayCallback) bool
}

type ApprovalService interface {
	Approve(ctx context.Context, id uuid.UUID, actor string) (*service.ApproveResult, error)
	Reject(ctx context.Context, id uuid.UUID, reason, actor string) (*domain.PaymentAttempt, bool, error)
}

type LedgerService interface {
	Balance(ctx context.Context, userID string) (*domain.LedgerAccount, error)
	Entries(ctx context.Context, userID string, limit, offset int) ([]*domain.LedgerEntry, error)
	Adjust(ctx context.Context, userID string, delta int64, note, actor string) (*domain.LedgerAccount, *domain.LedgerEntry, error)
	Spend(ctx context.Context, userID string, coins int64, note string) (*domain.LedgerAccount, *domain.LedgerEntry, error)
}

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services groups everything the HTTP layer calls into.
type Services struct {
	Initiate  InitiateService
	Query     QueryService
	Gateway   StatusQuerier
	Poller    PollController
	Callbacks CallbackReceiver
	Dispatch  CallbackDispatcher
	Approvals ApprovalService
	Ledger    LedgerService
	Health    HealthChecker
}

// Options carries the HTTP-layer settings that are not services.
type Options struct {
	JWTSecret  string
	AckTimeout time.Duration
}

type PaymentHandler struct {
	svc        Services
	jwtSecret  []byte
	ackTimeout time.Duration
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewPaymentHandler(svc Services, opts Options, logger *slog.Logger) *PaymentHandler {
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = 5 * time.Second
	}
	return &PaymentHandler{
		svc:        svc,
		jwtSecret:  []byte(opts.JWTSecret),
		ackTimeout: opts.AckTimeout,
		validate:   validator.New(),
		logger:     logger,
	}
}

func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/payments/initiate", h.HandleInitiate)
	mux.HandleFunc("GET /api/v1/payments/status/{checkoutRef}", h.HandleGatewayStatus)
	mux.HandleFunc("GET /api/v1/payments/{paymentID}", h.HandleGetPayment)
	mux.HandleFunc("POST /api/v1/payments/{paymentID}/poll", h.HandleStartPolling)
	mux.HandleFunc("DELETE /api/v1/payments/{paymentID}/poll", h.HandleCancelPolling)
	mux.HandleFunc("POST /api/v1/callbacks/mpesa", h.HandleCallback)

	mux.Handle("GET /api/v1/admin/payments", h.RequireAdmin(http.HandlerFunc(h.HandleReviewQueue)))
	mux.Handle("POST /api/v1/admin/payments/{paymentID}/approve", h.RequireAdmin(http.HandlerFunc(h.HandleApprove)))
	mux.Handle("POST /api/v1/admin/payments/{paymentID}/reject", h.RequireAdmin(http.HandlerFunc(h.HandleReject)))
	mux.Handle("POST /api/v1/admin/users/{userID}/adjustments", h.RequireAdmin(http.HandlerFunc(h.HandleAdjust)))

	mux.HandleFunc("GET /api/v1/users/{userID}/balance", h.HandleBalance)
	mux.HandleFunc("GET /api/v1/users/{userID}/ledger", h.HandleLedgerEntries)
	mux.HandleFunc("POST /api/v1/users/{userID}/usage", h.HandleUsage)

	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /docs/doc.json", h.HandleDoc)
}

// HandleHealth reports liveness and store reachability.
// @Summary  Health check
// @Tags     ops
// @Produce  json
// @Success  200  {object}  APIResponse
// @Failure  503  {object}  APIResponse
// @Router   /healthz [get]
func (h *PaymentHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.svc.Health != nil {
		if err := h.svc.Health.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			respondWithJSON(w, http.StatusServiceUnavailable, &APIError{Code: "UNAVAILABLE", Message: "database unreachable"})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PaymentHandler) HandleDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		respondWithError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}
