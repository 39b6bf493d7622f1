// Package gateway implements the push-payment gateway client (M-Pesa Daraja STK push).
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/config"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	pushPath  = "/mpesa/stkpush/v1/processrequest"
	queryPath = "/mpesa/stkpushquery/v1/query"

	timestampLayout = "20060102150405"
	maxReferenceLen = 12
	maxDescLen      = 13
)

type HTTPGatewayClient struct {
	cfg        config.GatewayConfig
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	tokenFlight singleflight.Group
}

func NewGatewayClient(cfg config.GatewayConfig, logger *slog.Logger) *HTTPGatewayClient {
	if cfg.TokenAttempts < 1 {
		cfg.TokenAttempts = 1
	}
	if cfg.TransactionType == "" {
		cfg.TransactionType = "CustomerPayBillOnline"
	}
	return &HTTPGatewayClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

var _ ports.GatewayPort = (*HTTPGatewayClient)(nil)

func (c *HTTPGatewayClient) configured() bool {
	return c.cfg.BaseURL != "" && c.cfg.ConsumerKey != "" && c.cfg.ConsumerSecret != "" &&
		c.cfg.ShortCode != "" && c.cfg.Passkey != "" && c.cfg.CallbackURL != ""
}

// InitiatePush sends an STK push prompt to the payer's phone. The push itself is
// never retried: a push that silently succeeded would prompt the payer twice.
func (c *HTTPGatewayClient) InitiatePush(ctx context.Context, req domain.PushRequest) (*domain.PushResponse, error) {
	amount, err := domain.FloorAmount(decimal.NewFromInt(req.Amount))
	if err != nil {
		return nil, err
	}
	phone, err := domain.NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	if !c.configured() {
		return nil, &domain.GatewayError{Code: domain.ErrCodeConfig, Message: "gateway credentials are not configured"}
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampLayout)
	body := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   c.cfg.TransactionType,
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  truncate(req.Reference, maxReferenceLen),
		TransactionDesc:   truncate(req.Description, maxDescLen),
	}

	resp, err := sendRequest[stkPushRequest, stkPushResponse](ctx, c, http.MethodPost, pushPath, &body, token)
	if err != nil {
		if gwErr, ok := domain.IsGatewayError(err); ok && gwErr.Code == domain.ErrCodeServer {
			gwErr.Code = domain.ErrCodeSTKFailed
		}
		return nil, err
	}

	if resp.ResponseCode != "0" || resp.CheckoutRequestID == "" {
		return nil, &domain.GatewayError{
			Code:    domain.ErrCodeSTKFailed,
			Message: fmt.Sprintf("push rejected: %s (code %s)", resp.ResponseDescription, resp.ResponseCode),
		}
	}

	c.logger.Info("stk push accepted",
		"checkout_ref", resp.CheckoutRequestID,
		"merchant_ref", resp.MerchantRequestID,
		"amount", amount,
	)

	return &domain.PushResponse{
		CheckoutRef:     resp.CheckoutRequestID,
		MerchantRef:     resp.MerchantRequestID,
		ResponseCode:    resp.ResponseCode,
		CustomerMessage: resp.CustomerMessage,
	}, nil
}

// QueryStatus asks the gateway for the outcome of a push. While the gateway is
// still processing, the result has an empty ResultCode.
func (c *HTTPGatewayClient) QueryStatus(ctx context.Context, checkoutRef string) (*domain.StatusResult, error) {
	if checkoutRef == "" {
		return nil, &domain.GatewayError{Code: domain.ErrCodeValidation, Message: "checkout reference is required"}
	}
	if !c.configured() {
		return nil, &domain.GatewayError{Code: domain.ErrCodeConfig, Message: "gateway credentials are not configured"}
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampLayout)
	body := stkQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRef,
	}

	resp, err := sendRequest[stkQueryRequest, stkQueryResponse](ctx, c, http.MethodPost, queryPath, &body, token)
	if err != nil {
		// "The transaction is being processed" comes back as an error body.
		if gwErr, ok := domain.IsGatewayError(err); ok && gwErr.Code == codeInProgress {
			return &domain.StatusResult{
				ResultDesc: gwErr.Message,
				Raw:        map[string]any{"errorCode": processingErrorCode, "errorMessage": gwErr.Message},
			}, nil
		}
		return nil, err
	}

	return &domain.StatusResult{
		ResultCode: resp.ResultCode,
		ResultDesc: resp.ResultDesc,
		Metadata: map[string]any{
			"MerchantRequestID": resp.MerchantRequestID,
			"CheckoutRequestID": resp.CheckoutRequestID,
		},
		Raw: map[string]any{
			"ResponseCode":        resp.ResponseCode,
			"ResponseDescription": resp.ResponseDescription,
			"MerchantRequestID":   resp.MerchantRequestID,
			"CheckoutRequestID":   resp.CheckoutRequestID,
			"ResultCode":          resp.ResultCode,
			"ResultDesc":          resp.ResultDesc,
		},
	}, nil
}

func (c *HTTPGatewayClient) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
}

func sendRequest[Req any, Resp any](ctx context.Context, c *HTTPGatewayClient, method, path string, reqBody *Req, token string) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, &domain.GatewayError{Code: domain.ErrCodeServer, Message: "error marshalling request", Err: err}
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return nil, &domain.GatewayError{Code: domain.ErrCodeServer, Message: "error creating request", Err: err}
	}

	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	setNoCache(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.GatewayError{Code: domain.ErrCodeNetwork, Message: "gateway unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.GatewayError{Code: domain.ErrCodeNetwork, Message: "error reading response", StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeErrorResponse(resp.StatusCode, body)
	}

	var gwResp Resp
	if err := json.Unmarshal(body, &gwResp); err != nil {
		return nil, &domain.GatewayError{Code: domain.ErrCodeParse, Message: "error decoding response", StatusCode: resp.StatusCode, Err: err}
	}

	return &gwResp, nil
}

func decodeErrorResponse(status int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.ErrorCode == "" {
		return &domain.GatewayError{
			Code:       domain.ErrCodeServer,
			Message:    fmt.Sprintf("gateway returned status %d", status),
			StatusCode: status,
		}
	}
	code := domain.ErrCodeServer
	if errResp.ErrorCode == processingErrorCode {
		code = codeInProgress
	}
	return &domain.GatewayError{
		Code:       code,
		Message:    errResp.ErrorMessage,
		StatusCode: status,
		Err:        errors.New(errResp.ErrorCode),
	}
}

// setNoCache disables response caching on every outbound call.
func setNoCache(req *http.Request) {
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
