package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
)

const (
	processingErrorCode = "500.001.1001"
	codeInProgress      = "IN_PROGRESS"

	// tokenRefreshMargin renews a cached token before the gateway expires it.
	tokenRefreshMargin = time.Minute
	defaultTokenTTL    = 3599 * time.Second
)

// accessToken returns a cached token or joins the single in-flight refresh.
// A caller stops waiting when its own ctx is done; the refresh carries on for
// the others.
func (c *HTTPGatewayClient) accessToken(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}

	ch := c.tokenFlight.DoChan("token", func() (any, error) {
		return c.refreshToken(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &domain.GatewayError{
			Code:    domain.ErrCodeToken,
			Message: "gave up waiting for an access token",
			Err:     fmt.Errorf("%w: %w", domain.ErrGatewayUnavailable, ctx.Err()),
		}
	}
}

func (c *HTTPGatewayClient) cachedToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, true
	}
	return "", false
}

// refreshToken fetches a new token, retrying with a linear delay
// (1x, 2x, ... TokenRetryDelay) between attempts.
func (c *HTTPGatewayClient) refreshToken(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.TokenAttempts; attempt++ {
		token, ttl, err := c.fetchToken(ctx)
		if err == nil {
			c.mu.Lock()
			c.token = token
			c.tokenExpiry = c.now().Add(ttl - tokenRefreshMargin)
			c.mu.Unlock()
			return token, nil
		}
		lastErr = err

		c.logger.Warn("access token fetch failed",
			"attempt", attempt,
			"max_attempts", c.cfg.TokenAttempts,
			"error", err,
		)

		if attempt == c.cfg.TokenAttempts {
			break
		}
		if err := c.sleep(ctx, time.Duration(attempt)*c.cfg.TokenRetryDelay); err != nil {
			lastErr = err
			break
		}
	}

	return "", &domain.GatewayError{
		Code:    domain.ErrCodeToken,
		Message: fmt.Sprintf("could not obtain access token after %d attempts", c.cfg.TokenAttempts),
		Err:     fmt.Errorf("%w: %w", domain.ErrGatewayUnavailable, lastErr),
	}
}

func (c *HTTPGatewayClient) fetchToken(ctx context.Context) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", 0, err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)
	setNoCache(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", 0, fmt.Errorf("error decoding token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", 0, fmt.Errorf("token response carried no access token")
	}

	ttl := defaultTokenTTL
	if secs, err := strconv.Atoi(tr.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	if ttl <= tokenRefreshMargin {
		ttl = tokenRefreshMargin + time.Second
	}
	return tr.AccessToken, ttl, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
