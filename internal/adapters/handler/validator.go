package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	_ "github.com/DanielPopoola/coinpay-gateway/internal/docs"
	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/swaggo/swag"
)

// OpenAPIValidator checks requests against the registered API document before
// they reach a handler. Requests for routes the document does not describe pass
// through untouched.
type OpenAPIValidator struct {
	router routers.Router
	logger *slog.Logger
}

func NewOpenAPIValidator(logger *slog.Logger) (*OpenAPIValidator, error) {
	raw, err := swag.ReadDoc()
	if err != nil {
		return nil, fmt.Errorf("read api document: %w", err)
	}

	var doc2 openapi2.T
	if err := json.Unmarshal([]byte(raw), &doc2); err != nil {
		return nil, fmt.Errorf("decode api document: %w", err)
	}
	doc3, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, fmt.Errorf("convert api document: %w", err)
	}

	router, err := legacy.NewRouter(doc3)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}
	return &OpenAPIValidator{router: router, logger: logger}, nil
}

func (v *OpenAPIValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := v.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			v.logger.Debug("request rejected by api document",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
			)
			respondWithError(w, domain.NewValidationError(validationMessage(err)))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return err.Error()
	}
	switch {
	case reqErr.Parameter != nil:
		return fmt.Sprintf("invalid %s parameter %q", reqErr.Parameter.In, reqErr.Parameter.Name)
	case reqErr.RequestBody != nil && reqErr.Err != nil:
		return "request body does not match schema: " + reqErr.Err.Error()
	default:
		return reqErr.Error()
	}
}
