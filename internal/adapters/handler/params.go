package handler

import (
	"net/http"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

func paymentIDParam(r *http.Request) (openapi_types.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "paymentID", r.PathValue("paymentID"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath})
	if err != nil {
		return id, domain.NewValidationError("invalid paymentID: " + err.Error())
	}
	return id, nil
}

func userIDParam(r *http.Request) (string, error) {
	var userID string
	err := runtime.BindStyledParameterWithOptions("simple", "userID", r.PathValue("userID"), &userID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath})
	if err != nil {
		return "", domain.NewValidationError("invalid userID: " + err.Error())
	}
	if userID == "" {
		return "", domain.NewMissingRequiredFieldError("userID")
	}
	return userID, nil
}

// pageParams reads limit and offset. Absent values come back as zero and the
// services apply their defaults.
func pageParams(r *http.Request) (limit, offset int, err error) {
	var l, o *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &l); err != nil {
		return 0, 0, domain.NewValidationError("invalid limit: " + err.Error())
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &o); err != nil {
		return 0, 0, domain.NewValidationError("invalid offset: " + err.Error())
	}

	if l != nil {
		limit = *l
	}
	if o != nil {
		offset = *o
	}
	return limit, offset, nil
}
