package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
)

// ParseCallback decodes an STK push result callback. Numeric metadata values are
// kept as json.Number so receipts and phone numbers are not rounded.
func ParseCallback(payload []byte) (domain.STKCallback, error) {
	var env callbackEnvelope
	if err := decodeUseNumber(payload, &env); err != nil {
		return domain.STKCallback{}, &domain.GatewayError{Code: domain.ErrCodeParse, Message: "malformed callback payload", Err: err}
	}

	stk := env.Body.STKCallback
	if stk.CheckoutRequestID == "" {
		return domain.STKCallback{}, &domain.GatewayError{Code: domain.ErrCodeParse, Message: "callback has no CheckoutRequestID"}
	}

	cb := domain.STKCallback{
		MerchantRef: stk.MerchantRequestID,
		CheckoutRef: stk.CheckoutRequestID,
		ResultCode:  resultCodeString(stk.ResultCode),
		ResultDesc:  stk.ResultDesc,
		Metadata:    map[string]any{},
	}
	if stk.CallbackMetadata != nil {
		for _, item := range stk.CallbackMetadata.Item {
			cb.Metadata[item.Name] = metadataValue(item.Value)
		}
	}
	return cb, nil
}

func resultCodeString(v any) string {
	switch rc := v.(type) {
	case nil:
		return ""
	case string:
		return rc
	case json.Number:
		return rc.String()
	case float64:
		return strconv.FormatInt(int64(rc), 10)
	default:
		return fmt.Sprint(rc)
	}
}

// metadataValue renders numbers as strings; receipts must be strings for storage.
func metadataValue(v any) any {
	if n, ok := v.(json.Number); ok {
		return n.String()
	}
	return v
}

func decodeUseNumber(payload []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	return dec.Decode(v)
}
