package domain

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var canonicalPhone = regexp.MustCompile(`^254[17][0-9]{8}$`)

// NormalizePhone converts a subscriber number to the canonical 2547XXXXXXXX / 2541XXXXXXXX form.
// Accepted inputs: 07.., 01.., 7.., 1.., 2547.., +2547.. with optional spaces or dashes.
func NormalizePhone(raw string) (string, error) {
	phone := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	phone = strings.TrimPrefix(phone, "+")

	switch {
	case strings.HasPrefix(phone, "254"):
	case strings.HasPrefix(phone, "0") && len(phone) == 10:
		phone = "254" + phone[1:]
	case len(phone) == 9:
		phone = "254" + phone
	}

	if !canonicalPhone.MatchString(phone) {
		return "", NewInvalidPhoneError(raw)
	}
	return phone, nil
}

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// FloorAmount floors amount to whole currency units and rejects anything below
// 1 or beyond int64.
func FloorAmount(amount decimal.Decimal) (int64, error) {
	units := amount.Floor()
	if units.LessThan(decimal.NewFromInt(1)) {
		return 0, NewInvalidAmountError(units.IntPart())
	}
	if units.GreaterThan(maxAmount) {
		return 0, NewAmountOutOfRangeError(units.String())
	}
	return units.IntPart(), nil
}
