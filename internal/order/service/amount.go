package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/validation"
)

const (
	msgInvalidNumber = "A valid number is required."
	msgNegative      = "Ensure this value is greater than or equal to 0."
	maxAmountInput   = 1000
)

// parseAmount validates a numeric(10,2) value. At most one message is
// returned, in the order digits, decimal places, whole digits, sign.
func parseAmount(raw *string) (decimal.Decimal, string) {
	if raw == nil {
		return decimal.Zero, validation.MsgRequired
	}
	text := strings.TrimSpace(*raw)
	if text == "" || len(text) > maxAmountInput {
		return decimal.Zero, msgInvalidNumber
	}

	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, msgInvalidNumber
	}

	total, places := precision(amount)
	whole := total - places
	maxWhole := domain.AmountMaxDigits - domain.AmountDecimalPlaces
	switch {
	case total > domain.AmountMaxDigits:
		return decimal.Zero, fmt.Sprintf("Ensure that there are no more than %d digits in total.", domain.AmountMaxDigits)
	case places > domain.AmountDecimalPlaces:
		return decimal.Zero, fmt.Sprintf("Ensure that there are no more than %d decimal places.", domain.AmountDecimalPlaces)
	case whole > maxWhole:
		return decimal.Zero, fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", maxWhole)
	case amount.IsNegative():
		return decimal.Zero, msgNegative
	}

	return amount.Round(domain.AmountDecimalPlaces), ""
}

// precision counts significant digits the way the written value states
// them, so "12.50" has four digits and two decimal places.
func precision(d decimal.Decimal) (total, places int) {
	digits := len(strings.TrimPrefix(d.Coefficient().String(), "-"))
	exp := int(d.Exponent())

	switch {
	case exp >= 0:
		return digits + exp, 0
	case digits > -exp:
		return digits, -exp
	default:
		return -exp, -exp
	}
}
