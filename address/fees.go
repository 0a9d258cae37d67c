package address

import (
	"github.com/shopspring/decimal"

	"github.com/myxmaster/zeus/constants"
)

var (
	oneThousand = decimal.NewFromInt(1000)
	oneHundred  = decimal.NewFromInt(100)
)

// CalculateFeeMsat maps a payment amount to the service fee using the
// tiered rule table. Limits are expressed in sats, so the amount is
// converted before comparison. Returns the fixed default of 100 sats
// when no rule matches or the table is empty.
func CalculateFeeMsat(amountMsat uint64, rules []FeeRule) uint64 {
	amountSats := decimal.NewFromUint64(amountMsat).Div(oneThousand)

	for _, rule := range rules {
		var match bool
		switch rule.LimitQualifier {
		case LimitQualifierLt:
			match = amountSats.LessThan(rule.LimitAmount)
		case LimitQualifierLte:
			match = amountSats.LessThanOrEqual(rule.LimitAmount)
		case LimitQualifierGt:
			match = amountSats.GreaterThan(rule.LimitAmount)
		case LimitQualifierGte:
			match = amountSats.GreaterThanOrEqual(rule.LimitAmount)
		}
		if !match {
			continue
		}

		switch rule.FeeQualifier {
		case FeeQualifierFixedSats:
			return uint64(rule.Fee.Mul(oneThousand).IntPart())
		case FeeQualifierPercentage:
			return uint64(decimal.NewFromUint64(amountMsat).Mul(rule.Fee).Div(oneHundred).IntPart())
		}
	}

	return constants.DEFAULT_FEE_MSAT
}
