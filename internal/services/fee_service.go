package services

import (
	"github.com/shopspring/decimal"
)

var (
	feeRate  = decimal.NewFromFloat(0.029) // 2.9%
	feeFixed = decimal.NewFromFloat(0.30)  // $0.30 per charge
)

// EstimateFee returns the expected processing fee for a gross amount,
// rounded half-up to cents. This is a display estimate only; the value
// the gateway reports at confirmation time is authoritative.
func EstimateFee(gross decimal.Decimal) decimal.Decimal {
	return gross.Mul(feeRate).Add(feeFixed).Round(2)
}

// NetAmount returns the amount the organization keeps after the
// estimated processing fee.
func NetAmount(gross decimal.Decimal) decimal.Decimal {
	return gross.Sub(EstimateFee(gross))
}
