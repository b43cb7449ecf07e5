package referral

import "github.com/shopspring/decimal"

// BonusRate is the referral bonus as a fraction of the approved payment
// amount. Single source of truth: settlement code must never hardcode the
// rate.
var BonusRate = decimal.NewFromFloat(0.10)

// CalculateBonus returns the referral bonus for an approved payment,
// rounded to cents.
func CalculateBonus(paymentAmount decimal.Decimal) decimal.Decimal {
	return paymentAmount.Mul(BonusRate).Round(2)
}
