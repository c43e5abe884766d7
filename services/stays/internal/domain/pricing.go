package domain

import (
	"github.com/shopspring/decimal"
)

// Pricing is the fee schedule applied to every booking.
type Pricing struct {
	ServiceFeeRate decimal.Decimal
	CleaningFee    decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		ServiceFeeRate: decimal.RequireFromString("0.10"),
		CleaningFee:    decimal.RequireFromString("50.00"),
	}
}

type Quote struct {
	Nights       int             `json:"nights"`
	NightlyPrice decimal.Decimal `json:"nightly_price"`
	BaseAmount   decimal.Decimal `json:"base_amount"`
	ServiceFee   decimal.Decimal `json:"service_fee"`
	CleaningFee  decimal.Decimal `json:"cleaning_fee"`
	Total        decimal.Decimal `json:"total_amount"`
}

// Quote prices a stay. Amounts are rounded half away from zero to cents.
func (p Pricing) Quote(nightly decimal.Decimal, stay Stay) (Quote, error) {
	if err := stay.Validate(); err != nil {
		return Quote{}, err
	}
	nights := stay.Nights()
	base := nightly.Mul(decimal.NewFromInt(int64(nights))).Round(2)
	fee := base.Mul(p.ServiceFeeRate).Round(2)
	cleaning := p.CleaningFee.Round(2)
	return Quote{
		Nights:       nights,
		NightlyPrice: nightly.Round(2),
		BaseAmount:   base,
		ServiceFee:   fee,
		CleaningFee:  cleaning,
		Total:        base.Add(fee).Add(cleaning),
	}, nil
}

// Apply copies the quote's amounts onto b.
func (q Quote) Apply(b *Booking) {
	b.NightlyPrice = q.NightlyPrice
	b.BaseAmount = q.BaseAmount
	b.ServiceFee = q.ServiceFee
	b.CleaningFee = q.CleaningFee
	b.TotalAmount = q.Total
}
