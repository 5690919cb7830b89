package service

import (
	"balance_tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
)

var (
	hundred      = decimal.NewFromInt(100)
	minusHundred = decimal.NewFromInt(-100)
)

// BalanceUpdate compares one address between the previous and the current ledger.
// Old or New is nil when the token is absent from that side.
// Percentages are invalid (Valid == false) when their denominator is zero.
type BalanceUpdate struct {
	Old *entity.TokenInfo
	New *entity.TokenInfo

	ValueChange      decimal.Decimal
	ValueChangePct   decimal.NullDecimal
	BalanceChange    decimal.Decimal
	BalanceChangePct decimal.NullDecimal
	PriceChangePct   decimal.NullDecimal
}

func pct(v decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(v)
}

// ratioPct returns 100*num/den, or an invalid value when den is zero.
func ratioPct(num, den decimal.Decimal) decimal.NullDecimal {
	if den.IsZero() {
		return decimal.NullDecimal{}
	}
	return pct(hundred.Mul(num).Div(den))
}

// NewBalanceUpdate computes the deltas between old and cur.
func NewBalanceUpdate(old, cur *entity.TokenInfo) BalanceUpdate {
	u := BalanceUpdate{Old: old, New: cur}

	switch {
	case old == nil && cur == nil:
		return u

	case old == nil:
		u.ValueChange = cur.RealValue()
		u.ValueChangePct = pct(hundred)
		u.BalanceChange = cur.Balance()
		u.BalanceChangePct = pct(hundred)
		u.PriceChangePct = pct(decimal.Zero)

	case cur == nil:
		u.ValueChange = old.RealValue().Neg()
		u.ValueChangePct = pct(minusHundred)
		u.BalanceChange = old.Balance().Neg()
		u.BalanceChangePct = pct(minusHundred)
		u.PriceChangePct = pct(decimal.Zero)

	default:
		oldBalance, newBalance := old.Balance(), cur.Balance()
		u.BalanceChange = newBalance.Sub(oldBalance)
		u.BalanceChangePct = ratioPct(u.BalanceChange, oldBalance)

		switch {
		case old.Price.IsZero() && cur.Price.IsZero():
			u.ValueChange = decimal.Zero
			u.ValueChangePct = pct(hundred)
			u.PriceChangePct = pct(decimal.Zero)
		case old.Price.IsZero():
			// без старой цены нормировать не на что: изменение цены берётся в абсолютных долларах
			u.ValueChange = cur.RealValue()
			u.ValueChangePct = pct(hundred)
			u.PriceChangePct = pct(hundred.Mul(cur.Price.Sub(old.Price)))
		default:
			oldReal := old.RealValue()
			u.ValueChange = cur.RealValue().Sub(oldReal)
			u.ValueChangePct = ratioPct(u.ValueChange, oldReal)
			u.PriceChangePct = ratioPct(cur.Price.Sub(old.Price), old.Price)
		}
	}
	return u
}

// ComputeUpdates builds one update per address present in either ledger.
func ComputeUpdates(previous, current entity.Ledger) map[string]BalanceUpdate {
	updates := make(map[string]BalanceUpdate, len(current))
	for address, info := range current {
		updates[address] = NewBalanceUpdate(previous[address], info)
	}
	for address, info := range previous {
		if _, ok := current[address]; !ok {
			updates[address] = NewBalanceUpdate(info, nil)
		}
	}
	return updates
}
