package utils

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatBigInt переводит целое значение в базовых единицах в десятичное число с учётом decimals.
// Пример: amount=1234500000000000000, decimals=18 => 1.2345
func FormatBigInt(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}
