package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the precision of both BNB and the sale token.
const Decimals = 18

var (
	// One is 10^18, the wei scale of a single whole token or BNB.
	One = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

	ErrEmptyAmount    = errors.New("empty amount")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrTooPrecise     = fmt.Errorf("too many fractional digits for %d decimals", Decimals)
)

var (
	thousand = decimal.NewFromInt(1_000)
	tenK     = decimal.NewFromInt(10_000)
	million  = decimal.NewFromInt(1_000_000)
)

// ParseEther converts a human amount such as "0.03" into wei.
func ParseEther(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, ErrEmptyAmount
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if d.IsNegative() {
		return nil, ErrNegativeAmount
	}
	shifted := d.Shift(Decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, ErrTooPrecise
	}
	return shifted.BigInt(), nil
}

// Ether returns wei as an exact decimal value.
func Ether(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -Decimals)
}

// FormatEther renders wei without trailing zeros ("0.03", "1", "0").
func FormatEther(wei *big.Int) string {
	return Ether(wei).String()
}

// FormatFixed renders wei with a fixed number of decimal places.
func FormatFixed(wei *big.Int, places int32) string {
	return Ether(wei).StringFixed(places)
}

// FormatCompact abbreviates large amounts: 1.23M above a million,
// 12.35K above ten thousand, two decimals otherwise.
func FormatCompact(wei *big.Int) string {
	v := Ether(wei)
	switch {
	case v.GreaterThanOrEqual(million):
		return v.Div(million).StringFixed(2) + "M"
	case v.GreaterThan(tenK):
		return v.Div(thousand).StringFixed(2) + "K"
	default:
		return v.StringFixed(2)
	}
}

// ShortAddress renders 0x1234...abcd.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// Percent renders a ratio already scaled to percent with two decimals.
func Percent(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}
