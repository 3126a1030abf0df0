package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// EtherDecimals is the decimal scale of ETH and of the Ponzi token.
const EtherDecimals = 18

// ErrInvalidAmount is returned by ParseUnits for malformed decimal strings.
var ErrInvalidAmount = errors.New("invalid amount")

// FormatUnits renders raw smallest-unit amounts as an exact decimal string.
// Trailing fractional zeros are trimmed but one fractional digit is kept,
// so 2.5e18 wei is "2.5" and 1e18 wei is "1.0".
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil {
		return ""
	}
	if decimals <= 0 {
		return raw.String() + ".0"
	}

	neg := raw.Sign() < 0
	digits := new(big.Int).Abs(raw).String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}

	whole := digits[:len(digits)-decimals]
	frac := strings.TrimRight(digits[len(digits)-decimals:], "0")
	if frac == "" {
		frac = "0"
	}

	s := whole + "." + frac
	if neg {
		s = "-" + s
	}
	return s
}

// ParseUnits converts a human decimal string into smallest units. It rejects
// empty input, exponents, stray characters and more fractional digits than
// decimals allows. A leading '-' is accepted; callers decide about signs.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if hasDot && strings.Contains(frac, ".") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !allDigits(whole) || !allDigits(frac) {
		return nil, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > decimals {
		return nil, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, decimals)
	}

	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", decimals-len(frac)), "0")
	n := new(big.Int)
	if digits != "" {
		if _, ok := n.SetString(digits, 10); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}

	if neg {
		n.Neg(n)
	}
	return n, nil
}

// WeiToETH converts a wei amount to an ETH decimal string.
func WeiToETH(wei *big.Int) string { return FormatUnits(wei, EtherDecimals) }

// ETHToWei parses an ETH decimal string into wei.
func ETHToWei(eth string) (*big.Int, error) { return ParseUnits(eth, EtherDecimals) }

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
