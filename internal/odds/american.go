package odds

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxAmerican bounds the magnitude of a believable American price. Anything
// larger is a feed error.
const MaxAmerican = 100000

// ValidAmerican reports whether p is a legal American odds price.
// Prices inside (-100, 100) never occur, 0 included.
func ValidAmerican(p int) bool {
	if p < -MaxAmerican || p > MaxAmerican {
		return false
	}
	return p <= -100 || p >= 100
}

// ImpliedProbability converts American odds to an implied win probability
// expressed as a percentage.
// -110 → 52.38, +150 → 40.00, ±100 → 50.00
func ImpliedProbability(american int) float64 {
	if american < 0 {
		a := float64(-american)
		return a / (a + 100) * 100
	}
	return 100 / (float64(american) + 100) * 100
}

// DecimalOdds is the total return per unit staked at a valid American
// price: +150 → 2.5, -200 → 1.5, ±100 → 2.
func DecimalOdds(american int) float64 {
	if american < 0 {
		return 1 + 100/float64(-american)
	}
	return 1 + float64(american)/100
}

var minusReplacer = strings.NewReplacer(
	"−", "-", // minus sign
	"–", "-", // en dash
	"‒", "-", // figure dash
	"+", "",
)

// ParseAmerican parses a displayed odds string such as "+150", "-110",
// "−110" (U+2212) or "EVEN". Empty or unparseable input is a malformed record.
func ParseAmerican(s string) (Price, error) {
	cleaned := strings.TrimSpace(minusReplacer.Replace(s))
	switch strings.ToUpper(cleaned) {
	case "":
		return Price{}, fmt.Errorf("%w: empty odds string", ErrMalformedRecord)
	case "EVEN", "EV", "EVS":
		return NewPrice(100), nil
	}

	v, err := strconv.Atoi(cleaned)
	if err != nil {
		return Price{}, fmt.Errorf("%w: odds %q: %v", ErrMalformedRecord, s, err)
	}
	if !ValidAmerican(v) {
		return Price{}, fmt.Errorf("%w: odds %d outside American range", ErrMalformedRecord, v)
	}
	return NewPrice(v), nil
}
