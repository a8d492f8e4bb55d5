package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fortuna/gridiron/internal/odds"
)

func extractString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

func fallbackString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func extractArray(m map[string]interface{}, key string) []interface{} {
	if v, ok := m[key]; ok {
		if arrVal, ok := v.([]interface{}); ok {
			return arrVal
		}
	}
	return []interface{}{}
}

// parsePrice reads an American price. A null value is unset without error;
// values that cannot be legal American odds are unset with an error.
func parsePrice(v interface{}) (odds.Price, error) {
	var price int
	switch val := v.(type) {
	case nil:
		return odds.Price{}, nil
	case float64:
		if val != math.Trunc(val) {
			return odds.Price{}, fmt.Errorf("%w: fractional price %v", odds.ErrMalformedRecord, val)
		}
		if math.Abs(val) > odds.MaxAmerican {
			return odds.Price{}, fmt.Errorf("%w: price %v outside American range", odds.ErrMalformedRecord, val)
		}
		price = int(val)
	case int:
		price = val
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			return odds.Price{}, fmt.Errorf("%w: price %q", odds.ErrMalformedRecord, val.String())
		}
		price = int(i)
	case string:
		return odds.ParseAmerican(val)
	default:
		return odds.Price{}, fmt.Errorf("%w: price of type %T", odds.ErrMalformedRecord, v)
	}

	if !odds.ValidAmerican(price) {
		return odds.Price{}, fmt.Errorf("%w: price %d outside American range", odds.ErrMalformedRecord, price)
	}
	return odds.NewPrice(price), nil
}

func parsePoint(v interface{}) (odds.Point, error) {
	switch val := v.(type) {
	case nil:
		return odds.Point{}, nil
	case float64:
		return odds.PointFromFloat(val), nil
	case int:
		return odds.NewPoint(decimal.NewFromInt(int64(val))), nil
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return odds.Point{}, fmt.Errorf("%w: point %q", odds.ErrMalformedRecord, val.String())
		}
		return odds.NewPoint(d), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return odds.Point{}, fmt.Errorf("%w: point %q", odds.ErrMalformedRecord, val)
		}
		return odds.NewPoint(d), nil
	}
	return odds.Point{}, fmt.Errorf("%w: point of type %T", odds.ErrMalformedRecord, v)
}
