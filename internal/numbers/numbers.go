package numbers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ExtractInt converts common scalar types into int64.
func ExtractInt(val any) (int64, error) {
	switch v := val.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		return int64(f), err
	case string:
		if v == "" {
			return 0, fmt.Errorf("empty string")
		}
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported int type %T", val)
	}
}

// ExtractDecimal converts provider scalars (usually numeric strings) into a decimal.
func ExtractDecimal(val any) (decimal.Decimal, error) {
	switch v := val.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return decimal.Zero, fmt.Errorf("empty string")
		}
		return decimal.NewFromString(v)
	default:
		return decimal.Zero, fmt.Errorf("unsupported decimal type %T", val)
	}
}

// DecimalOrZero is ExtractDecimal with unparsable input mapped to zero.
func DecimalOrZero(val any) decimal.Decimal {
	d, err := ExtractDecimal(val)
	if err != nil {
		return decimal.Zero
	}
	return d
}
