package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatValue stringifies one command argument for the text framing.
func FormatValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// FormatValues joins values with the ';' field separator.
func FormatValues(values []any) (string, error) {
	parts := make([]string, 0, len(values))
	for i, v := range values {
		s, err := FormatValue(v)
		if err != nil {
			return "", fmt.Errorf("value[%d]: %w", i, err)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ";"), nil
}
