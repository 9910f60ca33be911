package table

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatValue renders a stored value the way it compares for equality
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	}
	return fmt.Sprint(v)
}

// Number returns the numeric value of v. Strings are parsed.
func Number(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case []byte:
		return Number(string(x))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Negate flips the sign of a numeric value, keeping its Go type and, for
// strings, its textual form.
func Negate(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case float64:
		return -x, true
	case float32:
		return -x, true
	case int64:
		return -x, true
	case int:
		return -x, true
	case int32:
		return -x, true
	case []byte:
		return Negate(string(x))
	case string:
		if _, ok := Number(x); !ok {
			return v, false
		}
		s := strings.TrimSpace(x)
		switch {
		case strings.HasPrefix(s, "-"):
			return s[1:], true
		case strings.HasPrefix(s, "+"):
			return "-" + s[1:], true
		}
		return "-" + s, true
	}
	return v, false
}
