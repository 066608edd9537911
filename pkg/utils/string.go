package utils

import (
	"fmt"
	"strconv"
	"time"
)

var (
	errFailedToConvertStringToType = func(t any, err error) error { return fmt.Errorf("failed to convert string to type %T: %w", t, err) }
)

// FromString converts the textual form of an environment value into T. Only
// the kinds used by configuration overlays are supported.
func FromString[T any](str string) (T, error) {
	var empty T
	if str == "" {
		return empty, nil
	}

	switch any(empty).(type) {
	case string:
		val, _ := any(str).(T)
		return val, nil
	case bool:
		val, err := strconv.ParseBool(str)
		if err != nil {
			return empty, errFailedToConvertStringToType(empty, err)
		}

		typeVal, _ := any(val).(T)

		return typeVal, nil
	case int:
		val, err := strconv.ParseInt(str, 10, 0)
		if err != nil {
			return empty, errFailedToConvertStringToType(empty, err)
		}

		typeVal, _ := any(int(val)).(T)

		return typeVal, nil
	case time.Duration:
		val, err := time.ParseDuration(str)
		if err != nil {
			return empty, errFailedToConvertStringToType(empty, err)
		}

		typeVal, _ := any(val).(T)

		return typeVal, nil
	default:
		return empty, fmt.Errorf("unsupported type %T", empty)
	}
}
