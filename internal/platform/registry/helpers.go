package registry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type-safe option extraction helpers for plugin Setup.
// Values may come from YAML (typed), JSON (float64) or the --opt flag
// (always strings), so every helper also accepts a parseable string.

// GetStringConfig extracts a string value with a default fallback.
// Returns the default value if the map is nil, the key is missing, the value
// is not a string, or the string is empty.
func GetStringConfig(custom map[string]interface{}, key, defaultValue string) string {
	if custom == nil {
		return defaultValue
	}
	if val, ok := custom[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// GetIntConfig extracts an int value with a default fallback.
// Handles int, int64, float64 and numeric strings.
func GetIntConfig(custom map[string]interface{}, key string, defaultValue int) int {
	if custom == nil {
		return defaultValue
	}
	switch val := custom[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n
		}
	}
	return defaultValue
}

// GetBoolConfig extracts a bool value with a default fallback.
// Handles bool and strings accepted by strconv.ParseBool.
func GetBoolConfig(custom map[string]interface{}, key string, defaultValue bool) bool {
	if custom == nil {
		return defaultValue
	}
	switch val := custom[key].(type) {
	case bool:
		return val
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetDurationConfig extracts a time.Duration with a default fallback.
// Accepts time.Duration, a duration string ("5s"), or a plain number of
// seconds (int, float64 or numeric string), which is how timeouts are
// written in option maps.
func GetDurationConfig(custom map[string]interface{}, key string, defaultValue time.Duration) time.Duration {
	if custom == nil {
		return defaultValue
	}
	switch val := custom[key].(type) {
	case time.Duration:
		return val
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case float64:
		return time.Duration(val * float64(time.Second))
	case string:
		s := strings.TrimSpace(val)
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(n * float64(time.Second))
		}
	}
	return defaultValue
}

// GetSliceConfig extracts a []string with a default fallback.
// Accepts []string, []interface{} of strings, or a comma-separated string.
func GetSliceConfig(custom map[string]interface{}, key string, defaultValue []string) []string {
	if custom == nil {
		return defaultValue
	}
	switch val := custom[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			str, ok := item.(string)
			if !ok {
				return defaultValue
			}
			out = append(out, str)
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// GetFloat64Config extracts a float64 with a default fallback.
func GetFloat64Config(custom map[string]interface{}, key string, defaultValue float64) float64 {
	if custom == nil {
		return defaultValue
	}
	switch val := custom[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// ValidateRequiredString validates that a required string field is not empty.
func ValidateRequiredString(fieldName, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required and cannot be empty", fieldName)
	}
	return nil
}

// ValidatePositiveInt validates that an int field is positive (> 0).
func ValidatePositiveInt(fieldName string, value int) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive, got %d", fieldName, value)
	}
	return nil
}

// ValidateNonNegativeInt validates that an int field is non-negative (>= 0).
func ValidateNonNegativeInt(fieldName string, value int) error {
	if value < 0 {
		return fmt.Errorf("%s cannot be negative, got %d", fieldName, value)
	}
	return nil
}

// ValidateIntRange validates that an int field is within [min, max].
func ValidateIntRange(fieldName string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d, got %d", fieldName, min, max, value)
	}
	return nil
}

// ValidatePositiveDuration validates that a duration is positive.
func ValidatePositiveDuration(fieldName string, value time.Duration) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive, got %v", fieldName, value)
	}
	return nil
}

// ValidateEnum validates that a string value is one of the allowed options.
func ValidateEnum(fieldName, value string, allowed []string) error {
	for _, option := range allowed {
		if value == option {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %s", fieldName, allowed, value)
}
