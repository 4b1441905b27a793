package configutil

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DecodeSettings decodes a free-form settings map into a typed struct.
// Keys match case/underscore/hyphen insensitively.
func DecodeSettings(input map[string]any, out any) error {
	if len(input) == 0 {
		return nil
	}
	cfg := &mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		},
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// RequireString ensures a value is present for a required config field.
func RequireString(value, path string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", path)
	}
	return nil
}

// IntInRange validates an inclusive integer range.
func IntInRange(value int, min, max int, path string) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d, got %d", path, min, max, value)
	}
	return nil
}

// FloatInRange validates an inclusive float range.
func FloatInRange(value, min, max float64, path string) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %g and %g, got %g", path, min, max, value)
	}
	return nil
}

// OneOf validates membership in an allowed value set.
func OneOf(value string, allowed []string, path string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of [%s], got %q", path, strings.Join(allowed, ", "), value)
}

func normalizeKey(value string) string {
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}
