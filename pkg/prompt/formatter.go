package prompt

import (
	"fmt"
	"strconv"
	"strings"
)

// Device describes one exposed entity the way the model sees it.
// Attributes hold pre-formatted human-readable tokens.
type Device struct {
	EntityID   string
	Name       string
	Area       string
	State      string
	Attributes []string
}

// DefaultExposedAttributes are the attribute families included in
// snapshots when the configuration does not narrow them down.
var DefaultExposedAttributes = []string{
	"brightness", "rgb_color", "temperature", "current_temperature",
	"target_temperature", "humidity", "fan_mode", "hvac_mode",
	"hvac_action", "preset_mode", "media_title", "media_artist",
	"volume_level",
}

// FormatAttributes converts a raw attribute bag into the short token
// list used in device snapshots. Only the families listed in expose are
// considered; unknown attribute values are skipped.
func FormatAttributes(domain string, attrs map[string]any, expose []string) []string {
	enabled := make(map[string]bool, len(expose))
	for _, e := range expose {
		enabled[e] = true
	}

	var out []string

	if domain == "light" && enabled["brightness"] {
		if b, ok := asFloat(attrs["brightness"]); ok {
			out = append(out, fmt.Sprintf("%d%%", int(b*100/255)))
		}
	}
	if domain == "light" && enabled["rgb_color"] {
		if r, g, b, ok := asRGB(attrs["rgb_color"]); ok {
			out = append(out, ClosestColor(r, g, b))
		}
	}
	if enabled["temperature"] {
		if v, ok := asFloat(attrs["temperature"]); ok {
			out = append(out, formatNumber(v)+"°")
		}
	}
	if enabled["current_temperature"] {
		if v, ok := asFloat(attrs["current_temperature"]); ok {
			out = append(out, "current:"+formatNumber(v)+"°")
		}
	}
	if enabled["target_temperature"] {
		if v, ok := asFloat(attrs["target_temperature"]); ok {
			out = append(out, "target:"+formatNumber(v)+"°")
		}
	}
	if enabled["humidity"] {
		if v, ok := asFloat(attrs["humidity"]); ok {
			out = append(out, formatNumber(v)+"%RH")
		}
	}
	if enabled["fan_mode"] {
		if v := asString(attrs["fan_mode"]); v != "" {
			out = append(out, "fan:"+v)
		}
	}
	if enabled["hvac_mode"] {
		if v := asString(attrs["hvac_mode"]); v != "" {
			out = append(out, "hvac:"+v)
		}
	}
	if enabled["hvac_action"] {
		if v := asString(attrs["hvac_action"]); v != "" {
			out = append(out, "action:"+v)
		}
	}
	if enabled["preset_mode"] {
		if v := asString(attrs["preset_mode"]); v != "" {
			out = append(out, "preset:"+v)
		}
	}
	if enabled["media_title"] {
		if v := asString(attrs["media_title"]); v != "" {
			out = append(out, "playing:"+v)
		}
	}
	if enabled["media_artist"] {
		if v := asString(attrs["media_artist"]); v != "" {
			out = append(out, "artist:"+v)
		}
	}
	if enabled["volume_level"] {
		if v, ok := asFloat(attrs["volume_level"]); ok {
			out = append(out, fmt.Sprintf("vol:%d%%", int(v*100)))
		}
	}

	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asRGB(v any) (r, g, b int, ok bool) {
	parts, okSlice := v.([]any)
	if !okSlice {
		if ints, okInts := v.([]int); okInts && len(ints) >= 3 {
			return ints[0], ints[1], ints[2], true
		}
		return 0, 0, 0, false
	}
	if len(parts) < 3 {
		return 0, 0, 0, false
	}
	vals := make([]int, 3)
	for i := 0; i < 3; i++ {
		f, okF := asFloat(parts[i])
		if !okF {
			return 0, 0, 0, false
		}
		vals[i] = int(f)
	}
	return vals[0], vals[1], vals[2], true
}
