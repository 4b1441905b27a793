package homeassistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/bedrockhome/agent/pkg/errorsx"
	"github.com/bedrockhome/agent/pkg/llm"
)

// ServiceToolName is the single tool exposed to the model.
const ServiceToolName = "HassCallService"

// AllowedServices are the Home Assistant services the model may call.
var AllowedServices = []string{
	"turn_on", "turn_off", "toggle", "press",
	"increase_speed", "decrease_speed",
	"open_cover", "close_cover", "stop_cover",
	"lock", "unlock", "start", "stop",
	"return_to_base", "pause", "cancel", "add_item",
	"set_temperature", "set_humidity",
	"set_fan_mode", "set_hvac_mode", "set_preset_mode",
}

// AllowedDomains are the entity domains the model may control.
var AllowedDomains = []string{
	"light", "switch", "cover", "lock", "climate",
	"fan", "vacuum", "media_player", "button",
}

// allowedArguments are the service-data keys forwarded to a call.
var allowedArguments = []string{
	"brightness", "rgb_color", "temperature",
	"humidity", "fan_mode", "hvac_mode", "preset_mode",
}

// ServiceCaller invokes a Home Assistant service. Client satisfies it.
type ServiceCaller interface {
	CallService(ctx context.Context, domain, service string, data map[string]any) error
}

// ServiceTool exposes device control as a model tool. Requests outside
// the allowed service and domain sets are rejected before they reach
// Home Assistant.
type ServiceTool struct {
	caller   ServiceCaller
	services map[string]bool
	domains  map[string]bool
	args     map[string]bool
}

func NewServiceTool(caller ServiceCaller) *ServiceTool {
	toSet := func(items []string) map[string]bool {
		m := make(map[string]bool, len(items))
		for _, it := range items {
			m[it] = true
		}
		return m
	}
	return &ServiceTool{
		caller:   caller,
		services: toSet(AllowedServices),
		domains:  toSet(AllowedDomains),
		args:     toSet(allowedArguments),
	}
}

func (t *ServiceTool) Tools() []llm.Tool {
	return []llm.Tool{{
		Name:        ServiceToolName,
		Description: "Use this tool to call Home Assistant services to control devices.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"service": map[string]any{
					"type":        "string",
					"description": "Service name to call",
					"enum":        AllowedServices,
				},
				"target_device": map[string]any{
					"type":        "string",
					"description": "Entity ID of the target device",
				},
				"brightness": map[string]any{
					"type":        "integer",
					"description": "Brightness level (0-255)",
				},
				"rgb_color": map[string]any{
					"type":        "array",
					"description": "RGB color values [R, G, B]",
				},
				"temperature": map[string]any{
					"type":        "number",
					"description": "Temperature to set",
				},
				"humidity": map[string]any{
					"type":        "number",
					"description": "Humidity level to set",
				},
				"fan_mode": map[string]any{
					"type":        "string",
					"description": "Fan mode to set",
				},
				"hvac_mode": map[string]any{
					"type":        "string",
					"description": "HVAC mode to set",
				},
				"preset_mode": map[string]any{
					"type":        "string",
					"description": "Preset mode to set",
				},
			},
			"required": []string{"service", "target_device"},
		},
	}}
}

func (t *ServiceTool) HandleTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	if name != ServiceToolName {
		return nil, rejectCall("unknown tool %q", name)
	}
	service, _ := args["service"].(string)
	if !t.services[service] {
		return nil, rejectCall("service %q is not allowed", service)
	}
	entityID, _ := args["target_device"].(string)
	domain, _, found := strings.Cut(entityID, ".")
	if !found || domain == "" {
		return nil, rejectCall("invalid entity id %q", entityID)
	}
	if !t.domains[domain] {
		return nil, rejectCall("domain %q is not allowed", domain)
	}

	data := map[string]any{"entity_id": entityID}
	for key, value := range args {
		if t.args[key] {
			data[key] = value
		}
	}
	if err := t.caller.CallService(ctx, domain, service, data); err != nil {
		return nil, err
	}
	return map[string]any{
		"success":   true,
		"entity_id": entityID,
		"service":   service,
	}, nil
}

// rejectCall marks a tool call refused by validation, before it reaches
// Home Assistant.
func rejectCall(format string, args ...any) error {
	return errorsx.Wrap(fmt.Errorf(format, args...), errorsx.ReasonToolExecute)
}

var _ llm.ToolRegistry = (*ServiceTool)(nil)
