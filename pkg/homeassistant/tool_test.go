package homeassistant

import (
	"context"
	"errors"
	"testing"

	"github.com/bedrockhome/agent/pkg/errorsx"
)

type captureCaller struct {
	domain  string
	service string
	data    map[string]any
	err     error
}

func (c *captureCaller) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	c.domain = domain
	c.service = service
	c.data = data
	return c.err
}

func TestHandleToolCallsService(t *testing.T) {
	caller := &captureCaller{}
	tool := NewServiceTool(caller)

	result, err := tool.HandleTool(context.Background(), ServiceToolName, map[string]any{
		"service":       "turn_on",
		"target_device": "light.kitchen",
		"brightness":    float64(200),
	})
	if err != nil {
		t.Fatalf("HandleTool: %v", err)
	}
	if caller.domain != "light" || caller.service != "turn_on" {
		t.Errorf("called %s/%s", caller.domain, caller.service)
	}
	if caller.data["entity_id"] != "light.kitchen" {
		t.Errorf("data = %v", caller.data)
	}
	if caller.data["brightness"] != float64(200) {
		t.Errorf("brightness not forwarded: %v", caller.data)
	}
	if result["success"] != true {
		t.Errorf("result = %v", result)
	}
}

func TestHandleToolFiltersArguments(t *testing.T) {
	caller := &captureCaller{}
	tool := NewServiceTool(caller)

	_, err := tool.HandleTool(context.Background(), ServiceToolName, map[string]any{
		"service":       "turn_on",
		"target_device": "light.kitchen",
		"evil_argument": "rm -rf",
	})
	if err != nil {
		t.Fatalf("HandleTool: %v", err)
	}
	if _, ok := caller.data["evil_argument"]; ok {
		t.Error("unknown argument must not be forwarded")
	}
}

func TestHandleToolRejections(t *testing.T) {
	cases := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"unknown tool", "HassTurnEverythingOff", map[string]any{}},
		{"disallowed service", ServiceToolName, map[string]any{
			"service": "delete", "target_device": "light.kitchen",
		}},
		{"disallowed domain", ServiceToolName, map[string]any{
			"service": "turn_on", "target_device": "alarm_control_panel.home",
		}},
		{"malformed entity id", ServiceToolName, map[string]any{
			"service": "turn_on", "target_device": "kitchen",
		}},
		{"missing target", ServiceToolName, map[string]any{
			"service": "turn_on",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			caller := &captureCaller{}
			tool := NewServiceTool(caller)
			_, err := tool.HandleTool(context.Background(), tc.tool, tc.args)
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !errorsx.HasReason(err, errorsx.ReasonToolExecute) {
				t.Errorf("reason = %q", errorsx.Reason(err))
			}
			if caller.service != "" {
				t.Error("rejected call must not reach the caller")
			}
		})
	}
}

func TestHandleToolCallerError(t *testing.T) {
	caller := &captureCaller{err: errors.New("unreachable")}
	tool := NewServiceTool(caller)
	_, err := tool.HandleTool(context.Background(), ServiceToolName, map[string]any{
		"service": "turn_off", "target_device": "switch.fan",
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestHandleToolCallerErrorKeepsReason(t *testing.T) {
	caller := &captureCaller{err: errorsx.Wrap(errors.New("502"), errorsx.ReasonHostSend)}
	tool := NewServiceTool(caller)
	_, err := tool.HandleTool(context.Background(), ServiceToolName, map[string]any{
		"service": "turn_off", "target_device": "switch.fan",
	})
	if !errorsx.HasReason(err, errorsx.ReasonHostSend) {
		t.Errorf("reason = %q", errorsx.Reason(err))
	}
}

func TestToolsSchema(t *testing.T) {
	tool := NewServiceTool(&captureCaller{})
	tools := tool.Tools()
	if len(tools) != 1 || tools[0].Name != ServiceToolName {
		t.Fatalf("tools = %+v", tools)
	}
	props, ok := tools[0].Schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema = %v", tools[0].Schema)
	}
	for _, key := range []string{"service", "target_device", "brightness", "hvac_mode"} {
		if _, ok := props[key]; !ok {
			t.Errorf("missing property %q", key)
		}
	}
}
