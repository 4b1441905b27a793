package homeassistant

import (
	"context"
	"testing"
)

type stubSource struct {
	states []EntityState
	err    error
}

func (s *stubSource) States(ctx context.Context) ([]EntityState, error) {
	return s.states, s.err
}

func TestSnapshotFiltersDomains(t *testing.T) {
	source := &stubSource{states: []EntityState{
		{EntityID: "light.kitchen", State: "on", Attributes: map[string]any{
			"friendly_name": "Kitchen Light", "brightness": float64(255),
		}},
		{EntityID: "sensor.outside_temp", State: "21.5"},
		{EntityID: "switch.fan", State: "off"},
	}}
	reg := NewRegistry(source, RegistryConfig{})
	reg.SetAreas(map[string]string{"light.kitchen": "Kitchen"})

	devices, err := reg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("devices = %+v", devices)
	}
	// sorted by area then entity id; switch.fan has no area
	first := devices[0]
	if first.EntityID != "switch.fan" && first.EntityID != "light.kitchen" {
		t.Errorf("unexpected first device %+v", first)
	}
	for _, d := range devices {
		if d.EntityID == "light.kitchen" {
			if d.Name != "Kitchen Light" || d.Area != "Kitchen" {
				t.Errorf("device = %+v", d)
			}
			if len(d.Attributes) == 0 || d.Attributes[0] != "100%" {
				t.Errorf("attributes = %v", d.Attributes)
			}
		}
	}
}

func TestSnapshotCustomDomains(t *testing.T) {
	source := &stubSource{states: []EntityState{
		{EntityID: "sensor.outside_temp", State: "21.5"},
		{EntityID: "light.kitchen", State: "on"},
	}}
	reg := NewRegistry(source, RegistryConfig{ExposedDomains: []string{"sensor"}})

	devices, err := reg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(devices) != 1 || devices[0].EntityID != "sensor.outside_temp" {
		t.Errorf("devices = %+v", devices)
	}
}

func TestSnapshotStableOrder(t *testing.T) {
	source := &stubSource{states: []EntityState{
		{EntityID: "light.b", State: "on"},
		{EntityID: "light.a", State: "off"},
	}}
	reg := NewRegistry(source, RegistryConfig{})

	devices, err := reg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if devices[0].EntityID != "light.a" || devices[1].EntityID != "light.b" {
		t.Errorf("order = %+v", devices)
	}
}
