package homeassistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bedrockhome/agent/pkg/errorsx"
)

func TestClientStates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/states" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		json.NewEncoder(w).Encode([]EntityState{
			{EntityID: "light.kitchen", State: "on"},
		})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Token: "secret"}, nil)
	states, err := c.States(context.Background())
	if err != nil {
		t.Fatalf("States: %v", err)
	}
	if len(states) != 1 || states[0].EntityID != "light.kitchen" {
		t.Errorf("states = %+v", states)
	}
}

func TestClientCallService(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Token: "secret"}, nil)
	err := c.CallService(context.Background(), "light", "turn_on", map[string]any{
		"entity_id": "light.kitchen",
	})
	if err != nil {
		t.Fatalf("CallService: %v", err)
	}
	if gotPath != "/api/services/light/turn_on" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["entity_id"] != "light.kitchen" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Token: "wrong"}, nil)
	err := c.CallService(context.Background(), "light", "turn_on", nil)
	if !errorsx.HasReason(err, errorsx.ReasonHostSend) {
		t.Errorf("reason = %q", errorsx.Reason(err))
	}
}

func TestClientConnectFailure(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1", Token: "x"}, nil)
	_, err := c.States(context.Background())
	if !errorsx.HasReason(err, errorsx.ReasonHostConnect) {
		t.Errorf("reason = %q", errorsx.Reason(err))
	}
}

func TestEntityStateHelpers(t *testing.T) {
	s := EntityState{EntityID: "climate.living_room", Attributes: map[string]any{
		"friendly_name": "Living Room Thermostat",
	}}
	if s.Domain() != "climate" {
		t.Errorf("domain = %q", s.Domain())
	}
	if s.FriendlyName() != "Living Room Thermostat" {
		t.Errorf("friendly name = %q", s.FriendlyName())
	}
	bare := EntityState{EntityID: "light.kitchen"}
	if bare.FriendlyName() != "light.kitchen" {
		t.Errorf("fallback friendly name = %q", bare.FriendlyName())
	}
}
