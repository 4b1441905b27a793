package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/patrickmn/go-cache"

	"github.com/bedrockhome/agent/pkg/errorsx"
)

// wsEnvelope is the framing of the Home Assistant websocket API.
type wsEnvelope struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Event   json.RawMessage `json:"event,omitempty"`
	Error   *wsError        `json:"error,omitempty"`

	AccessToken string `json:"access_token,omitempty"`
	EventType   string `json:"event_type,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type stateChangedEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		EntityID string       `json:"entity_id"`
		NewState *EntityState `json:"new_state"`
	} `json:"data"`
}

// WSClient keeps a live view of entity states through the Home
// Assistant websocket API. After Connect it authenticates, loads the
// full state set and subscribes to state_changed events; the internal
// cache then tracks the live state without further REST polling.
type WSClient struct {
	url    string
	token  string
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	nextID  int
	pending map[int]chan wsEnvelope
	closed  bool

	states *cache.Cache
	done   chan struct{}
}

func NewWSClient(url, token string, logger *slog.Logger) *WSClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSClient{
		url:     url,
		token:   token,
		logger:  logger,
		pending: make(map[int]chan wsEnvelope),
		states:  cache.New(cache.NoExpiration, 10*time.Minute),
		done:    make(chan struct{}),
	}
}

// Connect dials the websocket, runs the auth handshake, primes the
// state cache and subscribes to state changes.
func (c *WSClient) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errorsx.Wrap(fmt.Errorf("dial %s: %w", c.url, err), errorsx.ReasonHostConnect)
	}

	if err := c.authenticate(conn); err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	go c.readLoop()

	if err := c.primeStates(ctx); err != nil {
		c.Close()
		return err
	}
	if _, err := c.call(ctx, map[string]any{
		"type":       "subscribe_events",
		"event_type": "state_changed",
	}); err != nil {
		c.Close()
		return err
	}
	c.logger.Info("ws_connected", "url", c.url, "entities", c.states.ItemCount())
	return nil
}

func (c *WSClient) authenticate(conn *websocket.Conn) error {
	var hello wsEnvelope
	if err := conn.ReadJSON(&hello); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonHostConnect)
	}
	if hello.Type != "auth_required" {
		return errorsx.Wrap(fmt.Errorf("unexpected greeting %q", hello.Type), errorsx.ReasonHostConnect)
	}
	if err := conn.WriteJSON(wsEnvelope{Type: "auth", AccessToken: c.token}); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonHostSend)
	}
	var result wsEnvelope
	if err := conn.ReadJSON(&result); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonHostConnect)
	}
	if result.Type != "auth_ok" {
		return errorsx.Wrap(fmt.Errorf("auth rejected: %s", result.Type), errorsx.ReasonAccessDenied)
	}
	return nil
}

func (c *WSClient) primeStates(ctx context.Context) error {
	result, err := c.call(ctx, map[string]any{"type": "get_states"})
	if err != nil {
		return err
	}
	var states []EntityState
	if err := json.Unmarshal(result, &states); err != nil {
		return errorsx.Wrap(fmt.Errorf("decode states: %w", err), errorsx.ReasonMalformedResponse)
	}
	for _, s := range states {
		c.states.Set(s.EntityID, s, cache.NoExpiration)
	}
	return nil
}

// EntityAreas fetches the entity-to-area-name mapping from the entity
// and area registries.
func (c *WSClient) EntityAreas(ctx context.Context) (map[string]string, error) {
	areasRaw, err := c.call(ctx, map[string]any{"type": "config/area_registry/list"})
	if err != nil {
		return nil, err
	}
	var areas []struct {
		AreaID string `json:"area_id"`
		Name   string `json:"name"`
	}
	if err := json.Unmarshal(areasRaw, &areas); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonMalformedResponse)
	}
	areaNames := make(map[string]string, len(areas))
	for _, a := range areas {
		areaNames[a.AreaID] = a.Name
	}

	entitiesRaw, err := c.call(ctx, map[string]any{"type": "config/entity_registry/list"})
	if err != nil {
		return nil, err
	}
	var entities []struct {
		EntityID string `json:"entity_id"`
		AreaID   string `json:"area_id"`
	}
	if err := json.Unmarshal(entitiesRaw, &entities); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonMalformedResponse)
	}
	out := make(map[string]string, len(entities))
	for _, e := range entities {
		if e.AreaID != "" {
			out[e.EntityID] = areaNames[e.AreaID]
		}
	}
	return out, nil
}

// States returns the cached entity states.
func (c *WSClient) States(ctx context.Context) ([]EntityState, error) {
	items := c.states.Items()
	out := make([]EntityState, 0, len(items))
	for _, item := range items {
		if s, ok := item.Object.(EntityState); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// call sends one command and waits for its matching result frame.
func (c *WSClient) call(ctx context.Context, cmd map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.conn == nil || c.closed {
		c.mu.Unlock()
		return nil, errorsx.Wrap(fmt.Errorf("websocket not connected"), errorsx.ReasonHostConnect)
	}
	c.nextID++
	id := c.nextID
	cmd["id"] = id
	reply := make(chan wsEnvelope, 1)
	c.pending[id] = reply
	err := c.conn.WriteJSON(cmd)
	c.mu.Unlock()
	if err != nil {
		c.dropPending(id)
		return nil, errorsx.Wrap(err, errorsx.ReasonHostSend)
	}

	select {
	case <-ctx.Done():
		c.dropPending(id)
		return nil, errorsx.Wrap(ctx.Err(), errorsx.ReasonHostConnect)
	case <-c.done:
		return nil, errorsx.Wrap(fmt.Errorf("websocket closed"), errorsx.ReasonHostConnect)
	case env := <-reply:
		if env.Success != nil && !*env.Success {
			msg := "command failed"
			if env.Error != nil {
				msg = env.Error.Message
			}
			return nil, errorsx.Wrap(fmt.Errorf("%s", msg), errorsx.ReasonHostSend)
		}
		return env.Result, nil
	}
}

func (c *WSClient) dropPending(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *WSClient) readLoop() {
	defer close(c.done)
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		var env wsEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Warn("ws_read_error", "error", err)
			}
			return
		}
		switch env.Type {
		case "result":
			c.mu.Lock()
			reply, ok := c.pending[env.ID]
			delete(c.pending, env.ID)
			c.mu.Unlock()
			if ok {
				reply <- env
			}
		case "event":
			c.handleEvent(env.Event)
		}
	}
}

func (c *WSClient) handleEvent(raw json.RawMessage) {
	var ev stateChangedEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.EventType != "state_changed" {
		return
	}
	if ev.Data.NewState == nil {
		c.states.Delete(ev.Data.EntityID)
		return
	}
	c.states.Set(ev.Data.EntityID, *ev.Data.NewState, cache.NoExpiration)
	c.logger.Debug("state_changed", "entity_id", ev.Data.EntityID, "state", ev.Data.NewState.State)
}

func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
