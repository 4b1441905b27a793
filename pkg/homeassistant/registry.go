package homeassistant

import (
	"context"
	"sort"

	"github.com/bedrockhome/agent/pkg/prompt"
)

// StatesSource yields the current entity states. Both Client and
// WSClient satisfy it.
type StatesSource interface {
	States(ctx context.Context) ([]EntityState, error)
}

// RegistryConfig narrows which entities and attributes end up in the
// device snapshot handed to the model.
type RegistryConfig struct {
	// ExposedDomains limits snapshots to these entity domains. Empty
	// means the controllable domains.
	ExposedDomains []string
	// ExtraAttributes extends the default attribute families.
	ExtraAttributes []string
}

// Registry builds device snapshots for the system prompt.
type Registry struct {
	source  StatesSource
	domains map[string]bool
	expose  []string
	areas   map[string]string
}

func NewRegistry(source StatesSource, cfg RegistryConfig) *Registry {
	domains := cfg.ExposedDomains
	if len(domains) == 0 {
		domains = AllowedDomains
	}
	domainSet := make(map[string]bool, len(domains))
	for _, d := range domains {
		domainSet[d] = true
	}
	expose := append([]string{}, prompt.DefaultExposedAttributes...)
	expose = append(expose, cfg.ExtraAttributes...)
	return &Registry{
		source:  source,
		domains: domainSet,
		expose:  expose,
		areas:   map[string]string{},
	}
}

// SetAreas installs the entity-to-area-name mapping, typically from
// WSClient.EntityAreas.
func (r *Registry) SetAreas(areas map[string]string) {
	if areas == nil {
		areas = map[string]string{}
	}
	r.areas = areas
}

// Snapshot captures the exposed entities as prompt devices, sorted by
// area name then entity id so prompts stay stable across calls.
func (r *Registry) Snapshot(ctx context.Context) ([]prompt.Device, error) {
	states, err := r.source.States(ctx)
	if err != nil {
		return nil, err
	}
	devices := make([]prompt.Device, 0, len(states))
	for _, s := range states {
		domain := s.Domain()
		if !r.domains[domain] {
			continue
		}
		devices = append(devices, prompt.Device{
			EntityID:   s.EntityID,
			Name:       s.FriendlyName(),
			Area:       r.areas[s.EntityID],
			State:      s.State,
			Attributes: prompt.FormatAttributes(domain, s.Attributes, r.expose),
		})
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Area != devices[j].Area {
			return devices[i].Area < devices[j].Area
		}
		return devices[i].EntityID < devices[j].EntityID
	})
	return devices, nil
}
