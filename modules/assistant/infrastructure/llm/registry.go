package llm

import (
	"slices"

	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
)

type Capability string

const (
	CapabilityText  Capability = "text"
	CapabilityImage Capability = "image"
	CapabilityAudio Capability = "audio"
)

// ModelDescriptor describes one model the platform can route to.
// ProviderAPIID is the vendor's exact API model string when it differs from
// the platform-internal ID.
type ModelDescriptor struct {
	ID            string
	DisplayName   string
	Provider      provider.Provider
	Capabilities  []Capability
	ProviderAPIID string
}

func (d ModelDescriptor) HasCapability(c Capability) bool {
	return slices.Contains(d.Capabilities, c)
}

// Registry is the static capability table: the single source of truth for
// which models exist, who serves them, and what request shapes they accept.
type Registry struct {
	models []ModelDescriptor
	index  map[string]int
}

func NewRegistry(models ...ModelDescriptor) *Registry {
	r := &Registry{
		models: models,
		index:  make(map[string]int, len(models)),
	}
	for i, m := range models {
		r.index[m.ID] = i
	}
	return r
}

// DefaultRegistry lists the models the platform ships with.
func DefaultRegistry() *Registry {
	return NewRegistry(
		ModelDescriptor{
			ID:           "gpt-4o",
			DisplayName:  "GPT-4o",
			Provider:     provider.OpenAI,
			Capabilities: []Capability{CapabilityText, CapabilityImage, CapabilityAudio},
		},
		ModelDescriptor{
			ID:           "gpt-4o-mini",
			DisplayName:  "GPT-4o mini",
			Provider:     provider.OpenAI,
			Capabilities: []Capability{CapabilityText, CapabilityImage},
		},
		ModelDescriptor{
			ID:           "gpt-4-turbo",
			DisplayName:  "GPT-4 Turbo",
			Provider:     provider.OpenAI,
			Capabilities: []Capability{CapabilityText, CapabilityImage},
		},
		ModelDescriptor{
			ID:           "gpt-3.5-turbo",
			DisplayName:  "GPT-3.5 Turbo",
			Provider:     provider.OpenAI,
			Capabilities: []Capability{CapabilityText},
		},
		ModelDescriptor{
			ID:            "claude-3-opus",
			DisplayName:   "Claude 3 Opus",
			Provider:      provider.Anthropic,
			Capabilities:  []Capability{CapabilityText, CapabilityImage},
			ProviderAPIID: "claude-3-opus-20240229",
		},
		ModelDescriptor{
			ID:            "claude-3-sonnet",
			DisplayName:   "Claude 3 Sonnet",
			Provider:      provider.Anthropic,
			Capabilities:  []Capability{CapabilityText, CapabilityImage},
			ProviderAPIID: "claude-3-sonnet-20240229",
		},
		ModelDescriptor{
			ID:            "claude-3-haiku",
			DisplayName:   "Claude 3 Haiku",
			Provider:      provider.Anthropic,
			Capabilities:  []Capability{CapabilityText, CapabilityImage},
			ProviderAPIID: "claude-3-haiku-20240307",
		},
		ModelDescriptor{
			ID:            "claude-3-5-sonnet",
			DisplayName:   "Claude 3.5 Sonnet",
			Provider:      provider.Anthropic,
			Capabilities:  []Capability{CapabilityText, CapabilityImage},
			ProviderAPIID: "claude-3-5-sonnet-20240620",
		},
		ModelDescriptor{
			ID:            "claude-2.1",
			DisplayName:   "Claude 2.1",
			Provider:      provider.Anthropic,
			Capabilities:  []Capability{CapabilityText},
			ProviderAPIID: "claude-2.1",
		},
	)
}

// ListFilter narrows List results. Zero values match everything; multiple
// capabilities all have to be present.
type ListFilter struct {
	Provider     provider.Provider
	Capabilities []Capability
}

func (r *Registry) List(filter ListFilter) []ModelDescriptor {
	out := make([]ModelDescriptor, 0, len(r.models))
	for _, m := range r.models {
		if filter.Provider != "" && m.Provider != filter.Provider {
			continue
		}
		matches := true
		for _, c := range filter.Capabilities {
			if !m.HasCapability(c) {
				matches = false
				break
			}
		}
		if matches {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) Get(modelID string) (ModelDescriptor, bool) {
	i, ok := r.index[modelID]
	if !ok {
		return ModelDescriptor{}, false
	}
	return r.models[i], true
}

// SupportsCapability reports whether the model declares the capability.
// Unknown models support nothing.
func (r *Registry) SupportsCapability(modelID string, c Capability) bool {
	m, ok := r.Get(modelID)
	if !ok {
		return false
	}
	return m.HasCapability(c)
}

// ResolveProviderAPIID maps a platform model id to the vendor's API model
// string, falling back to the identity mapping for unknown or unaliased ids.
func (r *Registry) ResolveProviderAPIID(modelID string) string {
	m, ok := r.Get(modelID)
	if !ok || m.ProviderAPIID == "" {
		return modelID
	}
	return m.ProviderAPIID
}

// BelongsTo reports whether the model is served by the given provider.
func (r *Registry) BelongsTo(modelID string, p provider.Provider) bool {
	m, ok := r.Get(modelID)
	return ok && m.Provider == p
}
