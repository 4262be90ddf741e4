package adapters

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	waypost "github.com/skyefallon/waypost"
)

// ProviderToolAdapter exposes one capability of a connected tool provider as
// a waypost.Tool. Execution delegates to the provider's Call.
type ProviderToolAdapter struct {
	provider   waypost.ToolProvider
	capability waypost.Capability
	schema     map[string]interface{}
}

// NewProviderToolAdapter wraps a single provider capability.
func NewProviderToolAdapter(provider waypost.ToolProvider, capability waypost.Capability) *ProviderToolAdapter {
	schema := map[string]interface{}{
		"name":     capability.Name,
		"category": "external",
		"provider": provider.Name(),
	}
	if capability.Description != "" {
		schema["description"] = capability.Description
	}
	if capability.InputSchema != nil {
		schema["parameters"] = capability.InputSchema
	}

	return &ProviderToolAdapter{
		provider:   provider,
		capability: capability,
		schema:     schema,
	}
}

// Execute implements the waypost.Tool interface.
func (a *ProviderToolAdapter) Execute(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if err := a.Validate(input); err != nil {
		return nil, fmt.Errorf("input validation failed for %s: %w", a.capability.Name, err)
	}

	return a.provider.Call(ctx, a.capability.Name, input)
}

// Schema implements the waypost.Tool interface.
func (a *ProviderToolAdapter) Schema() map[string]interface{} {
	return a.schema
}

// Validate checks required fields declared by the capability's input schema.
func (a *ProviderToolAdapter) Validate(input map[string]interface{}) error {
	if input == nil {
		return fmt.Errorf("input cannot be nil")
	}

	required, ok := a.capability.InputSchema["required"].([]string)
	if !ok {
		// Schemas round-tripped through JSON carry []interface{}
		if rawRequired, isRaw := a.capability.InputSchema["required"].([]interface{}); isRaw {
			for _, field := range rawRequired {
				if name, isString := field.(string); isString {
					required = append(required, name)
				}
			}
		}
	}

	for _, field := range required {
		if _, present := input[field]; !present {
			return fmt.Errorf("missing required field '%s'", field)
		}
	}

	return nil
}

// Name implements the waypost.Tool interface.
func (a *ProviderToolAdapter) Name() string {
	return a.capability.Name
}

// ToolsFromProviders queries every provider for its capabilities and wraps
// each one as a Tool. Capability listing runs concurrently, bounded by
// maxConcurrent. A capability name already claimed by an earlier provider is
// registered under "provider.capability" instead.
func ToolsFromProviders(ctx context.Context, providers []waypost.ToolProvider, maxConcurrent int) (map[string]waypost.Tool, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	type listing struct {
		provider waypost.ToolProvider
		caps     []waypost.Capability
	}

	listings := make([]listing, len(providers))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrent)

	var mutex sync.Mutex

	for i, p := range providers {
		i, p := i, p
		group.Go(func() error {
			caps, err := p.Capabilities(groupCtx)
			if err != nil {
				return fmt.Errorf("capability listing for '%s' failed: %w", p.Name(), err)
			}

			mutex.Lock()
			listings[i] = listing{provider: p, caps: caps}
			mutex.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Merge in provider order so name collisions resolve deterministically
	tools := make(map[string]waypost.Tool)
	for _, l := range listings {
		for _, capability := range l.caps {
			name := capability.Name
			if _, taken := tools[name]; taken {
				name = l.provider.Name() + "." + capability.Name
			}
			tools[name] = NewProviderToolAdapter(l.provider, capability)
		}
	}

	return tools, nil
}
