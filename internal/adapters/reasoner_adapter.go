package adapters

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/firebase/genkit/go/core"

	waypost "github.com/skyefallon/waypost"
)

// GenkitReasonerAdapter uses a Genkit Flow to implement the Reasoner
// interface.
type GenkitReasonerAdapter struct {
	reasonerFlow *core.Flow[*waypost.ReasonerInput, *waypost.Decision, struct{}]
	cache        waypost.Cache
}

// NewGenkitReasonerAdapter creates a new adapter for the reasoner flow.
// The cache is optional; nil disables decision caching.
func NewGenkitReasonerAdapter(reasonerFlow *core.Flow[*waypost.ReasonerInput, *waypost.Decision, struct{}], cache waypost.Cache) *GenkitReasonerAdapter {
	return &GenkitReasonerAdapter{
		reasonerFlow: reasonerFlow,
		cache:        cache,
	}
}

// Decide implements the waypost.Reasoner interface.
func (a *GenkitReasonerAdapter) Decide(ctx context.Context, input waypost.ReasonerInput) (*waypost.Decision, error) {
	// Only the opening step of a turn is cacheable; once observations exist
	// the input is unique to this turn.
	cacheable := a.cache != nil && len(input.Observations) == 0

	var cacheKey string
	if cacheable {
		cacheKey = a.generateCacheKey(input)
		if cached, found := a.cache.Get(ctx, cacheKey); found {
			if decision, ok := cached.(*waypost.Decision); ok {
				return decision, nil
			}
		}
	}

	decision, err := a.reasonerFlow.Run(ctx, &input)
	if err != nil {
		return nil, fmt.Errorf("reasoner flow execution failed: %w", err)
	}

	if decision == nil {
		return nil, fmt.Errorf("reasoner flow returned a nil decision")
	}

	if cacheable {
		a.cache.Set(ctx, cacheKey, decision)
	}

	return decision, nil
}

// generateCacheKey creates a stable key for caching opening decisions.
func (a *GenkitReasonerAdapter) generateCacheKey(input waypost.ReasonerInput) string {
	toolNames := make([]string, 0, len(input.ToolSchema))
	for name := range input.ToolSchema {
		toolNames = append(toolNames, name)
	}
	sort.Strings(toolNames)

	cacheableInput := struct {
		Query string   `json:"query"`
		Hint  string   `json:"hint"`
		Tools []string `json:"tools"`
	}{
		Query: input.Query,
		Hint:  input.Hint,
		Tools: toolNames,
	}

	inputBytes, err := json.Marshal(cacheableInput)
	if err != nil {
		log.Printf("Failed to marshal reasoner input for cache key: %v", err)
		return "reasoner:" + input.Query
	}

	hasher := sha1.New()
	hasher.Write(inputBytes)
	return "reasoner:" + hex.EncodeToString(hasher.Sum(nil))
}
