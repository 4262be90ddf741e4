// Package waypost provides the core runtime for a plan-guided LLM agent.
package waypost

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/skyefallon/waypost/internal/eventbus"
)

// Waypost is the main entry point into the waypost runtime. It encapsulates
// the components required to drive plan-guided agent turns.
type Waypost struct {
	// Core components
	notebook Notebook
	reasoner Reasoner
	cache    Cache
	eventBus eventbus.EventBus

	// Available tools
	tools map[string]Tool

	// Configuration
	config Config

	// Async processing
	asyncTurns      map[string]*TurnContext
	asyncTurnsMutex sync.RWMutex
}

// WaypostComponents holds references to the core components needed for state
// transitions.
type WaypostComponents struct {
	Notebook Notebook
	Reasoner Reasoner
	Tools    map[string]Tool
	Config   Config

	// Function to retrieve tool schemas
	GetSchemas func() map[string]map[string]interface{}
}

// Config holds the configuration options for the Waypost runtime.
type Config struct {
	// Maximum reasoning steps per query before the turn loop gives up
	MaxTurns int

	// Bound for concurrent provider capability refreshes
	MaxConcurrentRefresh int

	// Caller-supplied deadline applied to each provider connect attempt;
	// zero means no deadline
	ConnectTimeout time.Duration

	// Event bus configuration
	EnableEventBus      bool
	EventBusBufferSize  int
	EventBusWorkerCount int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTurns:             16,
		MaxConcurrentRefresh: 4,
		ConnectTimeout:       time.Second * 30,
		EnableEventBus:       true,
		EventBusBufferSize:   100,
		EventBusWorkerCount:  5,
	}
}

// Option is a function that configures a Waypost instance.
type Option func(*Waypost)

// WithConfig sets the configuration.
func WithConfig(config Config) Option {
	return func(w *Waypost) {
		w.config = config
	}
}

// WithNotebook sets the plan notebook collaborator.
func WithNotebook(notebook Notebook) Option {
	return func(w *Waypost) {
		w.notebook = notebook
	}
}

// WithReasoner sets the language-model collaborator.
func WithReasoner(reasoner Reasoner) Option {
	return func(w *Waypost) {
		w.reasoner = reasoner
	}
}

// WithEventBus sets a custom event bus implementation.
func WithEventBus(eventBus eventbus.EventBus) Option {
	return func(w *Waypost) {
		w.eventBus = eventBus
	}
}

// WithCache sets the cache component.
func WithCache(cache Cache) Option {
	return func(w *Waypost) {
		w.cache = cache
	}
}

// WithTools adds tools to the runtime.
func WithTools(tools map[string]Tool) Option {
	return func(w *Waypost) {
		if w.tools == nil {
			w.tools = make(map[string]Tool)
		}

		for name, tool := range tools {
			w.tools[name] = tool
		}
	}
}

// New creates a new Waypost instance with the provided options.
func New(ctx context.Context, g *genkit.Genkit, options ...Option) (*Waypost, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}

	w := &Waypost{
		config:     DefaultConfig(),
		tools:      make(map[string]Tool),
		asyncTurns: make(map[string]*TurnContext),
	}

	for _, option := range options {
		option(w)
	}

	if w.notebook == nil {
		return nil, fmt.Errorf("notebook is required")
	}

	if w.reasoner == nil {
		return nil, fmt.Errorf("reasoner is required")
	}

	if len(w.tools) == 0 {
		return nil, fmt.Errorf("at least one tool is required")
	}

	// Initialize event bus if enabled but not provided
	if w.config.EnableEventBus && w.eventBus == nil {
		w.eventBus = eventbus.NewChannelEventBus(
			eventbus.WithBufferSize(w.config.EventBusBufferSize),
			eventbus.WithWorkerCount(w.config.EventBusWorkerCount),
		)
		log.Printf("Initialized default channel-based event bus")
	}

	return w, nil
}

// RegisterTool adds a new tool to the Waypost runtime.
func (w *Waypost) RegisterTool(name string, tool Tool) error {
	if _, exists := w.tools[name]; exists {
		return fmt.Errorf("tool with name '%s' already exists", name)
	}

	w.tools[name] = tool
	return nil
}

// GetToolSchemas returns a map of tool names to their full schemas,
// suitable for use in reasoner prompts.
func (w *Waypost) GetToolSchemas() map[string]map[string]interface{} {
	schemas := make(map[string]map[string]interface{})

	for name, tool := range w.tools {
		schemas[name] = tool.Schema()
	}

	return schemas
}

// GetToolByName returns a tool by its name, or an error if not found.
func (w *Waypost) GetToolByName(name string) (Tool, error) {
	if tool, exists := w.tools[name]; exists {
		return tool, nil
	}
	return nil, fmt.Errorf("tool with name '%s' not found", name)
}

// ListTools returns a list of all registered tool names.
func (w *Waypost) ListTools() []string {
	names := make([]string, 0, len(w.tools))
	for name := range w.tools {
		names = append(names, name)
	}
	return names
}

// Process handles an end-to-end query through the waypost runtime using a
// pushdown automaton state machine (advise -> reason -> act, looping).
func (w *Waypost) Process(ctx context.Context, query string) (string, error) {
	stateMachine := w.createStateMachine()

	turnContext := NewTurnContext(query)

	return stateMachine.Execute(ctx, turnContext)
}

// createStateMachine builds a state machine with all necessary transitions
// for the turn-loop workflow.
func (w *Waypost) createStateMachine() *StateMachine {
	var eventBus eventbus.EventBus
	if w.config.EnableEventBus {
		eventBus = w.eventBus
	}

	components := WaypostComponents{
		Notebook: w.notebook,
		Reasoner: w.reasoner,
		Tools:    make(map[string]Tool),
		Config:   w.config,
		GetSchemas: func() map[string]map[string]interface{} {
			return w.GetToolSchemas()
		},
	}

	for name, tool := range w.tools {
		components.Tools[name] = tool
	}

	return CreateTurnStateMachine(components, eventBus)
}

// ProcessAsync starts an asynchronous query execution.
// It returns a unique execution ID that can be used to check the status or get the result.
func (w *Waypost) ProcessAsync(ctx context.Context, query string) (string, error) {
	executionID := uuid.New().String()

	stateMachine := w.createStateMachine()

	turnContext := NewTurnContext(query)

	w.asyncTurnsMutex.Lock()
	w.asyncTurns[executionID] = turnContext
	w.asyncTurnsMutex.Unlock()

	// A fresh background context with cancellation so the async turn outlives
	// the caller's request context.
	asyncCtx, cancel := context.WithCancel(context.Background())

	turnContext.StateData["cancel"] = cancel

	if w.config.EnableEventBus && w.eventBus != nil {
		startEvent := eventbus.NewEvent(
			eventbus.EventTurnAsyncStarted,
			query,
			"Waypost.ProcessAsync",
			map[string]interface{}{
				"timestamp":    time.Now().Format(time.RFC3339),
				"execution_id": executionID,
			},
		)
		w.eventBus.Publish(ctx, startEvent)
	}

	go func() {
		defer cancel()

		result, err := stateMachine.Execute(asyncCtx, turnContext)

		w.asyncTurnsMutex.Lock()
		if tCtx, exists := w.asyncTurns[executionID]; exists {
			tCtx.FinalAnswer = result
			if err == nil {
				tCtx.Complete()
			} else if !tCtx.IsTerminal() {
				// Execute marks cancellation itself; do not clobber a
				// cancelled turn into an error.
				tCtx.SetError(err, string(tCtx.CurrentState))
			}
		}
		w.asyncTurnsMutex.Unlock()

		if w.config.EnableEventBus && w.eventBus != nil {
			eventType := eventbus.EventTurnAsyncSuccess
			metadata := map[string]interface{}{
				"execution_id": executionID,
				"duration_ms":  turnContext.GetTotalDuration().Milliseconds(),
			}

			if err != nil {
				if turnContext.CurrentState == StateCancelled {
					eventType = eventbus.EventTurnAsyncCancelled
				} else {
					eventType = eventbus.EventTurnAsyncFailure
				}
				metadata["error"] = err.Error()
				metadata["error_stage"] = turnContext.ErrorStage
			}

			completionEvent := eventbus.NewEvent(
				eventType,
				query,
				"Waypost.ProcessAsync",
				metadata,
			)
			// Use background context since original context might be done
			w.eventBus.Publish(context.Background(), completionEvent)
		}
	}()

	return executionID, nil
}
