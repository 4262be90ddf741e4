package waypost

import "context"

// Notebook is the plan collaborator: it owns plan state and mutation, and
// hands out read-only snapshots. The hint dispatcher only ever reads the
// snapshot; plan mutations happen through the notebook's own tool surface.
type Notebook interface {
	// Current returns the plan snapshot, or nil when no plan exists.
	Current() *Plan
}

// Decision is one reasoning step's outcome: either a final answer, or a
// single tool call to perform before reasoning again.
type Decision struct {
	FinalAnswer string                 `json:"final_answer,omitempty"`
	ToolName    string                 `json:"tool_name,omitempty"`
	ToolArgs    map[string]interface{} `json:"tool_args,omitempty"`
}

// IsFinal reports whether the decision ends the turn loop.
func (d *Decision) IsFinal() bool {
	return d.ToolName == ""
}

// ReasonerInput is what the language-model collaborator sees each turn.
type ReasonerInput struct {
	Query        string                            `json:"query"`
	Hint         string                            `json:"hint,omitempty"`
	Observations []Observation                     `json:"observations,omitempty"`
	ToolSchema   map[string]map[string]interface{} `json:"tool_schema"`
}

// Observation records one completed tool call within a turn loop.
type Observation struct {
	Tool   string                 `json:"tool"`
	Args   map[string]interface{} `json:"args,omitempty"`
	Result map[string]interface{} `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// Reasoner is the language-model collaborator. It never sees or mutates plan
// state directly; plan guidance arrives as the hint text in its input.
type Reasoner interface {
	Decide(ctx context.Context, input ReasonerInput) (*Decision, error)
}

// Tool represents an executable action available to the reasoner.
type Tool interface {
	// Execute performs the tool's action.
	// input contains resolved arguments from the reasoner's decision.
	Execute(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)

	// Schema returns a description or definition of the tool, used in the
	// reasoner prompt. Standard keys include "description", "parameters",
	// "returns" and "category".
	Schema() map[string]interface{}

	// Validate checks if the provided input is valid for this tool.
	// Returns nil if valid, error otherwise.
	Validate(input map[string]interface{}) error

	// Name returns the tool's name.
	Name() string
}

// Capability describes one callable operation a connected tool provider
// offers, as reported by its handshake.
type Capability struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema,omitempty"`
}

// ToolProvider is an external, subprocess-backed capability source. A
// provider is constructed from configuration, connected once, used for the
// remainder of the process, and shut down exactly once.
//
// Shutdown is expressed through one of two optional capabilities: Close
// (io.Closer shape) is preferred; Disconnect is the fallback for providers
// that only expose a context-aware teardown. The lifecycle manager probes
// in that fixed order.
type ToolProvider interface {
	// Name returns the provider's unique configuration key.
	Name() string

	// Connect launches the provider and performs its handshake. Any
	// caller-supplied connect deadline arrives through ctx.
	Connect(ctx context.Context) error

	// Capabilities lists the callable operations the provider offers.
	// Valid only after a successful Connect.
	Capabilities(ctx context.Context) ([]Capability, error)

	// Call invokes a named capability with the given arguments.
	Call(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error)
}

// Disconnector is the fallback shutdown capability for providers without a
// plain Close method.
type Disconnector interface {
	Disconnect(ctx context.Context) error
}

// Cache provides storage for frequently accessed data, like provider
// capability listings.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{})
}
