package waypost

import (
	"context"
	"fmt"
	"time"

	"github.com/skyefallon/waypost/internal/eventbus"
)

// TurnState represents the current state of a turn-loop execution.
type TurnState string

const (
	// StateInit is the initial state of the turn loop
	StateInit TurnState = "init"
	// StateAdvise represents the plan-guidance phase (hint dispatch)
	StateAdvise TurnState = "advise"
	// StateReason represents the model reasoning phase
	StateReason TurnState = "reason"
	// StateAct represents the tool dispatch phase
	StateAct TurnState = "act"
	// StateError represents an error state
	StateError TurnState = "error"
	// StateComplete represents the completed state
	StateComplete TurnState = "complete"
	// StateCancelled represents the cancelled state
	StateCancelled TurnState = "cancelled"
	// StateUnknown is used when the status of an async execution cannot be determined.
	StateUnknown TurnState = "unknown"
)

// TurnContext carries the data for one query's turn loop. It acts as the
// "tape" of the pushdown automaton driving the loop.
type TurnContext struct {
	// Input parameters
	Query string

	// Intermediate results
	Hint         string
	PlanPhase    PlanPhase
	Decision     *Decision
	Observations []Observation
	FinalAnswer  string
	Steps        int

	// Error handling
	LastError  error
	ErrorStage string

	// State management
	CurrentState TurnState
	StateStack   []TurnState
	StateData    map[string]interface{}

	// Timestamp tracking
	StartTime       time.Time
	EndTime         time.Time
	StateStartTimes map[TurnState]time.Time
}

// NewTurnContext creates a new turn context with the given query.
func NewTurnContext(query string) *TurnContext {
	return &TurnContext{
		Query:           query,
		CurrentState:    StateInit,
		StateStack:      []TurnState{},
		StateData:       make(map[string]interface{}),
		StartTime:       time.Now(),
		StateStartTimes: make(map[TurnState]time.Time),
	}
}

// PushState pushes the current state onto the stack and sets a new current state.
func (tc *TurnContext) PushState(state TurnState) {
	tc.StateStack = append(tc.StateStack, tc.CurrentState)
	tc.CurrentState = state
	tc.StateStartTimes[state] = time.Now()
}

// PopState pops the top state from the stack and sets it as the current state.
// Returns false if the stack is empty.
func (tc *TurnContext) PopState() bool {
	if len(tc.StateStack) == 0 {
		return false
	}
	lastIdx := len(tc.StateStack) - 1
	tc.CurrentState = tc.StateStack[lastIdx]
	tc.StateStack = tc.StateStack[:lastIdx]
	tc.StateStartTimes[tc.CurrentState] = time.Now()
	return true
}

// IsTerminal checks if the current state is a terminal state (Complete, Error, Cancelled).
func (tc *TurnContext) IsTerminal() bool {
	return tc.CurrentState == StateComplete || tc.CurrentState == StateError || tc.CurrentState == StateCancelled
}

// SetError sets the last error and error stage, transitioning to StateError.
func (tc *TurnContext) SetError(err error, stage string) {
	tc.LastError = err
	tc.ErrorStage = stage
	tc.CurrentState = StateError
	tc.StateStartTimes[StateError] = time.Now()
}

// SetCancelled sets the state to Cancelled and records the cancellation error.
func (tc *TurnContext) SetCancelled(err error, stage string) {
	tc.LastError = err
	tc.ErrorStage = stage
	tc.CurrentState = StateCancelled
	tc.StateStartTimes[StateCancelled] = time.Now()
}

// Complete marks the turn loop as complete and sets the end time.
func (tc *TurnContext) Complete() {
	tc.CurrentState = StateComplete
	tc.EndTime = time.Now()
	tc.StateStartTimes[StateComplete] = tc.EndTime
}

// Observe appends a completed tool call's outcome to the turn transcript.
func (tc *TurnContext) Observe(obs Observation) {
	tc.Observations = append(tc.Observations, obs)
}

// GetTotalDuration returns the total duration of the turn loop so far.
func (tc *TurnContext) GetTotalDuration() time.Duration {
	if tc.CurrentState == StateComplete {
		return tc.EndTime.Sub(tc.StartTime)
	}
	return time.Since(tc.StartTime)
}

// StateTransition defines a transition function for the state machine.
type StateTransition func(ctx context.Context, eventBus eventbus.EventBus, tCtx *TurnContext) (TurnState, error)

// StateMachine represents a finite state machine for turn-loop execution.
type StateMachine struct {
	transitions map[TurnState]StateTransition
	eventBus    eventbus.EventBus
}

// NewStateMachine creates a new state machine with the provided transitions.
func NewStateMachine(eventBus eventbus.EventBus) *StateMachine {
	return &StateMachine{
		transitions: make(map[TurnState]StateTransition),
		eventBus:    eventBus,
	}
}

// RegisterTransition registers a state transition function.
func (sm *StateMachine) RegisterTransition(state TurnState, transition StateTransition) {
	sm.transitions[state] = transition
}

// Execute runs the state machine until completion or error.
func (sm *StateMachine) Execute(ctx context.Context, tCtx *TurnContext) (string, error) {
	for !tCtx.IsTerminal() {
		// Check for context cancellation before executing the next state
		select {
		case <-ctx.Done():
			err := ctx.Err()
			currentStage := string(tCtx.CurrentState)
			tCtx.SetCancelled(err, currentStage)
			return "", err
		default:
		}

		transition, exists := sm.transitions[tCtx.CurrentState]
		if !exists {
			err := fmt.Errorf("no transition defined for state: %s", tCtx.CurrentState)
			currentStage := string(tCtx.CurrentState)
			tCtx.SetError(err, currentStage)
			return "", err
		}

		nextState, err := transition(ctx, sm.eventBus, tCtx)

		if err != nil {
			currentStage := string(tCtx.CurrentState)
			if err == context.Canceled || err == context.DeadlineExceeded {
				tCtx.SetCancelled(err, currentStage)
			} else if !tCtx.IsTerminal() {
				// Transitions usually set the error state themselves; this
				// covers ones that only return the error.
				tCtx.SetError(err, currentStage)
			}
			continue
		}

		if !tCtx.IsTerminal() {
			tCtx.CurrentState = nextState
			tCtx.StateStartTimes[nextState] = time.Now()
		}
	}

	return tCtx.FinalAnswer, tCtx.LastError
}
