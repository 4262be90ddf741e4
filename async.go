package waypost

import (
	"context"
	"fmt"
	"time"
)

// AsyncStatus describes the observable state of an asynchronous turn.
type AsyncStatus struct {
	State       TurnState
	Steps       int
	StartTime   time.Time
	Duration    time.Duration
	ErrorStage  string
	LastError   string
	FinalAnswer string
}

// GetAsyncStatus returns the current status of an async execution.
func (w *Waypost) GetAsyncStatus(executionID string) (AsyncStatus, error) {
	w.asyncTurnsMutex.RLock()
	defer w.asyncTurnsMutex.RUnlock()

	tCtx, exists := w.asyncTurns[executionID]
	if !exists {
		return AsyncStatus{State: StateUnknown}, fmt.Errorf("no async execution found with ID '%s'", executionID)
	}

	status := AsyncStatus{
		State:       tCtx.CurrentState,
		Steps:       tCtx.Steps,
		StartTime:   tCtx.StartTime,
		Duration:    tCtx.GetTotalDuration(),
		ErrorStage:  tCtx.ErrorStage,
		FinalAnswer: tCtx.FinalAnswer,
	}
	if tCtx.LastError != nil {
		status.LastError = tCtx.LastError.Error()
	}

	return status, nil
}

// GetAsyncResult returns the final answer of a completed async execution.
// It returns an error if the execution is not found, still running, or failed.
func (w *Waypost) GetAsyncResult(executionID string) (string, error) {
	w.asyncTurnsMutex.RLock()
	defer w.asyncTurnsMutex.RUnlock()

	tCtx, exists := w.asyncTurns[executionID]
	if !exists {
		return "", fmt.Errorf("no async execution found with ID '%s'", executionID)
	}

	switch tCtx.CurrentState {
	case StateComplete:
		return tCtx.FinalAnswer, nil
	case StateError:
		return "", fmt.Errorf("async execution failed at stage '%s': %w", tCtx.ErrorStage, tCtx.LastError)
	case StateCancelled:
		return "", fmt.Errorf("async execution was cancelled: %w", tCtx.LastError)
	default:
		return "", fmt.Errorf("async execution is still running (state: %s)", tCtx.CurrentState)
	}
}

// CancelAsyncProcess cancels a running async execution.
func (w *Waypost) CancelAsyncProcess(executionID string) error {
	w.asyncTurnsMutex.Lock()
	defer w.asyncTurnsMutex.Unlock()

	tCtx, exists := w.asyncTurns[executionID]
	if !exists {
		return fmt.Errorf("no async execution found with ID '%s'", executionID)
	}

	if tCtx.IsTerminal() {
		return fmt.Errorf("async execution '%s' has already finished (state: %s)", executionID, tCtx.CurrentState)
	}

	cancel, ok := tCtx.StateData["cancel"].(context.CancelFunc)
	if !ok {
		return fmt.Errorf("async execution '%s' has no cancel function", executionID)
	}

	cancel()

	return nil
}

// ListAsyncExecutions returns the IDs of all tracked async executions.
func (w *Waypost) ListAsyncExecutions() []string {
	w.asyncTurnsMutex.RLock()
	defer w.asyncTurnsMutex.RUnlock()

	ids := make([]string, 0, len(w.asyncTurns))
	for id := range w.asyncTurns {
		ids = append(ids, id)
	}

	return ids
}

// CleanupCompletedExecutions removes terminal async executions older than
// maxAge from the tracking map. It returns the number of executions removed.
func (w *Waypost) CleanupCompletedExecutions(maxAge time.Duration) int {
	w.asyncTurnsMutex.Lock()
	defer w.asyncTurnsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, tCtx := range w.asyncTurns {
		if tCtx.IsTerminal() && tCtx.StartTime.Before(cutoff) {
			delete(w.asyncTurns, id)
			removed++
		}
	}

	return removed
}
