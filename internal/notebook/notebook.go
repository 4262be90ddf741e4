// Package notebook owns plan state for the turn loop: creation, forward-only
// subtask transitions, snapshots for the hint dispatcher, and optional JSON
// persistence across process restarts.
package notebook

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	waypost "github.com/skyefallon/waypost"
	"github.com/skyefallon/waypost/internal/eventbus"
)

// Notebook is the canonical plan store. It maintains the plan invariants:
// at most one subtask in_progress, and states only ever move forward
// (todo -> in_progress -> done/abandoned).
type Notebook struct {
	mutex    sync.RWMutex
	plan     *waypost.Plan
	path     string
	eventBus eventbus.EventBus
}

// NotebookOption configures a Notebook.
type NotebookOption func(*Notebook)

// WithPath enables JSON persistence at the given file path. The plan is
// loaded from the file on construction when it exists, and rewritten after
// every mutation.
func WithPath(path string) NotebookOption {
	return func(n *Notebook) {
		n.path = path
	}
}

// WithEventBus attaches an event bus; every plan mutation publishes a
// plan_updated event.
func WithEventBus(eventBus eventbus.EventBus) NotebookOption {
	return func(n *Notebook) {
		n.eventBus = eventBus
	}
}

// New creates a notebook. With persistence configured, a corrupt or
// unreadable plan file is logged and ignored rather than failing startup.
func New(options ...NotebookOption) *Notebook {
	n := &Notebook{}

	for _, option := range options {
		option(n)
	}

	if n.path != "" {
		if err := n.load(); err != nil {
			log.Printf("Could not load persisted plan from %s: %v", n.path, err)
		}
	}

	return n
}

// Current implements waypost.Notebook. It returns a deep copy so callers can
// never mutate the stored plan through the snapshot.
func (n *Notebook) Current() *waypost.Plan {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return clonePlan(n.plan)
}

// SetPlan replaces any existing plan with a fresh one whose subtasks all
// start as todo. Subtask indexes are assigned from position.
func (n *Notebook) SetPlan(ctx context.Context, title string, subtaskNames []string) error {
	if len(subtaskNames) == 0 {
		return waypost.NewValidationError("plan", "a plan requires at least one subtask", nil)
	}

	subtasks := make([]waypost.Subtask, len(subtaskNames))
	for i, name := range subtaskNames {
		if name == "" {
			return waypost.NewValidationError("plan", fmt.Sprintf("subtask %d has an empty name", i), nil)
		}
		subtasks[i] = waypost.Subtask{
			Index: i,
			Name:  name,
			State: waypost.SubtaskTodo,
		}
	}

	n.mutex.Lock()
	n.plan = &waypost.Plan{Title: title, Subtasks: subtasks}
	n.mutex.Unlock()

	return n.committed(ctx, "set_plan")
}

// ClearPlan removes the plan entirely.
func (n *Notebook) ClearPlan(ctx context.Context) error {
	n.mutex.Lock()
	n.plan = nil
	n.mutex.Unlock()

	return n.committed(ctx, "clear_plan")
}

// StartSubtask moves a todo subtask to in_progress. It fails when another
// subtask is already active.
func (n *Notebook) StartSubtask(ctx context.Context, index int) error {
	n.mutex.Lock()

	st, err := n.subtask(index)
	if err != nil {
		n.mutex.Unlock()
		return err
	}

	if active := n.plan.ActiveSubtask(); active != nil && active.Index != index {
		n.mutex.Unlock()
		return waypost.NewValidationError("plan",
			fmt.Sprintf("subtask %d is already in progress", active.Index), nil)
	}

	if st.State != waypost.SubtaskTodo {
		n.mutex.Unlock()
		return waypost.NewValidationError("plan",
			fmt.Sprintf("subtask %d cannot start from state '%s'", index, st.State), nil)
	}

	st.State = waypost.SubtaskInProgress
	n.mutex.Unlock()

	return n.committed(ctx, "start_subtask")
}

// CompleteSubtask moves an in_progress subtask to done.
func (n *Notebook) CompleteSubtask(ctx context.Context, index int) error {
	return n.finish(ctx, "complete_subtask", index, waypost.SubtaskDone)
}

// AbandonSubtask moves a todo or in_progress subtask to abandoned.
func (n *Notebook) AbandonSubtask(ctx context.Context, index int) error {
	return n.finish(ctx, "abandon_subtask", index, waypost.SubtaskAbandoned)
}

// UpdateDetail replaces the free-form detail payload of a subtask.
func (n *Notebook) UpdateDetail(ctx context.Context, index int, detail string) error {
	n.mutex.Lock()

	st, err := n.subtask(index)
	if err != nil {
		n.mutex.Unlock()
		return err
	}

	st.Detail = detail
	n.mutex.Unlock()

	return n.committed(ctx, "update_detail")
}

// finish applies a terminal transition under the forward-only rule.
func (n *Notebook) finish(ctx context.Context, operation string, index int, target waypost.SubtaskState) error {
	n.mutex.Lock()

	st, err := n.subtask(index)
	if err != nil {
		n.mutex.Unlock()
		return err
	}

	if st.State.Terminal() {
		n.mutex.Unlock()
		return waypost.NewValidationError("plan",
			fmt.Sprintf("subtask %d is already in terminal state '%s'", index, st.State), nil)
	}

	if target == waypost.SubtaskDone && st.State != waypost.SubtaskInProgress {
		n.mutex.Unlock()
		return waypost.NewValidationError("plan",
			fmt.Sprintf("subtask %d must be in progress before completion, is '%s'", index, st.State), nil)
	}

	st.State = target
	n.mutex.Unlock()

	return n.committed(ctx, operation)
}

// subtask returns a pointer into the stored plan. Caller holds the lock.
func (n *Notebook) subtask(index int) (*waypost.Subtask, error) {
	if n.plan == nil {
		return nil, waypost.NewValidationError("plan", "no plan exists", nil)
	}
	if index < 0 || index >= len(n.plan.Subtasks) {
		return nil, waypost.NewValidationError("plan",
			fmt.Sprintf("subtask index %d out of range (plan has %d)", index, len(n.plan.Subtasks)), nil)
	}
	return &n.plan.Subtasks[index], nil
}

// committed runs the post-mutation bookkeeping: persistence and events.
func (n *Notebook) committed(ctx context.Context, operation string) error {
	if err := n.persist(); err != nil {
		return waypost.NewNotebookError(operation, err)
	}

	if n.eventBus != nil {
		event := eventbus.NewEvent(
			eventbus.EventPlanUpdated,
			n.Current(),
			"notebook.Notebook",
			map[string]interface{}{
				"operation": operation,
			},
		)
		if err := n.eventBus.Publish(ctx, event); err != nil {
			log.Printf("Failed to publish plan_updated event: %v", err)
		}
	}

	return nil
}

// persist writes the current plan to disk. A nil plan removes the file.
func (n *Notebook) persist() error {
	if n.path == "" {
		return nil
	}

	n.mutex.RLock()
	plan := clonePlan(n.plan)
	n.mutex.RUnlock()

	if plan == nil {
		err := os.Remove(n.path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(n.path), 0o755); err != nil {
		return err
	}

	// Write-then-rename keeps the plan file whole if the process dies
	// mid-write.
	tmp := n.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, n.path)
}

// load restores the plan from disk.
func (n *Notebook) load() error {
	data, err := os.ReadFile(n.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var plan waypost.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return err
	}

	n.mutex.Lock()
	n.plan = &plan
	n.mutex.Unlock()

	return nil
}

func clonePlan(p *waypost.Plan) *waypost.Plan {
	if p == nil {
		return nil
	}
	clone := &waypost.Plan{
		Title:    p.Title,
		Subtasks: make([]waypost.Subtask, len(p.Subtasks)),
	}
	copy(clone.Subtasks, p.Subtasks)
	return clone
}
