package notebook

import (
	"context"
	"path/filepath"
	"testing"

	waypost "github.com/skyefallon/waypost"
)

func TestSetPlanStartsAllTodo(t *testing.T) {
	n := New()
	ctx := context.Background()

	if err := n.SetPlan(ctx, "Release", []string{"build", "test", "ship"}); err != nil {
		t.Fatalf("SetPlan failed: %v", err)
	}

	plan := n.Current()
	if plan.Len() != 3 {
		t.Fatalf("expected 3 subtasks, got %d", plan.Len())
	}
	for i, st := range plan.Subtasks {
		if st.State != waypost.SubtaskTodo {
			t.Errorf("subtask %d: expected todo, got %s", i, st.State)
		}
		if st.Index != i {
			t.Errorf("subtask %d: index %d", i, st.Index)
		}
	}
}

func TestSetPlanRejectsEmpty(t *testing.T) {
	n := New()

	if err := n.SetPlan(context.Background(), "Empty", nil); err == nil {
		t.Error("expected error for empty subtask list")
	}
	if err := n.SetPlan(context.Background(), "Blank", []string{"a", ""}); err == nil {
		t.Error("expected error for blank subtask name")
	}
}

func TestSingleInProgressInvariant(t *testing.T) {
	n := New()
	ctx := context.Background()

	if err := n.SetPlan(ctx, "", []string{"a", "b"}); err != nil {
		t.Fatalf("SetPlan failed: %v", err)
	}

	if err := n.StartSubtask(ctx, 0); err != nil {
		t.Fatalf("StartSubtask(0) failed: %v", err)
	}

	if err := n.StartSubtask(ctx, 1); err == nil {
		t.Error("expected error starting a second subtask while one is active")
	}

	if err := n.CompleteSubtask(ctx, 0); err != nil {
		t.Fatalf("CompleteSubtask(0) failed: %v", err)
	}

	if err := n.StartSubtask(ctx, 1); err != nil {
		t.Errorf("StartSubtask(1) after completion failed: %v", err)
	}
}

func TestForwardOnlyTransitions(t *testing.T) {
	n := New()
	ctx := context.Background()

	if err := n.SetPlan(ctx, "", []string{"a", "b"}); err != nil {
		t.Fatalf("SetPlan failed: %v", err)
	}

	// done requires in_progress first
	if err := n.CompleteSubtask(ctx, 0); err == nil {
		t.Error("expected error completing a todo subtask")
	}

	// abandon is allowed straight from todo
	if err := n.AbandonSubtask(ctx, 1); err != nil {
		t.Errorf("AbandonSubtask from todo failed: %v", err)
	}

	// terminal states never move
	if err := n.StartSubtask(ctx, 1); err == nil {
		t.Error("expected error starting an abandoned subtask")
	}
	if err := n.AbandonSubtask(ctx, 1); err == nil {
		t.Error("expected error abandoning an abandoned subtask")
	}
}

func TestCurrentReturnsSnapshot(t *testing.T) {
	n := New()
	ctx := context.Background()

	if err := n.SetPlan(ctx, "", []string{"a"}); err != nil {
		t.Fatalf("SetPlan failed: %v", err)
	}

	snapshot := n.Current()
	snapshot.Subtasks[0].State = waypost.SubtaskDone

	if n.Current().Subtasks[0].State != waypost.SubtaskTodo {
		t.Error("mutating the snapshot leaked into the stored plan")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	ctx := context.Background()

	n := New(WithPath(path))
	if err := n.SetPlan(ctx, "Migrate", []string{"dump", "restore"}); err != nil {
		t.Fatalf("SetPlan failed: %v", err)
	}
	if err := n.StartSubtask(ctx, 0); err != nil {
		t.Fatalf("StartSubtask failed: %v", err)
	}

	reloaded := New(WithPath(path))
	plan := reloaded.Current()
	if plan == nil {
		t.Fatal("expected persisted plan to load")
	}
	if plan.Title != "Migrate" {
		t.Errorf("title lost in round trip: %q", plan.Title)
	}
	if plan.Subtasks[0].State != waypost.SubtaskInProgress {
		t.Errorf("state lost in round trip: %s", plan.Subtasks[0].State)
	}
}

func TestClearPlanRemovesPersistedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	ctx := context.Background()

	n := New(WithPath(path))
	if err := n.SetPlan(ctx, "", []string{"a"}); err != nil {
		t.Fatalf("SetPlan failed: %v", err)
	}
	if err := n.ClearPlan(ctx); err != nil {
		t.Fatalf("ClearPlan failed: %v", err)
	}

	reloaded := New(WithPath(path))
	if reloaded.Current() != nil {
		t.Error("expected no plan after clear")
	}
}

func TestPlanToolsDriveMutations(t *testing.T) {
	n := New()
	ctx := context.Background()
	tools := n.Tools()

	_, err := tools["set_plan"].Execute(ctx, map[string]interface{}{
		"title":    "Deploy",
		"subtasks": []interface{}{"stage", "verify"},
	})
	if err != nil {
		t.Fatalf("set_plan tool failed: %v", err)
	}

	// JSON numbers decode as float64
	_, err = tools["start_subtask"].Execute(ctx, map[string]interface{}{"index": float64(0)})
	if err != nil {
		t.Fatalf("start_subtask tool failed: %v", err)
	}

	if active := n.Current().ActiveSubtask(); active == nil || active.Index != 0 {
		t.Errorf("expected subtask 0 active, got %+v", active)
	}

	result, err := tools["show_plan"].Execute(ctx, map[string]interface{}{})
	if err != nil {
		t.Fatalf("show_plan tool failed: %v", err)
	}
	if result["plan"] == "" {
		t.Error("expected non-empty plan rendering")
	}
}
