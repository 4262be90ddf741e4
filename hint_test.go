package waypost

import (
	"strings"
	"testing"
)

func plan(states ...SubtaskState) *Plan {
	p := &Plan{Title: "Test"}
	for i, state := range states {
		p.Subtasks = append(p.Subtasks, Subtask{
			Index: i,
			Name:  "task",
			State: state,
		})
	}
	return p
}

func TestClassifyPlan_NoPlan(t *testing.T) {
	a := ClassifyPlan(nil)
	if a.Phase != PhaseNoPlan {
		t.Errorf("expected no_plan, got %s", a.Phase)
	}
}

func TestClassifyPlan_Beginning(t *testing.T) {
	a := ClassifyPlan(plan(SubtaskTodo, SubtaskTodo, SubtaskTodo))
	if a.Phase != PhaseBeginning {
		t.Errorf("expected beginning, got %s", a.Phase)
	}
}

func TestClassifyPlan_InProgress(t *testing.T) {
	a := ClassifyPlan(plan(SubtaskDone, SubtaskInProgress, SubtaskTodo))
	if a.Phase != PhaseInProgress {
		t.Fatalf("expected in_progress, got %s", a.Phase)
	}
	if a.Active == nil || a.Active.Index != 1 {
		t.Errorf("expected active subtask 1, got %+v", a.Active)
	}
}

func TestClassifyPlan_InProgressBeatsBeginning(t *testing.T) {
	// An active subtask with nothing done yet is in_progress, not beginning
	a := ClassifyPlan(plan(SubtaskInProgress, SubtaskTodo))
	if a.Phase != PhaseInProgress {
		t.Errorf("expected in_progress, got %s", a.Phase)
	}
}

func TestClassifyPlan_Resume(t *testing.T) {
	a := ClassifyPlan(plan(SubtaskDone, SubtaskDone, SubtaskTodo))
	if a.Phase != PhaseResume {
		t.Fatalf("expected resume, got %s", a.Phase)
	}
	if a.DoneCount != 2 {
		t.Errorf("expected done count 2, got %d", a.DoneCount)
	}
}

func TestClassifyPlan_Completion(t *testing.T) {
	cases := []*Plan{
		plan(SubtaskDone, SubtaskDone),
		plan(SubtaskDone, SubtaskAbandoned, SubtaskDone),
	}
	for i, p := range cases {
		if a := ClassifyPlan(p); a.Phase != PhaseCompletion {
			t.Errorf("case %d: expected completion, got %s", i, a.Phase)
		}
	}
}

func TestClassifyPlan_AllAbandonedIsCompletion(t *testing.T) {
	a := ClassifyPlan(plan(SubtaskAbandoned, SubtaskAbandoned))
	if a.Phase != PhaseCompletion {
		t.Errorf("expected completion, got %s", a.Phase)
	}
}

func TestClassifyPlan_EmptyPlanIsNone(t *testing.T) {
	a := ClassifyPlan(&Plan{})
	if a.Phase != PhaseNone {
		t.Errorf("expected none, got %s", a.Phase)
	}
	if _, ok := a.Hint(); ok {
		t.Error("expected no hint for an empty plan")
	}
}

func TestClassifyPlan_MutuallyExclusive(t *testing.T) {
	// Every snapshot lands in exactly one phase; spot-check a spread of
	// shapes against double classification
	snapshots := []*Plan{
		nil,
		&Plan{},
		plan(SubtaskTodo),
		plan(SubtaskInProgress),
		plan(SubtaskDone, SubtaskTodo),
		plan(SubtaskDone),
		plan(SubtaskAbandoned, SubtaskTodo),
		plan(SubtaskAbandoned, SubtaskAbandoned),
	}

	for i, p := range snapshots {
		first := ClassifyPlan(p)
		second := ClassifyPlan(p)
		if first.Phase != second.Phase {
			t.Errorf("snapshot %d: classification not stable (%s vs %s)", i, first.Phase, second.Phase)
		}
	}
}

func TestClassifyPlan_AbandonedWithTodoIsBeginning(t *testing.T) {
	// Abandoned counts as neither in progress nor done, so a plan with only
	// abandoned and todo entries still reads as not yet started
	a := ClassifyPlan(plan(SubtaskAbandoned, SubtaskTodo))
	if a.Phase != PhaseBeginning {
		t.Errorf("expected beginning, got %s", a.Phase)
	}
}

func TestHintDelimiters(t *testing.T) {
	hint, ok := ComputeHint(nil)
	if !ok {
		t.Fatal("expected a hint for nil plan")
	}
	if !strings.HasPrefix(hint, HintOpen+"\n") {
		t.Errorf("hint missing opening delimiter: %q", hint)
	}
	if !strings.HasSuffix(hint, "\n"+HintClose) {
		t.Errorf("hint missing closing delimiter: %q", hint)
	}
	if strings.Count(hint, HintOpen) != 1 || strings.Count(hint, HintClose) != 1 {
		t.Error("expected exactly one pair of delimiters")
	}
}

func TestHintIdempotent(t *testing.T) {
	p := plan(SubtaskDone, SubtaskInProgress, SubtaskTodo)

	first, ok1 := ComputeHint(p)
	second, ok2 := ComputeHint(p)
	if !ok1 || !ok2 {
		t.Fatal("expected hints both times")
	}
	if first != second {
		t.Error("hint changed between calls on an unmutated plan")
	}
}

func TestInProgressHintContent(t *testing.T) {
	p := plan(SubtaskDone, SubtaskInProgress, SubtaskTodo)
	p.Subtasks[1].Name = "wire the adapter"
	p.Subtasks[1].Detail = "remember the timeout"

	hint, ok := ComputeHint(p)
	if !ok {
		t.Fatal("expected a hint")
	}

	for _, want := range []string{
		"Subtask 1",
		`"wire the adapter"`,
		"remember the timeout",
	} {
		if !strings.Contains(hint, want) {
			t.Errorf("hint missing %q:\n%s", want, hint)
		}
	}
}

func TestResumeHintPluralization(t *testing.T) {
	single, _ := ComputeHint(plan(SubtaskDone, SubtaskTodo))
	if !strings.Contains(single, "1 subtask completed") {
		t.Errorf("expected singular phrasing: %s", single)
	}

	plural, _ := ComputeHint(plan(SubtaskDone, SubtaskDone, SubtaskTodo))
	if !strings.Contains(plural, "2 subtasks completed") {
		t.Errorf("expected plural phrasing: %s", plural)
	}
}

func TestHintPerPhase(t *testing.T) {
	cases := []struct {
		name     string
		plan     *Plan
		fragment string
	}{
		{"no_plan", nil, "No plan exists"},
		{"beginning", plan(SubtaskTodo, SubtaskTodo), "no subtask has been started"},
		{"in_progress", plan(SubtaskInProgress), "is in progress"},
		{"resume", plan(SubtaskDone, SubtaskTodo), "nothing is currently in progress"},
		{"completion", plan(SubtaskDone, SubtaskAbandoned), "done or abandoned"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hint, ok := ComputeHint(tc.plan)
			if !ok {
				t.Fatal("expected a hint")
			}
			if !strings.Contains(hint, tc.fragment) {
				t.Errorf("hint missing %q:\n%s", tc.fragment, hint)
			}
		})
	}
}
