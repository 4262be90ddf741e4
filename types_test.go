package waypost

import (
	"strings"
	"testing"
)

func TestSubtaskStateTerminal(t *testing.T) {
	if SubtaskTodo.Terminal() || SubtaskInProgress.Terminal() {
		t.Error("todo and in_progress are not terminal")
	}
	if !SubtaskDone.Terminal() || !SubtaskAbandoned.Terminal() {
		t.Error("done and abandoned are terminal")
	}
}

func TestSubtaskStateValid(t *testing.T) {
	for _, s := range []SubtaskState{SubtaskTodo, SubtaskInProgress, SubtaskDone, SubtaskAbandoned} {
		if !s.Valid() {
			t.Errorf("expected %s valid", s)
		}
	}
	if SubtaskState("paused").Valid() {
		t.Error("unknown state reported valid")
	}
}

func TestPlanNilSafety(t *testing.T) {
	var p *Plan

	if p.Len() != 0 {
		t.Error("nil plan Len should be 0")
	}
	if p.ActiveSubtask() != nil {
		t.Error("nil plan has no active subtask")
	}
	if p.DoneCount() != 0 {
		t.Error("nil plan DoneCount should be 0")
	}
	if p.AllTerminal() {
		t.Error("nil plan is not terminal")
	}
	if p.Markdown() != "" {
		t.Error("nil plan renders empty")
	}
}

func TestPlanMarkdownMarkers(t *testing.T) {
	p := &Plan{
		Title: "Release",
		Subtasks: []Subtask{
			{Index: 0, Name: "build", State: SubtaskDone},
			{Index: 1, Name: "test", State: SubtaskInProgress},
			{Index: 2, Name: "ship", State: SubtaskTodo},
			{Index: 3, Name: "brag", State: SubtaskAbandoned},
		},
	}

	md := p.Markdown()

	for _, want := range []string{
		"## Release",
		"0. [x] build",
		"1. [>] test",
		"2. [ ] ship",
		"3. [-] brag",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestSubtaskDetailMarkdown(t *testing.T) {
	st := &Subtask{Index: 2, Name: "ship", State: SubtaskInProgress, Detail: "use the canary lane"}

	md := st.DetailMarkdown()
	if !strings.Contains(md, "### Subtask 2: ship") {
		t.Errorf("missing header:\n%s", md)
	}
	if !strings.Contains(md, "use the canary lane") {
		t.Errorf("missing detail:\n%s", md)
	}

	bare := (&Subtask{Index: 0, Name: "x", State: SubtaskTodo}).DetailMarkdown()
	if strings.Count(bare, "\n\n") > 0 {
		t.Errorf("detail-less rendering should not carry a detail block:\n%q", bare)
	}
}

func TestAllTerminalEmptyPlan(t *testing.T) {
	if (&Plan{}).AllTerminal() {
		t.Error("empty plan must not be terminal")
	}
}
