package waypost

import (
	"fmt"
	"strings"
)

// SubtaskState represents the lifecycle state of a single plan entry.
type SubtaskState string

const (
	// SubtaskTodo indicates the subtask has not been started.
	SubtaskTodo SubtaskState = "todo"
	// SubtaskInProgress indicates the subtask currently being worked.
	SubtaskInProgress SubtaskState = "in_progress"
	// SubtaskDone indicates the subtask finished successfully.
	SubtaskDone SubtaskState = "done"
	// SubtaskAbandoned indicates the subtask was given up on.
	SubtaskAbandoned SubtaskState = "abandoned"
)

// Terminal reports whether the state is one a subtask never leaves.
func (s SubtaskState) Terminal() bool {
	return s == SubtaskDone || s == SubtaskAbandoned
}

// Valid reports whether the state is one of the four defined states.
func (s SubtaskState) Valid() bool {
	switch s {
	case SubtaskTodo, SubtaskInProgress, SubtaskDone, SubtaskAbandoned:
		return true
	}
	return false
}

// Subtask is one unit of plan work. Index is the subtask's stable position
// in the plan; Detail is a free-form payload rendered on demand and never
// interpreted here.
type Subtask struct {
	Index  int          `json:"index"`
	Name   string       `json:"name"`
	State  SubtaskState `json:"state"`
	Detail string       `json:"detail,omitempty"`
}

// DetailMarkdown renders the single-subtask detailed view.
func (s *Subtask) DetailMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Subtask %d: %s\n", s.Index, s.Name)
	fmt.Fprintf(&b, "State: %s\n", s.State)
	if s.Detail != "" {
		b.WriteString("\n")
		b.WriteString(s.Detail)
		b.WriteString("\n")
	}
	return b.String()
}

// Plan is the ordered task list tracked for one multi-step request.
// A nil *Plan means no plan has been created yet.
//
// The plan invariant (at most one subtask in_progress, states only moving
// forward) is maintained by the notebook that owns the plan; consumers here
// treat a Plan as a read-only snapshot.
type Plan struct {
	Title    string    `json:"title,omitempty"`
	Subtasks []Subtask `json:"subtasks"`
}

// Len returns the number of subtasks. Safe on a nil plan.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Subtasks)
}

// ActiveSubtask returns the first in_progress subtask, or nil.
func (p *Plan) ActiveSubtask() *Subtask {
	if p == nil {
		return nil
	}
	for i := range p.Subtasks {
		if p.Subtasks[i].State == SubtaskInProgress {
			return &p.Subtasks[i]
		}
	}
	return nil
}

// DoneCount returns the number of subtasks marked done.
func (p *Plan) DoneCount() int {
	if p == nil {
		return 0
	}
	count := 0
	for i := range p.Subtasks {
		if p.Subtasks[i].State == SubtaskDone {
			count++
		}
	}
	return count
}

// AllTerminal reports whether every subtask is done or abandoned.
// An empty plan is not considered terminal.
func (p *Plan) AllTerminal() bool {
	if p.Len() == 0 {
		return false
	}
	for i := range p.Subtasks {
		if !p.Subtasks[i].State.Terminal() {
			return false
		}
	}
	return true
}

// Markdown renders the compact whole-plan checklist view.
func (p *Plan) Markdown() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	if p.Title != "" {
		fmt.Fprintf(&b, "## %s\n", p.Title)
	}
	for i := range p.Subtasks {
		st := &p.Subtasks[i]
		marker := " "
		switch st.State {
		case SubtaskInProgress:
			marker = ">"
		case SubtaskDone:
			marker = "x"
		case SubtaskAbandoned:
			marker = "-"
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", st.Index, marker, st.Name)
	}
	return b.String()
}
