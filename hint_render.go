package waypost

import (
	"fmt"
	"strings"
)

// Delimiters wrapping every emitted hint so the orchestrator can reliably
// tell system-injected guidance apart from model or user text.
const (
	HintOpen  = "<system-hint>"
	HintClose = "</system-hint>"
)

const noPlanHint = `No plan exists for the current request. If the request is complex or
multi-step, create an explicit plan before acting, and consult the workflow
guidance for this domain first. Simple requests may proceed without a plan.`

const beginningHint = `A plan exists but no subtask has been started. Begin with subtask 0. If it
is not immediately actionable, revise the plan or ask the user for input.`

const completionHint = `Every subtask in the plan is done or abandoned. Finalize the plan with a
summary of what was accomplished, or revise it if further work remains.`

// Hint renders the guidance text for the assessed phase, wrapped in the hint
// delimiters. The second return is false when the phase carries no guidance.
func (a PlanAssessment) Hint() (string, bool) {
	var body string
	switch a.Phase {
	case PhaseNoPlan:
		body = noPlanHint
	case PhaseBeginning:
		body = beginningHint
	case PhaseInProgress:
		body = inProgressHint(a.Active)
	case PhaseResume:
		body = resumeHint(a.DoneCount)
	case PhaseCompletion:
		body = completionHint
	default:
		return "", false
	}
	return wrapHint(body), true
}

func inProgressHint(active *Subtask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subtask %d (%q) is in progress.\n\n", active.Index, active.Name)
	b.WriteString(active.DetailMarkdown())
	b.WriteString("\nContinue working this subtask, mark it complete when finished, " +
		"revise the plan if it no longer fits, or set it aside to handle an " +
		"unrelated user request first.")
	return b.String()
}

func resumeHint(doneCount int) string {
	noun := "subtasks"
	if doneCount == 1 {
		noun = "subtask"
	}
	return fmt.Sprintf("%d %s completed so far and nothing is currently in progress. "+
		"Advance to the next subtask, revise the plan, or disable optional tool "+
		"groups that are no longer needed.", doneCount, noun)
}

func wrapHint(body string) string {
	return HintOpen + "\n" + body + "\n" + HintClose
}
