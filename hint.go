package waypost

// PlanPhase identifies which of the mutually exclusive plan situations a
// snapshot is in. Exactly one phase applies to any snapshot.
type PlanPhase string

const (
	// PhaseNone means the plan matched no guidance situation (degenerate,
	// e.g. a plan with zero subtasks) and no hint should be emitted.
	PhaseNone PlanPhase = "none"
	// PhaseNoPlan means no plan has been created yet.
	PhaseNoPlan PlanPhase = "no_plan"
	// PhaseBeginning means a plan exists but work has not started.
	PhaseBeginning PlanPhase = "beginning"
	// PhaseInProgress means exactly one subtask is being worked.
	PhaseInProgress PlanPhase = "in_progress"
	// PhaseResume means progress was made but nothing is currently active.
	PhaseResume PlanPhase = "resume"
	// PhaseCompletion means every subtask is done or abandoned.
	PhaseCompletion PlanPhase = "completion"
)

// PlanAssessment is the tagged classification result: the phase plus the
// parameters the matching guidance text needs. Fields outside the matching
// phase are zero.
type PlanAssessment struct {
	Phase PlanPhase

	// Active is set for PhaseInProgress: the subtask being worked.
	Active *Subtask

	// DoneCount is set for PhaseResume: how many subtasks are done.
	DoneCount int
}

// ClassifyPlan maps a plan snapshot (or its absence) to exactly one phase.
// It is a pure read of the snapshot and assumes the plan invariant holds
// (at most one subtask in_progress); with multiple in_progress subtasks the
// first one wins, but that input is outside the contract.
//
// Precedence, first match wins:
//
//	no plan                                      -> PhaseNoPlan
//	one subtask in progress                      -> PhaseInProgress
//	everything done or abandoned                 -> PhaseCompletion
//	nothing in progress, nothing done            -> PhaseBeginning
//	something done, something still open         -> PhaseResume
//	otherwise (zero subtasks)                    -> PhaseNone
//
// Completion is checked ahead of beginning so a plan whose every subtask
// was abandoned reads as finished, not as never started.
func ClassifyPlan(p *Plan) PlanAssessment {
	if p == nil {
		return PlanAssessment{Phase: PhaseNoPlan}
	}

	if active := p.ActiveSubtask(); active != nil {
		return PlanAssessment{Phase: PhaseInProgress, Active: active}
	}

	if p.AllTerminal() {
		return PlanAssessment{Phase: PhaseCompletion}
	}

	done := p.DoneCount()
	if done == 0 && p.Len() > 0 {
		return PlanAssessment{Phase: PhaseBeginning}
	}

	if done > 0 {
		return PlanAssessment{Phase: PhaseResume, DoneCount: done}
	}

	return PlanAssessment{Phase: PhaseNone}
}

// ComputeHint classifies the plan snapshot and renders the matching guidance
// text, delimited for out-of-band injection. The second return is false when
// no hint applies. Calling it twice on an unmutated plan yields identical
// output.
func ComputeHint(p *Plan) (string, bool) {
	return ClassifyPlan(p).Hint()
}
