package waypost

import (
	"context"
	"time"

	"github.com/skyefallon/waypost/internal/eventbus"
)

// CreateTurnStateMachine builds a complete state machine for the turn loop:
// advise (plan guidance) -> reason (model decision) -> act (tool dispatch),
// looping until the reasoner produces a final answer or the turn budget
// runs out.
func CreateTurnStateMachine(components WaypostComponents, eventBus eventbus.EventBus) *StateMachine {
	sm := NewStateMachine(eventBus)

	sm.RegisterTransition(StateInit, createInitTransition(components))
	sm.RegisterTransition(StateAdvise, createAdviseTransition(components))
	sm.RegisterTransition(StateReason, createReasonTransition(components))
	sm.RegisterTransition(StateAct, createActTransition(components))
	sm.RegisterTransition(StateError, createErrorTransition(components))
	sm.RegisterTransition(StateComplete, createCompleteTransition(components))
	sm.RegisterTransition(StateCancelled, createCancelledTransition(components))

	return sm
}

// createInitTransition handles the initialization state.
func createInitTransition(components WaypostComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		if eb != nil {
			startEvent := eventbus.NewEvent(
				eventbus.EventTurnStarted,
				tCtx.Query,
				"StateMachine.Init",
				map[string]interface{}{
					"timestamp": time.Now().Format(time.RFC3339),
				},
			)
			eb.Publish(ctx, startEvent)
		}

		return StateAdvise, nil
	}
}

// createAdviseTransition handles the plan-guidance state: it snapshots the
// plan, classifies it, and stores the rendered hint (or clears it) for the
// reasoner. The snapshot is read-only; nothing here mutates the plan.
func createAdviseTransition(components WaypostComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		var plan *Plan
		if components.Notebook != nil {
			plan = components.Notebook.Current()
		}

		assessment := ClassifyPlan(plan)
		tCtx.PlanPhase = assessment.Phase

		hint, ok := assessment.Hint()
		if !ok {
			tCtx.Hint = ""
			return StateReason, nil
		}
		tCtx.Hint = hint

		if eb != nil {
			hintEvent := eventbus.NewEvent(
				eventbus.EventHintEmitted,
				hint,
				"StateMachine.Advise",
				map[string]interface{}{
					"phase": string(assessment.Phase),
				},
			)
			eb.Publish(ctx, hintEvent)
		}

		return StateReason, nil
	}
}

// createReasonTransition handles the model reasoning state.
func createReasonTransition(components WaypostComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		if tCtx.Steps >= components.Config.MaxTurns {
			return StateError, NewInternalError("reason", "turn budget exhausted", nil)
		}
		tCtx.Steps++

		input := ReasonerInput{
			Query:        tCtx.Query,
			Hint:         tCtx.Hint,
			Observations: tCtx.Observations,
			ToolSchema:   components.GetSchemas(),
		}

		if eb != nil {
			reasonEvent := eventbus.NewEvent(
				eventbus.EventReasoningStarted,
				tCtx.Query,
				"StateMachine.Reason",
				map[string]interface{}{
					"step":     tCtx.Steps,
					"has_hint": tCtx.Hint != "",
				},
			)
			eb.Publish(ctx, reasonEvent)
		}

		decision, err := components.Reasoner.Decide(ctx, input)
		if err != nil {
			if eb != nil {
				failEvent := eventbus.NewEvent(
					eventbus.EventReasoningFailure,
					err.Error(),
					"StateMachine.Reason",
					map[string]interface{}{
						"error": err.Error(),
					},
				)
				eb.Publish(ctx, failEvent)

				turnFailEvent := eventbus.NewEvent(
					eventbus.EventTurnFailure,
					tCtx.Query,
					"StateMachine.Reason",
					map[string]interface{}{
						"error": err.Error(),
						"stage": "reason",
					},
				)
				eb.Publish(ctx, turnFailEvent)
			}
			return StateError, NewReasoningError(err)
		}

		if decision == nil {
			return StateError, NewReasoningError(nil)
		}

		if eb != nil {
			successEvent := eventbus.NewEvent(
				eventbus.EventReasoningSuccess,
				decision,
				"StateMachine.Reason",
				map[string]interface{}{
					"final": decision.IsFinal(),
				},
			)
			eb.Publish(ctx, successEvent)
		}

		tCtx.Decision = decision

		if decision.IsFinal() {
			tCtx.FinalAnswer = decision.FinalAnswer

			if eb != nil {
				turnSuccess := eventbus.NewEvent(
					eventbus.EventTurnSuccess,
					tCtx.Query,
					"StateMachine.Reason",
					map[string]interface{}{
						"steps": tCtx.Steps,
					},
				)
				eb.Publish(ctx, turnSuccess)
			}

			return StateComplete, nil
		}

		return StateAct, nil
	}
}

// createActTransition handles the tool dispatch state. A tool failure is
// recorded as an observation and fed back to the reasoner rather than
// terminating the turn; only a missing decision is a hard error.
func createActTransition(components WaypostComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		decision := tCtx.Decision
		if decision == nil || decision.IsFinal() {
			return StateError, NewInternalError("act", "act state entered without a tool decision", nil)
		}

		if eb != nil {
			callEvent := eventbus.NewEvent(
				eventbus.EventToolCallStarted,
				decision.ToolName,
				"StateMachine.Act",
				map[string]interface{}{
					"tool": decision.ToolName,
				},
			)
			eb.Publish(ctx, callEvent)
		}

		tool, exists := components.Tools[decision.ToolName]
		if !exists {
			err := NewToolNotFoundError("act", decision.ToolName)
			tCtx.Observe(Observation{
				Tool:  decision.ToolName,
				Args:  decision.ToolArgs,
				Error: err.Error(),
			})
			if eb != nil {
				failEvent := eventbus.NewEvent(
					eventbus.EventToolCallFailure,
					decision.ToolName,
					"StateMachine.Act",
					map[string]interface{}{
						"error": err.Error(),
					},
				)
				eb.Publish(ctx, failEvent)
			}
			return StateAdvise, nil
		}

		result, err := tool.Execute(ctx, decision.ToolArgs)
		if err != nil {
			wrapped := NewToolExecutionError("act", decision.ToolName, err)
			tCtx.Observe(Observation{
				Tool:  decision.ToolName,
				Args:  decision.ToolArgs,
				Error: wrapped.Error(),
			})
			if eb != nil {
				failEvent := eventbus.NewEvent(
					eventbus.EventToolCallFailure,
					decision.ToolName,
					"StateMachine.Act",
					map[string]interface{}{
						"error": err.Error(),
					},
				)
				eb.Publish(ctx, failEvent)
			}
			return StateAdvise, nil
		}

		tCtx.Observe(Observation{
			Tool:   decision.ToolName,
			Args:   decision.ToolArgs,
			Result: result,
		})

		if eb != nil {
			successEvent := eventbus.NewEvent(
				eventbus.EventToolCallSuccess,
				decision.ToolName,
				"StateMachine.Act",
				map[string]interface{}{
					"result_count": len(result),
				},
			)
			eb.Publish(ctx, successEvent)
		}

		return StateAdvise, nil
	}
}

// createErrorTransition handles error states.
func createErrorTransition(_ WaypostComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		// The error is already recorded in the turn context; transition to
		// complete with it intact so Execute returns it.
		return StateComplete, tCtx.LastError
	}
}

// createCompleteTransition handles the complete state.
func createCompleteTransition(_ WaypostComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		return StateComplete, nil
	}
}

// createCancelledTransition handles the cancelled state.
func createCancelledTransition(_ WaypostComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, tCtx *TurnContext) (TurnState, error) {
		// Terminal state. The cancellation error is already set in
		// tCtx.LastError by the Execute loop or a transition.
		return StateCancelled, tCtx.LastError
	}
}
