package notebook

import (
	"context"
	"fmt"

	waypost "github.com/skyefallon/waypost"
	"github.com/skyefallon/waypost/internal/adapters"
)

// Tools returns the plan-mutation tool surface backed by this notebook.
// These are the only way the reasoner touches plan state.
func (n *Notebook) Tools() map[string]waypost.Tool {
	return map[string]waypost.Tool{
		"set_plan": adapters.NewGoToolAdapter("set_plan", n.setPlanTool,
			adapters.WithDescription("Create or replace the plan with a titled list of subtasks, all starting as todo."),
			adapters.WithCategory("plan"),
			adapters.WithParameters(map[string]string{
				"title":    "short plan title",
				"subtasks": "ordered list of subtask names",
			}),
		),
		"start_subtask": adapters.NewGoToolAdapter("start_subtask", n.startSubtaskTool,
			adapters.WithDescription("Mark one todo subtask as in progress. Only one subtask may be in progress at a time."),
			adapters.WithCategory("plan"),
			adapters.WithParameters(map[string]string{
				"index": "zero-based subtask index",
			}),
		),
		"complete_subtask": adapters.NewGoToolAdapter("complete_subtask", n.completeSubtaskTool,
			adapters.WithDescription("Mark the in-progress subtask as done."),
			adapters.WithCategory("plan"),
			adapters.WithParameters(map[string]string{
				"index": "zero-based subtask index",
			}),
		),
		"abandon_subtask": adapters.NewGoToolAdapter("abandon_subtask", n.abandonSubtaskTool,
			adapters.WithDescription("Give up on a subtask that is no longer worth pursuing."),
			adapters.WithCategory("plan"),
			adapters.WithParameters(map[string]string{
				"index": "zero-based subtask index",
			}),
		),
		"update_subtask_detail": adapters.NewGoToolAdapter("update_subtask_detail", n.updateDetailTool,
			adapters.WithDescription("Attach or replace free-form working notes on a subtask."),
			adapters.WithCategory("plan"),
			adapters.WithParameters(map[string]string{
				"index":  "zero-based subtask index",
				"detail": "markdown notes",
			}),
		),
		"show_plan": adapters.NewGoToolAdapter("show_plan", n.showPlanTool,
			adapters.WithDescription("Render the current plan as a markdown checklist."),
			adapters.WithCategory("plan"),
			adapters.WithReturns("markdown rendering of the plan, empty when no plan exists"),
		),
	}
}

func (n *Notebook) setPlanTool(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	title, _ := input["title"].(string)

	rawSubtasks, ok := input["subtasks"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("'subtasks' must be a list of names")
	}

	names := make([]string, 0, len(rawSubtasks))
	for i, raw := range rawSubtasks {
		name, isString := raw.(string)
		if !isString {
			return nil, fmt.Errorf("subtask %d is not a string", i)
		}
		names = append(names, name)
	}

	if err := n.SetPlan(ctx, title, names); err != nil {
		return nil, err
	}

	return map[string]interface{}{"plan": n.Current().Markdown()}, nil
}

func (n *Notebook) startSubtaskTool(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	index, err := indexArg(input)
	if err != nil {
		return nil, err
	}
	if err := n.StartSubtask(ctx, index); err != nil {
		return nil, err
	}
	return map[string]interface{}{"plan": n.Current().Markdown()}, nil
}

func (n *Notebook) completeSubtaskTool(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	index, err := indexArg(input)
	if err != nil {
		return nil, err
	}
	if err := n.CompleteSubtask(ctx, index); err != nil {
		return nil, err
	}
	return map[string]interface{}{"plan": n.Current().Markdown()}, nil
}

func (n *Notebook) abandonSubtaskTool(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	index, err := indexArg(input)
	if err != nil {
		return nil, err
	}
	if err := n.AbandonSubtask(ctx, index); err != nil {
		return nil, err
	}
	return map[string]interface{}{"plan": n.Current().Markdown()}, nil
}

func (n *Notebook) updateDetailTool(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	index, err := indexArg(input)
	if err != nil {
		return nil, err
	}
	detail, _ := input["detail"].(string)
	if err := n.UpdateDetail(ctx, index, detail); err != nil {
		return nil, err
	}
	return map[string]interface{}{"plan": n.Current().Markdown()}, nil
}

func (n *Notebook) showPlanTool(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{"plan": n.Current().Markdown()}, nil
}

// indexArg extracts the subtask index, tolerating the float64 that JSON
// decoding produces for numbers.
func indexArg(input map[string]interface{}) (int, error) {
	switch v := input["index"].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("'index' must be a number")
	}
}
