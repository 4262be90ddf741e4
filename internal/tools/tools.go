// Package tools provides the built-in native tools every waypost process
// carries alongside provider-backed tools.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/google/uuid"

	waypost "github.com/skyefallon/waypost"
	"github.com/skyefallon/waypost/internal/adapters"
)

// SetupTools creates and returns a map of all built-in tools.
func SetupTools() map[string]waypost.Tool {
	return map[string]waypost.Tool{
		"clock": adapters.NewGoToolAdapter(
			"clock",
			CurrentTime,
			adapters.WithDescription("Returns the current date and time."),
			adapters.WithCategory("System"),
			adapters.WithReturns("Current time in RFC 3339 format."),
		),
		"random_id": adapters.NewGoToolAdapter(
			"random_id",
			RandomID,
			adapters.WithDescription("Generates a random unique identifier."),
			adapters.WithCategory("System"),
			adapters.WithReturns("A UUID string."),
		),
		"calculate": adapters.NewGoToolAdapter(
			"calculate",
			PerformCalculation,
			adapters.WithDescription("Evaluates a mathematical expression."),
			adapters.WithCategory("Math"),
			adapters.WithParameters(map[string]string{
				"expression": "Expression to evaluate (e.g., '5 * 9 + 2')",
			}),
			adapters.WithReturns("Evaluation result."),
			adapters.WithValidator(validateCalculationInput),
		),
	}
}

// CurrentTime reports the wall clock.
func CurrentTime(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	now := time.Now()
	return map[string]interface{}{
		"output": now.Format(time.RFC3339),
		"unix":   now.Unix(),
	}, nil
}

// RandomID generates a fresh UUID.
func RandomID(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{
		"output": uuid.New().String(),
	}, nil
}

// PerformCalculation evaluates the expression at key "expression".
func PerformCalculation(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	expression, ok := input["expression"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid or missing expression argument (expected string at key 'expression')")
	}

	evaluable, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}

	result, err := evaluable.Evaluate(nil)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	return map[string]interface{}{
		"output": fmt.Sprintf("%v", result),
	}, nil
}

// validateCalculationInput validates the input for the calculate tool.
func validateCalculationInput(input map[string]interface{}) error {
	expr, ok := input["expression"]
	if !ok {
		return fmt.Errorf("missing expression (expected at key 'expression')")
	}

	exprStr, ok := expr.(string)
	if !ok {
		return fmt.Errorf("expression must be a string, got %T", expr)
	}

	if len(exprStr) == 0 {
		return fmt.Errorf("expression cannot be empty")
	}

	if len(exprStr) > 200 {
		return fmt.Errorf("expression too long (max 200 characters)")
	}

	return nil
}
