package config

import (
	"fmt"
	"os"

	"github.com/Knetic/govaluate"
)

// EvaluateWhen evaluates a provider's `when` expression against the process
// environment. Each variable referenced by the expression resolves to the
// value of the environment variable of the same name; unset variables
// resolve to the empty string.
func EvaluateWhen(expr string) (bool, error) {
	evaluable, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return false, fmt.Errorf("invalid when expression %q: %w", expr, err)
	}

	parameters := make(map[string]interface{})
	for _, name := range evaluable.Vars() {
		parameters[name] = os.Getenv(name)
	}

	result, err := evaluable.Evaluate(parameters)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate when expression %q: %w", expr, err)
	}

	enabled, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("when expression %q did not evaluate to a boolean (got %T)", expr, result)
	}

	return enabled, nil
}
