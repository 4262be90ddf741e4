package tools

import (
	"context"
	"testing"
)

func TestSetupToolsRegistersAll(t *testing.T) {
	registered := SetupTools()

	for _, name := range []string{"clock", "random_id", "calculate"} {
		if _, exists := registered[name]; !exists {
			t.Errorf("expected built-in tool '%s'", name)
		}
	}
}

func TestPerformCalculation(t *testing.T) {
	result, err := PerformCalculation(context.Background(), map[string]interface{}{
		"expression": "5 * 9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["output"] != "45" {
		t.Errorf("expected 45, got %v", result["output"])
	}

	_, err = PerformCalculation(context.Background(), map[string]interface{}{
		"expression": "5 *",
	})
	if err == nil {
		t.Error("expected error for malformed expression")
	}
}

func TestRandomIDUnique(t *testing.T) {
	first, err := RandomID(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := RandomID(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first["output"] == second["output"] {
		t.Error("expected distinct identifiers")
	}
}
