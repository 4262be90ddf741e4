package adapters

import (
	"context"
	"errors"
	"testing"

	waypost "github.com/skyefallon/waypost"
)

type stubProvider struct {
	name    string
	caps    []waypost.Capability
	capsErr error
	lastOp  string
}

func (s *stubProvider) Name() string                      { return s.name }
func (s *stubProvider) Connect(ctx context.Context) error { return nil }

func (s *stubProvider) Capabilities(ctx context.Context) ([]waypost.Capability, error) {
	return s.caps, s.capsErr
}

func (s *stubProvider) Call(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
	s.lastOp = name
	return map[string]interface{}{"content": "done"}, nil
}

func TestProviderToolAdapter_Execute(t *testing.T) {
	p := &stubProvider{name: "files"}
	adapter := NewProviderToolAdapter(p, waypost.Capability{
		Name:        "read_file",
		Description: "Read a file",
		InputSchema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"path"},
		},
	})

	_, err := adapter.Execute(context.Background(), map[string]interface{}{})
	if err == nil {
		t.Error("expected validation error for missing required field")
	}

	result, err := adapter.Execute(context.Background(), map[string]interface{}{"path": "/tmp/x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["content"] != "done" {
		t.Errorf("unexpected result: %v", result)
	}
	if p.lastOp != "read_file" {
		t.Errorf("expected call to read_file, got %s", p.lastOp)
	}
}

func TestProviderToolAdapter_Schema(t *testing.T) {
	p := &stubProvider{name: "files"}
	adapter := NewProviderToolAdapter(p, waypost.Capability{
		Name:        "read_file",
		Description: "Read a file",
	})

	schema := adapter.Schema()
	if schema["provider"] != "files" {
		t.Errorf("expected provider 'files' in schema, got %v", schema["provider"])
	}
	if schema["category"] != "external" {
		t.Errorf("expected category 'external', got %v", schema["category"])
	}
}

func TestToolsFromProviders_CollisionPrefixing(t *testing.T) {
	first := &stubProvider{name: "alpha", caps: []waypost.Capability{{Name: "search"}}}
	second := &stubProvider{name: "bravo", caps: []waypost.Capability{{Name: "search"}}}

	tools, err := ToolsFromProviders(context.Background(), []waypost.ToolProvider{first, second}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, exists := tools["search"]; !exists {
		t.Error("expected 'search' tool from first provider")
	}
	if _, exists := tools["bravo.search"]; !exists {
		t.Error("expected prefixed 'bravo.search' tool from second provider")
	}
}

func TestToolsFromProviders_ListingFailure(t *testing.T) {
	broken := &stubProvider{name: "broken", capsErr: errors.New("pipe closed")}

	_, err := ToolsFromProviders(context.Background(), []waypost.ToolProvider{broken}, 1)
	if err == nil {
		t.Error("expected error when capability listing fails")
	}
}
