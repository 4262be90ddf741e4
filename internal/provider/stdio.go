package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	waypost "github.com/skyefallon/waypost"
)

// Stdio is a tool provider backed by a subprocess speaking MCP over
// stdin/stdout. The subprocess is launched on Connect and reaped on Close.
type Stdio struct {
	name string
	cfg  Config

	mutex  sync.Mutex
	client *client.Client
}

// NewStdio constructs an unconnected stdio provider. It is the default
// Manager factory.
func NewStdio(name string, cfg Config) waypost.ToolProvider {
	return &Stdio{
		name: name,
		cfg:  cfg,
	}
}

// Name returns the provider's configuration key.
func (s *Stdio) Name() string {
	return s.name
}

// Connect launches the configured command and performs the MCP handshake.
func (s *Stdio) Connect(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.client != nil {
		return fmt.Errorf("provider '%s' is already connected", s.name)
	}

	env := make([]string, 0, len(s.cfg.Env))
	for key, value := range s.cfg.Env {
		env = append(env, key+"="+value)
	}

	c, err := client.NewStdioMCPClient(s.cfg.Command, env, s.cfg.Args...)
	if err != nil {
		return fmt.Errorf("failed to launch '%s': %w", s.cfg.Command, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "waypost",
		Version: "0.1.0",
	}

	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return fmt.Errorf("handshake with '%s' failed: %w", s.name, err)
	}

	s.client = c
	return nil
}

// Capabilities lists the tools the connected subprocess advertises.
func (s *Stdio) Capabilities(ctx context.Context) ([]waypost.Capability, error) {
	c, err := s.connected()
	if err != nil {
		return nil, err
	}

	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools on '%s': %w", s.name, err)
	}

	caps := make([]waypost.Capability, 0, len(result.Tools))
	for _, tool := range result.Tools {
		schema := map[string]interface{}{
			"type": tool.InputSchema.Type,
		}
		if len(tool.InputSchema.Properties) > 0 {
			schema["properties"] = tool.InputSchema.Properties
		}
		if len(tool.InputSchema.Required) > 0 {
			schema["required"] = tool.InputSchema.Required
		}

		caps = append(caps, waypost.Capability{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}

	return caps, nil
}

// Call invokes a named capability and flattens the textual result content.
func (s *Stdio) Call(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
	c, err := s.connected()
	if err != nil {
		return nil, err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := c.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call to '%s.%s' failed: %w", s.name, name, err)
	}

	var text strings.Builder
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(tc.Text)
		}
	}

	if result.IsError {
		return nil, fmt.Errorf("'%s.%s' reported an error: %s", s.name, name, text.String())
	}

	return map[string]interface{}{
		"content": text.String(),
	}, nil
}

// Close terminates the subprocess. Safe to call on an unconnected provider.
func (s *Stdio) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.client == nil {
		return nil
	}

	err := s.client.Close()
	s.client = nil
	return err
}

func (s *Stdio) connected() (*client.Client, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.client == nil {
		return nil, fmt.Errorf("provider '%s' is not connected", s.name)
	}
	return s.client, nil
}
