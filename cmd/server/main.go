// Command server wires the waypost runtime together: settings, prompts, the
// plan notebook, external tool providers, and the turn loop.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	waypost "github.com/skyefallon/waypost"
	"github.com/skyefallon/waypost/internal/adapters"
	"github.com/skyefallon/waypost/internal/cache"
	"github.com/skyefallon/waypost/internal/config"
	"github.com/skyefallon/waypost/internal/eventbus"
	"github.com/skyefallon/waypost/internal/notebook"
	"github.com/skyefallon/waypost/internal/prompt"
	"github.com/skyefallon/waypost/internal/provider"
	"github.com/skyefallon/waypost/internal/tools"
)

func main() {
	configPath := flag.String("config", "waypost.yaml", "path to the settings file")
	query := flag.String("query", "", "query to process")
	flag.Parse()

	if *query == "" {
		fmt.Fprintln(os.Stderr, "usage: server -query \"...\" [-config waypost.yaml]")
		os.Exit(2)
	}

	if err := run(*configPath, *query); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// run holds the whole lifecycle so deferred cleanup fires on every exit
// route, error or not.
func run(configPath, query string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load(configPath)
	if err != nil {
		return waypost.NewConfigurationError("failed to load settings", err)
	}

	g, err := genkit.Init(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{}),
		genkit.WithDefaultModel(settings.Model),
		genkit.WithPromptDir(settings.PromptDir),
	)
	if err != nil {
		return waypost.NewConfigurationError("failed to initialize genkit", err)
	}

	var bus eventbus.EventBus
	if settings.EventBus.Enabled {
		channelBus := eventbus.NewChannelEventBus(
			eventbus.WithBufferSize(settings.EventBus.BufferSize),
			eventbus.WithWorkerCount(settings.EventBus.WorkerCount),
			eventbus.WithRetries(settings.EventBus.MaxRetries, settings.EventBus.RetryInterval.Std()),
		)
		defer channelBus.Close()
		bus = channelBus

		if _, err := channelBus.SubscribeAll(logEvent); err != nil {
			log.Printf("Could not attach event logger: %v", err)
		}
	}

	// External tool providers: connect in declaration order, tear down in
	// reverse on every exit route.
	manager := provider.NewManager(
		provider.WithEventBus(bus),
		provider.WithConnectTimeout(settings.ConnectTimeout.Std()),
		provider.WithMaxConcurrentRefresh(settings.MaxConcurrentRefresh),
	)
	if err := manager.StartAll(ctx, settings.Providers); err != nil {
		return err
	}
	defer func() {
		// Shutdown gets its own deadline; the signal context may already
		// be cancelled.
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		manager.CloseAll(closeCtx)
	}()

	nb := notebook.New(
		notebook.WithPath(settings.PlanPath),
		notebook.WithEventBus(bus),
	)

	allTools := tools.SetupTools()
	for name, tool := range nb.Tools() {
		allTools[name] = tool
	}

	registry := manager.Registry()
	providers := make([]waypost.ToolProvider, 0, registry.Len())
	for _, name := range registry.Names() {
		if p, exists := registry.Get(name); exists {
			providers = append(providers, p)
		}
	}

	providerTools, err := adapters.ToolsFromProviders(ctx, providers, settings.MaxConcurrentRefresh)
	if err != nil {
		log.Printf("Some provider capabilities are unavailable: %v", err)
	}
	for name, tool := range providerTools {
		if _, taken := allTools[name]; taken {
			log.Printf("Provider tool '%s' shadowed by a built-in; skipping", name)
			continue
		}
		allTools[name] = tool
	}

	promptRegistry := prompt.NewRegistry(g)
	reasonerFlow := defineReasonerFlow(g, promptRegistry)

	decisionCache := cache.NewAdapter(cache.NewInMemoryCache(5 * time.Minute))
	reasoner := adapters.NewGenkitReasonerAdapter(reasonerFlow, decisionCache)

	runtimeConfig := waypost.DefaultConfig()
	runtimeConfig.MaxTurns = settings.MaxTurns
	runtimeConfig.ConnectTimeout = settings.ConnectTimeout.Std()
	runtimeConfig.MaxConcurrentRefresh = settings.MaxConcurrentRefresh
	runtimeConfig.EnableEventBus = settings.EventBus.Enabled

	options := []waypost.Option{
		waypost.WithConfig(runtimeConfig),
		waypost.WithNotebook(nb),
		waypost.WithReasoner(reasoner),
		waypost.WithCache(decisionCache),
		waypost.WithTools(allTools),
	}
	if bus != nil {
		options = append(options, waypost.WithEventBus(bus))
	}

	w, err := waypost.New(ctx, g, options...)
	if err != nil {
		return err
	}

	answer, err := w.Process(ctx, query)
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}

// defineReasonerFlow builds the genkit flow that backs the Reasoner: one
// prompt execution whose JSON response is parsed into a Decision.
func defineReasonerFlow(g *genkit.Genkit, registry *prompt.Registry) *core.Flow[*waypost.ReasonerInput, *waypost.Decision, struct{}] {
	return genkit.DefineFlow(g, "reasoner",
		func(ctx context.Context, input *waypost.ReasonerInput) (*waypost.Decision, error) {
			observations, err := json.Marshal(input.Observations)
			if err != nil {
				return nil, fmt.Errorf("failed to encode observations: %w", err)
			}
			schemas, err := json.Marshal(input.ToolSchema)
			if err != nil {
				return nil, fmt.Errorf("failed to encode tool schemas: %w", err)
			}

			resp, err := registry.ExecutePrompt(ctx, "reasoner", map[string]interface{}{
				"query":        input.Query,
				"hint":         input.Hint,
				"observations": string(observations),
				"tools":        string(schemas),
			})
			if err != nil {
				return nil, err
			}

			return parseDecision(resp)
		})
}

// parseDecision extracts a Decision from the model response, tolerating
// markdown code fences around the JSON.
func parseDecision(resp *ai.ModelResponse) (*waypost.Decision, error) {
	text := strings.TrimSpace(resp.Text())
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var decision waypost.Decision
	if err := json.Unmarshal([]byte(text), &decision); err != nil {
		return nil, fmt.Errorf("model response is not a valid decision: %w", err)
	}

	if decision.FinalAnswer == "" && decision.ToolName == "" {
		return nil, fmt.Errorf("model response carries neither a final answer nor a tool call")
	}

	return &decision, nil
}

// logEvent is the default event sink: structured one-line JSON via the
// standard logger.
func logEvent(ctx context.Context, event eventbus.Event) error {
	entry := map[string]interface{}{
		"type":   event.Type(),
		"source": event.Source(),
		"ts":     time.Unix(0, event.Timestamp()).Format(time.RFC3339),
	}
	for k, v := range event.Metadata() {
		entry[k] = v
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	log.Println(string(encoded))
	return nil
}
