package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/m4xw311/llmsh/agent"
	"github.com/m4xw311/llmsh/agent/terminal"
	"github.com/m4xw311/llmsh/config"
	"github.com/m4xw311/llmsh/llm"
	"github.com/m4xw311/llmsh/session"
	"github.com/m4xw311/llmsh/tools"
)

func main() {
	providerFlag := flag.String("provider", "", "LLM provider: 'openai', 'anthropic', 'gemini', or 'bedrock'")
	modelFlag := flag.String("model", "", "Model identifier to use")
	themeFlag := flag.String("theme", "", "Markdown theme (glamour style name)")
	debugLogFlag := flag.String("debug-log", "", "Write debug logs to this file")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}
	if *providerFlag != "" {
		cfg.Provider = *providerFlag
	}
	if *modelFlag != "" {
		cfg.Model = *modelFlag
	}
	if *themeFlag != "" {
		cfg.Theme = *themeFlag
	}
	if *debugLogFlag != "" {
		cfg.DebugLog = *debugLogFlag
	}

	logger, err := newLogger(cfg.DebugLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening debug log: %+v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	var client llm.StreamClient
	switch cfg.Provider {
	case "openai":
		client, err = llm.NewOpenAIClient(cfg.APIBase, cfg.APIKey, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing OpenAI client: %+v\n", err)
			os.Exit(1)
		}
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
	case "anthropic":
		client, err = llm.NewAnthropicClient(logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing Anthropic client: %+v\n", err)
			os.Exit(1)
		}
		if cfg.Model == "" {
			cfg.Model = "claude-sonnet-4-20250514"
		}
	case "gemini":
		client, err = llm.NewGeminiClient(ctx, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing Gemini client: %+v\n", err)
			os.Exit(1)
		}
		if cfg.Model == "" {
			cfg.Model = "gemini-2.0-flash"
		}
	case "bedrock":
		client, err = llm.NewBedrockClient(ctx, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing Bedrock client: %+v\n", err)
			os.Exit(1)
		}
		if cfg.Model == "" {
			fmt.Fprintln(os.Stderr, "Bedrock requires an explicit model id (set model in config or -model)")
			os.Exit(1)
		}
	case "mock":
		client = &llm.MockStreamClient{Chunks: []llm.Chunk{{Text: "mock response"}}}
		if cfg.Model == "" {
			cfg.Model = "mock-model"
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown provider '%s'. Must be 'openai', 'anthropic', 'gemini', 'bedrock', or 'mock'.\n", cfg.Provider)
		os.Exit(1)
	}

	history := session.NewHistory(agent.BuildSystemPrompt())
	runner := tools.NewRunner(cfg.AutoApprove, logger)
	term := terminal.New(cfg.Theme, logger)
	a := agent.New(client, cfg.Model, history, runner, term, term, logger)

	initialPrompt := strings.Join(flag.Args(), " ")
	if err := term.Run(ctx, a, initialPrompt); err != nil {
		fmt.Fprintf(os.Stderr, "Session ended with an error: %+v\n", err)
		os.Exit(1)
	}
}

// newLogger builds a file-backed debug logger, or a no-op logger when no
// path is configured.
func newLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	zcfg.OutputPaths = []string{path}
	zcfg.ErrorOutputPaths = []string{path}
	return zcfg.Build()
}
