package llm

import (
	"context"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m4xw311/llmsh/errors"
	"github.com/m4xw311/llmsh/session"
	"go.uber.org/zap"
)

// AnthropicClient streams responses from the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	logger *zap.Logger
}

// NewAnthropicClient creates a new AnthropicClient. It requires the
// ANTHROPIC_API_KEY environment variable to be set.
func NewAnthropicClient(logger *zap.Logger) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicClient{client: &client, logger: logger}, nil
}

// Stream sends the conversation and returns a live chunk stream. Input
// token counts arrive with the message_start event and output counts
// with message_delta events, so usage firms up as the stream runs.
func (a *AnthropicClient) Stream(ctx context.Context, model string, messages []session.Message) (*Stream, error) {
	anthropicMessages, systemPrompt := convertMessagesToAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		Messages:  anthropicMessages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	sctx, cancel := context.WithCancel(ctx)
	events := a.client.Messages.NewStreaming(sctx, params)

	s := NewStream(func() {
		cancel()
		events.Close()
	}, a.logger)

	go func() {
		usage := Usage{}
		for events.Next() {
			event := events.Current()
			chunk := Chunk{}
			switch ev := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				usage.PromptTokens = int(ev.Message.Usage.InputTokens)
				usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
				u := usage
				chunk.Usage = &u
			case anthropic.ContentBlockDeltaEvent:
				if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
					chunk.Text = d.Text
				}
			case anthropic.MessageDeltaEvent:
				usage.CompletionTokens = int(ev.Usage.OutputTokens)
				usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
				u := usage
				chunk.Usage = &u
			}
			if chunk.Text == "" && chunk.Usage == nil {
				continue
			}
			if !s.send(sctx, chunk) {
				s.finish(sctx.Err())
				return
			}
		}
		s.finish(events.Err())
	}()

	return s, nil
}

// Models lists the models the Anthropic API advertises.
func (a *AnthropicClient) Models(ctx context.Context) ([]ModelInfo, error) {
	page, err := a.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list models")
	}

	var out []ModelInfo
	for _, m := range page.Data {
		out = append(out, ModelInfo{ID: string(m.ID), Name: m.DisplayName})
	}
	return out, nil
}

// convertMessagesToAnthropicMessages converts our internal message
// format to Anthropic's. The system message is carried separately.
func convertMessagesToAnthropicMessages(messages []session.Message) ([]anthropic.MessageParam, string) {
	var anthropicMessages []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case session.RoleSystem:
			// The last system message wins.
			systemPrompt = msg.Content
		case session.RoleAssistant:
			if msg.Content == "" {
				continue
			}
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{{
					OfText: &anthropic.TextBlockParam{Text: msg.Content},
				}},
			})
		default:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return anthropicMessages, systemPrompt
}
