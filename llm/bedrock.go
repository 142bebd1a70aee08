package llm

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/m4xw311/llmsh/errors"
	"github.com/m4xw311/llmsh/session"
	"go.uber.org/zap"
)

// BedrockClient streams responses from Anthropic models hosted on AWS
// Bedrock. The request body follows the Anthropic-on-Bedrock wire
// format.
type BedrockClient struct {
	client *bedrockruntime.Client
	logger *zap.Logger
}

// NewBedrockClient creates a new BedrockClient. It requires AWS
// credentials to be configured in the environment.
func NewBedrockClient(ctx context.Context, logger *zap.Logger) (*BedrockClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BedrockClient{
		client: bedrockruntime.NewFromConfig(cfg),
		logger: logger,
	}, nil
}

// Stream invokes the model with a streaming response and returns a live
// chunk stream.
func (b *BedrockClient) Stream(ctx context.Context, model string, messages []session.Message) (*Stream, error) {
	bedrockMessages, systemPrompt := convertMessagesToBedrockFormat(messages)

	body, err := createBedrockRequest(bedrockMessages, systemPrompt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create Bedrock request")
	}

	sctx, cancel := context.WithCancel(ctx)
	resp, err := b.client.InvokeModelWithResponseStream(sctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "failed to invoke Bedrock model")
	}

	events := resp.GetStream()
	s := NewStream(func() {
		cancel()
		events.Close()
	}, b.logger)

	go b.pump(sctx, s, events)
	return s, nil
}

// pump translates Bedrock response-stream events into chunks. Records
// that fail to decode are skipped.
func (b *BedrockClient) pump(ctx context.Context, s *Stream, events *bedrockruntime.InvokeModelWithResponseStreamEventStream) {
	usage := Usage{}
	for event := range events.Events() {
		part, ok := event.(*types.ResponseStreamMemberChunk)
		if !ok {
			continue
		}

		var rec map[string]interface{}
		if err := json.Unmarshal(part.Value.Bytes, &rec); err != nil {
			b.logger.Debug("skipping malformed stream record", zap.Error(err))
			continue
		}

		chunk := Chunk{}
		switch rec["type"] {
		case "content_block_delta":
			if delta, ok := rec["delta"].(map[string]interface{}); ok {
				if text, ok := delta["text"].(string); ok {
					chunk.Text = text
				}
			}
		case "message_start":
			if msg, ok := rec["message"].(map[string]interface{}); ok {
				if u, ok := msg["usage"].(map[string]interface{}); ok {
					if v, ok := u["input_tokens"].(float64); ok {
						usage.PromptTokens = int(v)
					}
				}
			}
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
			u := usage
			chunk.Usage = &u
		case "message_delta":
			if u, ok := rec["usage"].(map[string]interface{}); ok {
				if v, ok := u["output_tokens"].(float64); ok {
					usage.CompletionTokens = int(v)
				}
			}
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
			u := usage
			chunk.Usage = &u
		}

		if chunk.Text == "" && chunk.Usage == nil {
			continue
		}
		if !s.send(ctx, chunk) {
			s.finish(ctx.Err())
			return
		}
	}
	s.finish(events.Err())
}

// Models is not supported for Bedrock; listing foundation models needs
// the separate control-plane API and credentials this client does not
// carry.
func (b *BedrockClient) Models(ctx context.Context) ([]ModelInfo, error) {
	return nil, errors.New("model listing is not supported for the bedrock provider")
}

// convertMessagesToBedrockFormat converts our internal message format to
// the Anthropic-on-Bedrock format.
func convertMessagesToBedrockFormat(messages []session.Message) ([]map[string]interface{}, string) {
	var bedrockMessages []map[string]interface{}
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case session.RoleSystem:
			systemPrompt = msg.Content
		case session.RoleAssistant:
			if msg.Content == "" {
				continue
			}
			bedrockMessages = append(bedrockMessages, map[string]interface{}{
				"role": "assistant",
				"content": []map[string]interface{}{
					{"type": "text", "text": msg.Content},
				},
			})
		default:
			bedrockMessages = append(bedrockMessages, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": msg.Content},
				},
			})
		}
	}
	return bedrockMessages, systemPrompt
}

// createBedrockRequest creates the request body for Anthropic models on
// Bedrock.
func createBedrockRequest(messages []map[string]interface{}, systemPrompt string) ([]byte, error) {
	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        4096,
		"messages":          messages,
	}
	if systemPrompt != "" {
		request["system"] = systemPrompt
	}
	return json.Marshal(request)
}
