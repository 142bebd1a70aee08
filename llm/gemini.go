package llm

import (
	"context"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/m4xw311/llmsh/errors"
	"github.com/m4xw311/llmsh/session"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiClient streams responses from the Google Gemini API.
type GeminiClient struct {
	client *genai.Client
	logger *zap.Logger
}

// NewGeminiClient creates a new GeminiClient. It requires the
// GEMINI_API_KEY environment variable to be set.
func NewGeminiClient(ctx context.Context, logger *zap.Logger) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}
	return &GeminiClient{client: client, logger: logger}, nil
}

// Stream sends the conversation and returns a live chunk stream.
func (g *GeminiClient) Stream(ctx context.Context, model string, messages []session.Message) (*Stream, error) {
	history, systemPrompt := convertMessagesToGeminiContent(messages)
	if len(history) == 0 {
		return nil, errors.New("no messages to send")
	}

	m := g.client.GenerativeModel(model)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}

	// The last message is the new prompt; everything before is history.
	last := history[len(history)-1]
	chat := m.StartChat()
	chat.History = history[:len(history)-1]

	sctx, cancel := context.WithCancel(ctx)
	iter := chat.SendMessageStream(sctx, last.Parts...)

	s := NewStream(cancel, g.logger)

	go func() {
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				s.finish(nil)
				return
			}
			if err != nil {
				s.finish(errors.Wrapf(err, "gemini stream failed"))
				return
			}

			chunk := Chunk{}
			if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
				for _, part := range resp.Candidates[0].Content.Parts {
					if text, ok := part.(genai.Text); ok {
						chunk.Text += string(text)
					}
				}
			}
			if resp.UsageMetadata != nil {
				chunk.Usage = &Usage{
					PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
					CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
					TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
				}
			}
			if chunk.Text == "" && chunk.Usage == nil {
				continue
			}
			if !s.send(sctx, chunk) {
				s.finish(sctx.Err())
				return
			}
		}
	}()

	return s, nil
}

// Models lists the models the Gemini API advertises.
func (g *GeminiClient) Models(ctx context.Context) ([]ModelInfo, error) {
	var out []ModelInfo
	iter := g.client.ListModels(ctx)
	for {
		m, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list models")
		}
		out = append(out, ModelInfo{ID: m.Name, Name: m.DisplayName})
	}
	return out, nil
}

// convertMessagesToGeminiContent converts our internal message format to
// Gemini's. The system message is carried separately as a system
// instruction.
func convertMessagesToGeminiContent(messages []session.Message) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemPrompt string

	for _, msg := range messages {
		if msg.Role == session.RoleSystem {
			systemPrompt = msg.Content
			continue
		}
		role := "user"
		if msg.Role == session.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents, systemPrompt
}
