package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/m4xw311/llmsh/errors"
	"github.com/m4xw311/llmsh/session"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/ssestream"
	"go.uber.org/zap"
)

// doneSentinel terminates an OpenAI-style event stream.
const doneSentinel = "[DONE]"

// OpenAIClient speaks the OpenAI-compatible chat completions protocol
// against any base URL (OpenAI, OpenRouter, llama.cpp, vLLM, ...). The
// streaming path decodes server-sent events itself so that a single
// malformed record is skipped instead of killing the turn; model listing
// goes through the official SDK.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	sdk     *openai.Client
	logger  *zap.Logger
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
// baseURL is the API root without the /v1 suffix.
func NewOpenAIClient(baseURL, apiKey string, logger *zap.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("API key not set (api_key in config or OPENAI_API_KEY)")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}

	c := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL+"/v1/"),
	)
	return &OpenAIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{},
		sdk:     &c,
		logger:  logger,
	}, nil
}

// chatRequest is the wire body for a streaming completion request.
type chatRequest struct {
	Model         string            `json:"model"`
	Messages      []session.Message `json:"messages"`
	Stream        bool              `json:"stream"`
	StreamOptions *streamOptions    `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatChunk is one decoded stream record. Cost is nonstandard but
// reported by OpenRouter-style endpoints.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		TotalTokens      int     `json:"total_tokens"`
		Cost             float64 `json:"cost"`
	} `json:"usage"`
}

// apiError is the structured error body returned on non-success status.
type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Stream issues the completion request and returns a live chunk stream.
// A non-success HTTP status is reported immediately with the message
// extracted from the structured error body when present.
func (c *OpenAIClient) Stream(ctx context.Context, model string, messages []session.Message) (*Stream, error) {
	body, err := json.Marshal(chatRequest{
		Model:         model,
		Messages:      messages,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode chat request")
	}

	sctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(sctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "failed to build chat request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "chat request failed")
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		cancel()
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Error.Message != "" {
			return nil, errors.New("API error: %s", ae.Error.Message)
		}
		return nil, errors.New("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	s := NewStream(func() {
		cancel()
		resp.Body.Close()
	}, c.logger)

	go c.pump(sctx, s, resp)
	return s, nil
}

// pump decodes server-sent events into chunks until the done sentinel,
// end of stream, or cancellation. Malformed records are skipped.
func (c *OpenAIClient) pump(ctx context.Context, s *Stream, resp *http.Response) {
	decoder := ssestream.NewDecoder(resp)
	defer decoder.Close()

	for decoder.Next() {
		data := decoder.Event().Data
		if strings.TrimSpace(string(data)) == doneSentinel {
			s.finish(nil)
			return
		}

		var rec chatChunk
		if err := json.Unmarshal(data, &rec); err != nil {
			c.logger.Debug("skipping malformed stream record", zap.Error(err))
			continue
		}

		chunk := Chunk{}
		if len(rec.Choices) > 0 {
			chunk.Text = rec.Choices[0].Delta.Content
		}
		if rec.Usage != nil && rec.Usage.TotalTokens > 0 {
			chunk.Usage = &Usage{
				PromptTokens:     rec.Usage.PromptTokens,
				CompletionTokens: rec.Usage.CompletionTokens,
				TotalTokens:      rec.Usage.TotalTokens,
				Cost:             rec.Usage.Cost,
			}
		}
		if chunk.Text == "" && chunk.Usage == nil {
			continue
		}
		if !s.send(ctx, chunk) {
			s.finish(ctx.Err())
			return
		}
	}

	// Decoder errors mean the connection dropped mid-stream; whatever
	// content already arrived is still usable.
	s.finish(decoder.Err())
}

// Models lists the models the endpoint advertises.
func (c *OpenAIClient) Models(ctx context.Context) ([]ModelInfo, error) {
	page, err := c.sdk.Models.List(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list models")
	}

	var out []ModelInfo
	for page != nil {
		for _, m := range page.Data {
			out = append(out, ModelInfo{ID: m.ID, Name: m.ID})
		}
		page, err = page.GetNextPage()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to page model list")
		}
	}
	return out, nil
}
