package llm

import (
	"encoding/json"
	"testing"

	"github.com/m4xw311/llmsh/session"
)

func TestConvertMessagesToBedrockFormat(t *testing.T) {
	messages := []session.Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "Hello, world!"},
		{Role: "assistant", Content: "Hi there."},
		{Role: "assistant", Content: ""},
	}

	result, system := convertMessagesToBedrockFormat(messages)
	if system != "be helpful" {
		t.Errorf("Expected system prompt 'be helpful', got '%s'", system)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 messages (empty assistant dropped), got %d", len(result))
	}
	if result[0]["role"] != "user" {
		t.Errorf("Expected role 'user', got '%s'", result[0]["role"])
	}
	if result[1]["role"] != "assistant" {
		t.Errorf("Expected role 'assistant', got '%s'", result[1]["role"])
	}
}

func TestCreateBedrockRequest(t *testing.T) {
	messages, system := convertMessagesToBedrockFormat([]session.Message{
		{Role: "system", Content: "context here"},
		{Role: "user", Content: "hi"},
	})

	body, err := createBedrockRequest(messages, system)
	if err != nil {
		t.Fatalf("createBedrockRequest: %v", err)
	}

	var req map[string]interface{}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if req["anthropic_version"] != "bedrock-2023-05-31" {
		t.Errorf("Expected anthropic_version 'bedrock-2023-05-31', got '%v'", req["anthropic_version"])
	}
	if req["system"] != "context here" {
		t.Errorf("Expected system 'context here', got '%v'", req["system"])
	}
	if _, ok := req["messages"]; !ok {
		t.Error("Expected messages in request body")
	}
}

func TestConvertMessagesToAnthropicMessages(t *testing.T) {
	messages := []session.Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi"},
	}

	result, system := convertMessagesToAnthropicMessages(messages)
	if system != "be helpful" {
		t.Errorf("Expected system prompt 'be helpful', got '%s'", system)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(result))
	}
}
