package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/BTreeMap/InterviewDeck/internal/models"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.params = params
	return m.resp, m.err
}

func mockClient(svc chatService) *Client {
	return &Client{chat: svc, model: "test-model", temperature: 0.7, maxCompletionTokens: 200}
}

func TestPreamble_Success(t *testing.T) {
	mock := &mockChatService{
		resp: openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "  Welcome to your session. \n"}},
			},
		},
	}
	client := mockClient(mock)

	out, err := client.Preamble(context.Background(), "Frontend > React Fundamentals", models.ComplexityEasy)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Welcome to your session." {
		t.Errorf("expected trimmed content, got %q", out)
	}
	if len(mock.params.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(mock.params.Messages))
	}
	if mock.params.Model != "test-model" {
		t.Errorf("expected configured model, got %q", mock.params.Model)
	}
}

func TestPreamble_ServiceError(t *testing.T) {
	client := mockClient(&mockChatService{err: errors.New("service failure")})
	_, err := client.Preamble(context.Background(), "Backend", models.ComplexityMedium)
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestPreamble_NoChoices(t *testing.T) {
	client := mockClient(&mockChatService{resp: openai.ChatCompletion{}})
	_, err := client.Preamble(context.Background(), "Backend", models.ComplexityMedium)
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected ErrNoChoicesReturned, got %v", err)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("test-model"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil || cli.model != "test-model" {
		t.Errorf("expected configured client, got %+v", cli)
	}
}
