package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Paranoid-AF/shellm"
)

// Generator performs text generation via an OpenAI-compatible API.
type Generator struct {
	baseURL     string
	apiKey      string
	model       string
	apiType     string // "responses" or "chat_completions"
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewGenerator creates a generator from config. The request deadline comes
// from the caller's context.
func NewGenerator(baseURL, apiKey, model, apiType string, maxTokens int, temperature float64) *Generator {
	return &Generator{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		apiType:     apiType,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      &http.Client{},
	}
}

// Invoke sends messages to the API and returns the reply text.
func (g *Generator) Invoke(ctx context.Context, messages []shellm.Message) (string, error) {
	if g.apiType == shellm.APITypeResponses {
		return g.invokeResponses(ctx, messages)
	}
	return g.invokeChatCompletions(ctx, messages)
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// --- Responses API ---

type responsesRequest struct {
	Model       string           `json:"model"`
	Input       []responsesInput `json:"input"`
	MaxTokens   int              `json:"max_output_tokens,omitempty"`
	Temperature float64          `json:"temperature"`
}

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesResponse struct {
	Output []responsesOutput `json:"output"`
	Error  *apiError         `json:"error,omitempty"`
}

type responsesOutput struct {
	Type    string             `json:"type"`
	Content []responsesContent `json:"content,omitempty"`
}

type responsesContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (g *Generator) invokeResponses(ctx context.Context, messages []shellm.Message) (string, error) {
	reqBody := responsesRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}
	for _, m := range messages {
		reqBody.Input = append(reqBody.Input, responsesInput{Role: string(m.Role), Content: m.Content})
	}

	body, err := g.post(ctx, "/responses", reqBody)
	if err != nil {
		return "", err
	}

	var result responsesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w (body: %s)", err, string(body))
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}

	for _, out := range result.Output {
		if out.Type == "message" {
			for _, c := range out.Content {
				if c.Type == "output_text" {
					return c.Text, nil
				}
			}
		}
	}
	return "", fmt.Errorf("no text content in response")
}

// --- Chat Completions API ---

type chatCompletionsRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

func (g *Generator) invokeChatCompletions(ctx context.Context, messages []shellm.Message) (string, error) {
	reqBody := chatCompletionsRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := g.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", err
	}

	var result chatCompletionsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w (body: %s)", err, string(body))
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}

// post sends a JSON request and returns the body of a 200 response.
func (g *Generator) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
