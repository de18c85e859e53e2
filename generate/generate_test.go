package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Paranoid-AF/shellm"
)

var testMessages = []shellm.Message{
	{Role: shellm.RoleSystem, Content: "sys"},
	{Role: shellm.RoleUser, Content: "list files"},
}

func TestGeneratorChatCompletions(t *testing.T) {
	var got chatCompletionsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ls -la"}}]}`))
	}))
	defer srv.Close()

	g := NewGenerator(srv.URL, "sk-test", "gpt-4o-mini", shellm.APITypeChatCompletions, 0, 0)
	reply, err := g.Invoke(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, "ls -la", reply)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "list files"}, got.Messages[1])
}

func TestGeneratorResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		var req responsesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Input, 2)
		w.Write([]byte(`{"output":[{"type":"reasoning"},{"type":"message","content":[{"type":"output_text","text":"pwd"}]}]}`))
	}))
	defer srv.Close()

	g := NewGenerator(srv.URL, "", "gpt-4o-mini", shellm.APITypeResponses, 0, 0)
	reply, err := g.Invoke(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, "pwd", reply)
}

func TestGeneratorErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"status", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, "status 401"},
		{"api error", http.StatusOK, `{"error":{"message":"quota"}}`, "quota"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"malformed", http.StatusOK, `not json`, "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			gw := &boundedGateway{
				next:   NewGenerator(srv.URL, "k", "m", shellm.APITypeChatCompletions, 0, 0),
				logger: zaptest.NewLogger(t),
			}
			_, err := gw.Invoke(context.Background(), testMessages)
			require.Error(t, err)
			assert.ErrorIs(t, err, shellm.ErrModelUnavailable)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBoundedGatewayTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	gw := &boundedGateway{
		next:    NewGenerator(srv.URL, "k", "m", shellm.APITypeChatCompletions, 0, 0),
		timeout: 50 * time.Millisecond,
		logger:  zaptest.NewLogger(t),
	}
	_, err := gw.Invoke(context.Background(), testMessages)
	assert.ErrorIs(t, err, shellm.ErrModelTimeout)
	assert.NotErrorIs(t, err, shellm.ErrModelUnavailable)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(context.DeadlineExceeded), shellm.ErrModelTimeout)
	assert.ErrorIs(t, classify(errors.New("dial tcp: connection refused")), shellm.ErrModelUnavailable)

	already := classify(errors.New("x"))
	assert.Equal(t, already, classify(already))
}

func TestGeminiContents(t *testing.T) {
	contents, system := geminiContents([]shellm.Message{
		{Role: shellm.RoleSystem, Content: "a"},
		{Role: shellm.RoleSystem, Content: "b"},
		{Role: shellm.RoleUser, Content: "q"},
		{Role: shellm.RoleAssistant, Content: "r"},
	})
	assert.Equal(t, "a\n\nb", system)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", string(contents[0].Role))
	assert.Equal(t, "q", contents[0].Parts[0].Text)
	assert.Equal(t, "model", string(contents[1].Role))
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := shellm.DefaultConfig()
	gw, err := New(context.Background(), cfg, "sk", zaptest.NewLogger(t))
	require.NoError(t, err)
	bounded, ok := gw.(*boundedGateway)
	require.True(t, ok)
	assert.IsType(t, &Generator{}, bounded.next)
	assert.Equal(t, 60*time.Second, bounded.timeout)

	cfg.Model.APIType = shellm.APITypeGemini
	_, err = New(context.Background(), cfg, "", nil)
	assert.ErrorIs(t, err, shellm.ErrModelUnavailable)
}
