package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Paranoid-AF/shellm"
)

func TestRenderCommandPlacesContext(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render(Command, map[string]string{
		"context":             "C",
		"format_instructions": "respond with JSON",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "```sh\nC\n```")
	assert.Contains(t, out, "respond with JSON")
}

func TestRenderContextIsNotEscaped(t *testing.T) {
	r := NewRenderer()
	ctx := `$ echo "<b>&</b>" 'x'`
	out, err := r.Render(Question, map[string]string{"context": ctx})
	require.NoError(t, err)
	assert.Contains(t, out, ctx)
}

func TestRenderMissingVariable(t *testing.T) {
	r := NewRenderer()
	_, err := r.Render(Command, map[string]string{"context": "C"})
	var terr *shellm.TemplateError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "command", terr.Template)
}

func TestRenderUnparsableTemplate(t *testing.T) {
	r := NewRenderer()
	r.SetSource(Question, "{{.context")
	_, err := r.Render(Question, map[string]string{"context": "C"})
	var terr *shellm.TemplateError
	assert.True(t, errors.As(err, &terr))
}

func TestRenderRepair(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render(Repair, map[string]string{
		"instructions": "I",
		"completion":   "not json",
		"error":        "expected a JSON object, but found plain text",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "not json")
	assert.Contains(t, out, "expected a JSON object, but found plain text")
	assert.Contains(t, out, "Please try again.")
}

func TestMessagesKeepIntentSeparate(t *testing.T) {
	r := NewRenderer()
	system, err := r.Render(Command, map[string]string{"context": "C", "format_instructions": "F"})
	require.NoError(t, err)

	intent := "list files {{.context}}"
	msgs := Messages(system, intent)
	require.Len(t, msgs, 2)
	assert.Equal(t, shellm.RoleSystem, msgs[0].Role)
	assert.NotContains(t, msgs[0].Content, intent)
	assert.Equal(t, shellm.Message{Role: shellm.RoleUser, Content: intent}, msgs[1])
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHELLM_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "question_prompt.md"), []byte("custom {{.context}}"), 0o644))

	r := NewRenderer()
	r.LoadOverrides(zaptest.NewLogger(t))

	out, err := r.Render(Question, map[string]string{"context": "C"})
	require.NoError(t, err)
	assert.Equal(t, "custom C", out)

	// Command keeps the built-in template.
	out, err = r.Render(Command, map[string]string{"context": "C", "format_instructions": "F"})
	require.NoError(t, err)
	assert.Contains(t, out, "Your name is Shellm.")
}

func TestTemplateIDString(t *testing.T) {
	assert.Equal(t, "command", Command.String())
	assert.Equal(t, "question", Question.String())
	assert.Equal(t, "repair", Repair.String())
	assert.Equal(t, "template(9)", TemplateID(9).String())
}
