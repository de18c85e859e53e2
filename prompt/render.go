// Package prompt renders the system prompts sent to the model.
package prompt

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/Paranoid-AF/shellm"
	defaults "github.com/Paranoid-AF/shellm/default"
)

// TemplateID selects one of the fixed prompt templates.
type TemplateID int

const (
	// Command asks the model for a single recommended command.
	// Variables: context, format_instructions.
	Command TemplateID = iota
	// Question asks the model for a free-form answer. Variables: context.
	Question
	// Repair asks the model to fix a reply that failed validation.
	// Variables: instructions, completion, error.
	Repair
)

func (id TemplateID) String() string {
	switch id {
	case Command:
		return "command"
	case Question:
		return "question"
	case Repair:
		return "repair"
	default:
		return fmt.Sprintf("template(%d)", int(id))
	}
}

// overrideFile is the name of the user file replacing a built-in template.
// Repair has no override.
func (id TemplateID) overrideFile() string {
	switch id {
	case Command:
		return "command_prompt.md"
	case Question:
		return "question_prompt.md"
	default:
		return ""
	}
}

func builtin(id TemplateID) string {
	switch id {
	case Command:
		return defaults.CommandPrompt
	case Question:
		return defaults.QuestionPrompt
	case Repair:
		return defaults.RepairPrompt
	default:
		return ""
	}
}

// Renderer holds the template sources used for one invocation.
type Renderer struct {
	sources map[TemplateID]string
}

// NewRenderer returns a renderer over the built-in templates.
func NewRenderer() *Renderer {
	return &Renderer{sources: map[TemplateID]string{
		Command:  builtin(Command),
		Question: builtin(Question),
		Repair:   builtin(Repair),
	}}
}

// LoadOverrides replaces built-in templates with user files from the config
// directory when they exist.
func (r *Renderer) LoadOverrides(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, id := range []TemplateID{Command, Question} {
		path := shellm.PromptOverridePath(id.overrideFile())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		logger.Debug("loaded custom prompt", zap.Stringer("template", id), zap.String("path", path))
		r.sources[id] = string(data)
	}
}

// SetSource replaces the source of one template.
func (r *Renderer) SetSource(id TemplateID, src string) {
	r.sources[id] = src
}

// Render executes template id with vars. A variable referenced by the
// template but absent from vars is a *shellm.TemplateError.
func (r *Renderer) Render(id TemplateID, vars map[string]string) (string, error) {
	src, ok := r.sources[id]
	if !ok {
		return "", &shellm.TemplateError{Template: id.String(), Err: fmt.Errorf("unknown template")}
	}

	t, err := template.New(id.String()).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", &shellm.TemplateError{Template: id.String(), Err: err}
	}

	var buf strings.Builder
	if err := t.Execute(&buf, vars); err != nil {
		return "", &shellm.TemplateError{Template: id.String(), Err: err}
	}
	return strings.TrimSpace(buf.String()), nil
}

// Messages pairs a rendered system prompt with the user's intent. The intent
// is sent as its own user turn, never substituted into the template.
func Messages(system, intent string) []shellm.Message {
	return []shellm.Message{
		{Role: shellm.RoleSystem, Content: system},
		{Role: shellm.RoleUser, Content: intent},
	}
}
