// Package defaults provides embedded default assets (prompt templates and config).
package defaults

import _ "embed"

//go:embed command_prompt.md
var CommandPrompt string

//go:embed question_prompt.md
var QuestionPrompt string

//go:embed repair_prompt.md
var RepairPrompt string

//go:embed default_config.toml
var DefaultConfigTOML []byte
