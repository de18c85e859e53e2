package shellm

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	defaults "github.com/Paranoid-AF/shellm/default"
)

// API types understood by the generate package.
const (
	APITypeChatCompletions = "chat_completions"
	APITypeResponses       = "responses"
	APITypeGemini          = "gemini"
)

// Clipboard sinks understood by the confirm package.
const (
	ClipboardSystem = "system"
	ClipboardOSC52  = "osc52"
)

// Config represents the user's shellm configuration.
type Config struct {
	Model   ModelConfig   `toml:"model"`
	Parser  ParserConfig  `toml:"parser"`
	Context ContextConfig `toml:"context"`
	Output  OutputConfig  `toml:"output"`

	// unknown holds keys present in the config file that shellm does not use.
	unknown []string
}

// ModelConfig holds settings for the model gateway.
type ModelConfig struct {
	APIType        string  `toml:"api_type"`
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	GeminiModel    string  `toml:"gemini_model"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// ParserConfig holds settings for the repairing parser.
type ParserConfig struct {
	MaxRepairRounds int  `toml:"max_repair_rounds"`
	CheckSyntax     bool `toml:"check_syntax"`
}

// ContextConfig controls how the terminal transcript is captured.
type ContextConfig struct {
	HistoryLines int  `toml:"history_lines"`
	Redact       bool `toml:"redact"`
}

// OutputConfig controls how results are presented.
type OutputConfig struct {
	RenderMarkdown bool   `toml:"render_markdown"`
	Clipboard      string `toml:"clipboard"`
}

// Timeout returns the per-call model timeout.
func (m ModelConfig) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// ConfigDir returns the config directory path.
// Resolution order: $SHELLM_CONFIG_DIR > $XDG_CONFIG_HOME/shellm > ~/.config/shellm
func ConfigDir() string {
	if dir := os.Getenv("SHELLM_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "shellm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "shellm-config")
	}
	return filepath.Join(home, ".config", "shellm")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// EnvPath returns the path of the optional dotenv file.
func EnvPath() string {
	return filepath.Join(ConfigDir(), ".env")
}

// PromptOverridePath returns the path of a user prompt override file.
func PromptOverridePath(name string) string {
	return filepath.Join(ConfigDir(), name)
}

// DefaultConfig returns the default configuration from the embedded default_config.toml.
func DefaultConfig() *Config {
	var cfg Config
	if _, err := toml.Decode(string(defaults.DefaultConfigTOML), &cfg); err != nil {
		panic("shellm: invalid embedded default_config.toml: " + err.Error())
	}
	return &cfg
}

// LoadEnvFile loads the dotenv file from the config directory, if any.
// Variables already present in the environment win.
func LoadEnvFile() error {
	path := EnvPath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads config from disk on top of the defaults, then applies
// environment overrides. A missing file yields the defaults.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	path := ConfigPath()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, key := range md.Undecoded() {
			cfg.unknown = append(cfg.unknown, key.String())
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config values with their environment counterparts.
func applyEnv(cfg *Config) error {
	if apiType := os.Getenv("SHELLM_API_TYPE"); apiType != "" {
		cfg.Model.APIType = apiType
	}
	if v := os.Getenv("SHELLM_MAX_REPAIR_ROUNDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SHELLM_MAX_REPAIR_ROUNDS: %w", err)
		}
		cfg.Parser.MaxRepairRounds = n
	}
	return nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	for _, key := range cfg.unknown {
		warnings = append(warnings, fmt.Sprintf("unknown config key %q", key))
	}
	switch cfg.Model.APIType {
	case APITypeChatCompletions, APITypeResponses, APITypeGemini:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown api_type %q; using %s", cfg.Model.APIType, APITypeChatCompletions))
	}
	if cfg.Parser.MaxRepairRounds < 0 {
		warnings = append(warnings, "max_repair_rounds is negative; repair is disabled")
	}
	switch cfg.Output.Clipboard {
	case ClipboardSystem, ClipboardOSC52:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown clipboard %q; using %s", cfg.Output.Clipboard, ClipboardSystem))
	}
	return warnings
}

// APIKeyEnv returns the environment variable holding the credential for the
// configured backend.
func APIKeyEnv(cfg *Config) string {
	if cfg != nil && cfg.Model.APIType == APITypeGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// ResolveAPIKey returns the API key for the configured backend.
// Priority: backend env var > config value.
func ResolveAPIKey(cfg *Config) string {
	if key := os.Getenv(APIKeyEnv(cfg)); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Model.APIKey
	}
	return ""
}

// RequireAPIKey returns the API key or a *MissingCredentialError.
func RequireAPIKey(cfg *Config) (string, error) {
	key := strings.TrimSpace(ResolveAPIKey(cfg))
	if key == "" {
		return "", &MissingCredentialError{Env: APIKeyEnv(cfg)}
	}
	return key, nil
}

// ResolveBaseURL returns the OpenAI-compatible API base URL.
// Priority: $SHELLM_OPENAI_BASE_URL env > config value.
func ResolveBaseURL(cfg *Config) string {
	if url := os.Getenv("SHELLM_OPENAI_BASE_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	if cfg != nil {
		return strings.TrimRight(cfg.Model.BaseURL, "/")
	}
	return ""
}

// ResolveModel returns the model name for the configured backend.
// Priority for OpenAI backends: $SHELLM_OPENAI_MODEL env > config value.
func ResolveModel(cfg *Config) string {
	if cfg != nil && cfg.Model.APIType == APITypeGemini {
		return cfg.Model.GeminiModel
	}
	if model := os.Getenv("SHELLM_OPENAI_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Model.Model
	}
	return ""
}

// DebugEnabled reports whether DEBUG=true is set.
func DebugEnabled() bool {
	return os.Getenv("DEBUG") == "true"
}
