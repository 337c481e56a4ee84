package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Provider ProviderConfig `json:"provider"`
	Agent    AgentConfig    `json:"agent"`
	Tools    ToolsConfig    `json:"tools"`
	Sessions SessionsConfig `json:"sessions"`
}

// ProviderConfig selects and parameterizes the model backend.
type ProviderConfig struct {
	// Backend is "openai" (any OpenAI-compatible endpoint) or "gemini".
	Backend string `json:"backend"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	// Keys are read from the process environment or a .env file; they are
	// never forwarded to subprocesses.
	APIKeyEnv string `json:"api_key_env"`

	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`

	// Prices in dollars per million tokens, used by the spend-cap middleware.
	InputPricePerMillion  float64 `json:"input_price_per_million"`
	OutputPricePerMillion float64 `json:"output_price_per_million"`
}

// AgentConfig bounds the conversation loop.
type AgentConfig struct {
	MaxTurns int     `json:"max_turns"` // 0 disables the turn cap
	MaxPrice float64 `json:"max_price"` // 0 disables the spend cap

	// AutoCompactThreshold is the context-token estimate at which the
	// conversation is compacted. 0 disables compaction and warnings.
	AutoCompactThreshold int  `json:"auto_compact_threshold"`
	ContextWarnings      bool `json:"context_warnings"`

	Streaming bool `json:"streaming"`
	// StreamBatchSize is how many content-bearing fragments are coalesced
	// into one assistant-text event. 1 means every fragment.
	StreamBatchSize int `json:"stream_batch_size"`

	// ApprovalTTLSeconds is how long a pending tool approval may wait before
	// it is resolved as denied.
	ApprovalTTLSeconds int `json:"approval_ttl_seconds"`

	InitialMode string `json:"initial_mode"`
}

// ToolsConfig parameterizes the builtin tools and the command executor.
type ToolsConfig struct {
	MaxFileSize                 int64 `json:"max_file_size"`                   // Default: 20MB
	DefaultListDirectoryLimit   int   `json:"default_list_directory_limit"`    // Default: 1000
	DefaultMaxCommandOutputSize int64 `json:"default_max_command_output_size"` // Default: 10MB
	DefaultShellTimeout         int   `json:"default_shell_timeout"`           // Default: 600 seconds

	// Bash permission lists. Allowlist/denylist entries are command prefixes;
	// DenylistStandalone entries match a bare command with no arguments.
	BashAllowlist          []string `json:"bash_allowlist"`
	BashDenylist           []string `json:"bash_denylist"`
	BashDenylistStandalone []string `json:"bash_denylist_standalone"`

	// ExtraExecutables extends the executor's built-in executable allowlist.
	ExtraExecutables []string `json:"extra_executables"`
}

// SessionsConfig controls the on-disk session log.
type SessionsConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"` // empty means ~/.local/state/chefchat/sessions
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Backend:               "openai",
			Model:                 "gpt-4o",
			APIKeyEnv:             "OPENAI_API_KEY",
			Temperature:           0.2,
			MaxTokens:             8192,
			InputPricePerMillion:  2.5,
			OutputPricePerMillion: 10,
		},
		Agent: AgentConfig{
			MaxTurns:             40,
			MaxPrice:             0,
			AutoCompactThreshold: 80_000,
			ContextWarnings:      true,
			Streaming:            true,
			StreamBatchSize:      5,
			ApprovalTTLSeconds:   300,
			InitialMode:          "normal",
		},
		Tools: ToolsConfig{
			MaxFileSize:                 20 * 1024 * 1024,
			DefaultListDirectoryLimit:   1000,
			DefaultMaxCommandOutputSize: 10 * 1024 * 1024,
			DefaultShellTimeout:         600,
			BashAllowlist: []string{
				"ls", "cat", "head", "tail", "wc", "pwd", "echo", "file", "stat",
				"grep", "find", "which", "tree",
				"git status", "git log", "git diff", "git show", "git branch",
			},
			BashDenylist: []string{
				"rm -rf /", "rm -fr /", "sudo", "shutdown", "reboot", "mkfs",
				"dd if=", ":(){",
			},
			BashDenylistStandalone: []string{"rm", "dd", "halt"},
		},
		Sessions: SessionsConfig{
			Enabled: true,
		},
	}
}
