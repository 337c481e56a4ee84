package config

import (
	"fmt"
	"strings"
)

// Validate checks config values for correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	var errs []string

	switch c.Provider.Backend {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Sprintf("provider.backend must be \"openai\" or \"gemini\", got %q", c.Provider.Backend))
	}
	if c.Provider.Model == "" {
		errs = append(errs, "provider.model must not be empty")
	}
	if c.Provider.MaxTokens < 1 {
		errs = append(errs, "provider.max_tokens must be >= 1")
	}
	if c.Provider.InputPricePerMillion < 0 || c.Provider.OutputPricePerMillion < 0 {
		errs = append(errs, "provider prices must be >= 0")
	}

	if c.Agent.MaxTurns < 0 {
		errs = append(errs, "agent.max_turns must be >= 0")
	}
	if c.Agent.MaxPrice < 0 {
		errs = append(errs, "agent.max_price must be >= 0")
	}
	if c.Agent.AutoCompactThreshold < 0 {
		errs = append(errs, "agent.auto_compact_threshold must be >= 0")
	}
	if c.Agent.StreamBatchSize < 1 {
		errs = append(errs, "agent.stream_batch_size must be >= 1")
	}
	if c.Agent.ApprovalTTLSeconds < 1 {
		errs = append(errs, "agent.approval_ttl_seconds must be >= 1")
	}

	if c.Tools.MaxFileSize < 1 {
		errs = append(errs, "tools.max_file_size must be >= 1")
	}
	if c.Tools.DefaultListDirectoryLimit < 1 {
		errs = append(errs, "tools.default_list_directory_limit must be >= 1")
	}
	if c.Tools.DefaultMaxCommandOutputSize < 1 {
		errs = append(errs, "tools.default_max_command_output_size must be >= 1")
	}
	if c.Tools.DefaultShellTimeout < 1 {
		errs = append(errs, "tools.default_shell_timeout must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
