// Package provider selects and constructs model backends.
package provider

import (
	"context"
	"fmt"

	"github.com/WantedChef/chefchat/internal/config"
	"github.com/WantedChef/chefchat/internal/provider/gemini"
	"github.com/WantedChef/chefchat/internal/provider/models"
	"github.com/WantedChef/chefchat/internal/provider/openaichat"
)

// NewBackend builds the backend selected by the provider config.
func NewBackend(ctx context.Context, cfg *config.Config) (models.Backend, error) {
	switch cfg.Provider.Backend {
	case "openai":
		return openaichat.New(cfg.APIKey(), cfg.Provider.BaseURL), nil
	case "gemini":
		return gemini.New(ctx, cfg.APIKey())
	default:
		return nil, fmt.Errorf("unknown provider backend %q", cfg.Provider.Backend)
	}
}
