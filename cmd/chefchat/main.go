// Package main is the chefchat terminal coding agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/WantedChef/chefchat/internal/agent"
	"github.com/WantedChef/chefchat/internal/approval"
	"github.com/WantedChef/chefchat/internal/authorize"
	"github.com/WantedChef/chefchat/internal/config"
	"github.com/WantedChef/chefchat/internal/executor"
	"github.com/WantedChef/chefchat/internal/middleware"
	"github.com/WantedChef/chefchat/internal/mode"
	"github.com/WantedChef/chefchat/internal/provider"
	"github.com/WantedChef/chefchat/internal/session"
	"github.com/WantedChef/chefchat/internal/tool"
	"github.com/WantedChef/chefchat/internal/ui"
)

func main() {
	resume := flag.Bool("resume", false, "resume the most recent session")
	initialMode := flag.String("mode", "", "initial mode (plan, normal, auto, yolo, architect)")
	flag.Parse()

	if err := run(*resume, *initialMode); err != nil {
		fmt.Fprintf(os.Stderr, "chefchat: %v\n", err)
		os.Exit(1)
	}
}

func run(resume bool, initialMode string) error {
	workdir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}
	workdir, err = filepath.EvalSymlinks(workdir)
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	if err := config.LoadDotenv(workdir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	cfg, err := config.NewLoader().Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\nUsing default configuration.\n", err)
		cfg = config.DefaultConfig()
	}
	if cfg.APIKey() == "" {
		return fmt.Errorf("no API key: set %s in the environment or a .env file", cfg.Provider.APIKeyEnv)
	}

	modeName := cfg.Agent.InitialMode
	if initialMode != "" {
		modeName = initialMode
	}
	modes, err := mode.NewManager(mode.Mode(modeName))
	if err != nil {
		return err
	}

	ctx := context.Background()
	backend, err := provider.NewBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize provider: %w", err)
	}

	exec := executor.New(cfg, workdir)
	registry := tool.NewRegistry()
	for _, t := range []tool.Tool{
		tool.NewBashTool(exec, cfg),
		tool.NewReadFileTool(workdir, cfg),
		tool.NewWriteFileTool(workdir),
		tool.NewEditFileTool(workdir),
		tool.NewListDirectoryTool(workdir, cfg),
	} {
		if err := registry.Register(t); err != nil {
			return err
		}
	}

	approvals := make(chan approval.Request, 16)
	gate := approval.NewGate(
		time.Duration(cfg.Agent.ApprovalTTLSeconds)*time.Second,
		func(req approval.Request) {
			select {
			case approvals <- req:
			default:
			}
		},
	)
	authorizer := authorize.New(modes)

	middlewares := []middleware.Middleware{
		middleware.NewPriceLimit(cfg.Agent.MaxPrice),
		middleware.NewTurnLimit(cfg.Agent.MaxTurns),
		middleware.NewAutoCompact(cfg.Agent.AutoCompactThreshold),
	}
	if cfg.Agent.ContextWarnings {
		middlewares = append(middlewares, middleware.NewContextWarning(cfg.Agent.AutoCompactThreshold))
	}

	var store *session.Store
	var sess *session.Session
	if cfg.Sessions.Enabled {
		store, err = session.NewStore(cfg.Sessions.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: sessions disabled: %v\n", err)
		} else if resume {
			sess, err = store.FindLatest()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not resume: %v\n", err)
			}
		}
	}

	engine := agent.New(agent.Options{
		Config:       cfg,
		Backend:      backend,
		Registry:     registry,
		Authorizer:   authorizer,
		Gate:         gate,
		Modes:        modes,
		Pipeline:     middleware.NewPipeline(middlewares...),
		Store:        store,
		SystemPrompt: systemPrompt(workdir, registry),
		Session:      sess,
	})

	return ui.Run(ui.New(engine, modes, gate, cfg, approvals))
}

func systemPrompt(workdir string, registry *tool.Registry) string {
	return fmt.Sprintf(`You are chefchat, a coding agent working in a terminal.

Workspace root: %s
Available tools: %v

Use tools to inspect and change the workspace instead of guessing.
Paths are relative to the workspace root. Keep answers concise.`,
		workdir, registry.Names())
}
