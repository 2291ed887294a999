package app

import (
	"context"
	"fmt"
	"os"

	"sprintdeck/internal/config"
	"sprintdeck/internal/gateway"
	"sprintdeck/internal/store"
)

// Session bundles everything a command needs: the resolved config, the
// remote client, and the hydrated in-memory store.
type Session struct {
	Workspace string
	Config    *config.Config
	Client    *gateway.Client
	Store     *store.Store
}

// ResolveConfig loads sprintdeck.yml, falling back to defaults when the
// workspace has no config yet. The SPRINTDECK_API_BASE_URL environment
// variable wins over the file.
func ResolveConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if v := os.Getenv("SPRINTDECK_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	return cfg, nil
}

// Open resolves config, builds the gateway client, and hydrates the store
// from the remote service. Overrides for actor and sprint take precedence
// over the persisted session selections.
func Open(ctx context.Context, workspace, actorOverride, sprintOverride string) (*Session, error) {
	cfg, err := ResolveConfig(workspace)
	if err != nil {
		return nil, err
	}
	client := gateway.New(cfg.API.BaseURL)

	users, err := client.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	sprints, err := client.ListSprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sprints: %w", err)
	}
	tasks, err := client.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	st := store.New()
	st.KeyPrefix = cfg.Project.Key
	st.Load(users, sprints, tasks)

	actor := actorOverride
	if actor == "" {
		actor = cfg.Session.Actor
	}
	if actor != "" {
		if _, ok := st.UserByID(actor); !ok {
			return nil, fmt.Errorf("unknown actor %q", actor)
		}
		st.ActorID = actor
	}
	sprint := sprintOverride
	if sprint == "" {
		sprint = cfg.Session.Sprint
	}
	if sprint != "" {
		st.CurrentSprintID = sprint
	}

	return &Session{
		Workspace: workspace,
		Config:    cfg,
		Client:    client,
		Store:     st,
	}, nil
}
