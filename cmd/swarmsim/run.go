package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/semaphore"

	"github.com/talgya/swarmsim/internal/api"
	"github.com/talgya/swarmsim/internal/config"
	"github.com/talgya/swarmsim/internal/controller"
	"github.com/talgya/swarmsim/internal/engine"
	"github.com/talgya/swarmsim/internal/env"
	"github.com/talgya/swarmsim/internal/llm"
	"github.com/talgya/swarmsim/internal/persistence"
	"github.com/talgya/swarmsim/internal/rules"
	"github.com/talgya/swarmsim/internal/spatial"
	"github.com/talgya/swarmsim/internal/types"
)

func runHabitat(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// ── Store ─────────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755)
	db, err := persistence.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	slog.Info("store opened", "path", cfg.Store.Path)

	// ── Environment ───────────────────────────────────────────────────
	habitat := env.New(env.Options{
		Seed:          cfg.Seed,
		Pools:         cfg.Habitat.Pools,
		ExtraDynamics: cfg.Habitat.ExtraDynamics,
		EventSink:     db.AppendEvent,
	})

	// ── Generation collaborator ──────────────────────────────────────
	generator, err := buildGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	if generator == nil {
		slog.Info("cognitive path disabled, agents run on reflexes only")
	}

	timeout, _ := cfg.CognitiveTimeout()
	slots := semaphore.NewWeighted(max(cfg.LLM.MaxInFlight, 1))
	bus := controller.NewBus()

	// ── Agents ────────────────────────────────────────────────────────
	cycleInterval, _ := cfg.CycleInterval()
	tickInterval, _ := cfg.TickInterval()
	runtime := engine.NewRuntime(habitat, tickInterval, cycleInterval, cfg.Runtime.TickDelta)

	for i := 0; i < cfg.Runtime.Agents; i++ {
		agentID := fmt.Sprintf("agent-%02d", i)
		loc := spatial.Location{
			Host:      "local",
			Process:   fmt.Sprintf("proc-%d", i%2),
			Namespace: fmt.Sprintf("/work/cell-%d", i%4),
		}
		if err := habitat.AddAgent(agentID, loc, types.VisibilityHost); err != nil {
			return err
		}

		state, err := db.LoadAgentState(agentID)
		if err != nil {
			slog.Warn("failed to restore agent state", "agent", agentID, "error", err)
		}

		runtime.Register(controller.New(controller.Options{
			AgentID:          agentID,
			Env:              habitat,
			Reflexes:         rules.Defaults(),
			Generator:        generator,
			Source:           bus,
			Sink:             logSink{},
			CognitiveTimeout: timeout,
			CognitiveSlots:   slots,
			State:            state,
		}))
	}

	// Neighboring cells are wired for broadcast.
	for i := 0; i+1 < cfg.Runtime.Agents; i++ {
		habitat.Spatial.Connect(fmt.Sprintf("agent-%02d", i), fmt.Sprintf("agent-%02d", i+1))
	}

	// ── Observation API ──────────────────────────────────────────────
	if cfg.API.Enabled {
		server := &api.Server{Env: habitat, Runtime: runtime, Port: cfg.API.Port}
		server.Start()
	}

	// ── Run until signalled ──────────────────────────────────────────
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := runtime.Run(ctx)

	// Persist adaptive state on the way out.
	for _, c := range runtime.Controllers() {
		if err := db.SaveAgentState(c.AgentID(), c.State()); err != nil {
			slog.Warn("failed to save agent state", "agent", c.AgentID(), "error", err)
		}
		if err := db.SaveModeHistory(c.AgentID(), c.History(controller.ModeHistoryCapacity)); err != nil {
			slog.Warn("failed to save mode history", "agent", c.AgentID(), "error", err)
		}
	}
	slog.Info("agent state saved", "agents", len(runtime.Controllers()))

	return runErr
}

func buildGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	switch cfg.LLM.Provider {
	case "", "none":
		return nil, nil
	case "anthropic":
		client := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model)
		if client == nil {
			return nil, nil
		}
		return client, nil
	case "gemini":
		if cfg.LLM.APIKey == "" {
			return nil, nil
		}
		return llm.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// logSink is the default outbound dispatcher: domain actions that the
// environment does not execute are logged for external delivery.
type logSink struct{}

func (logSink) Dispatch(agentID string, actions []types.Action) {
	for _, a := range actions {
		slog.Info("outbound action",
			"agent", agentID,
			"type", a.Type,
			"target", a.Target,
			"mode", string(a.ProcessingMode),
			"confidence", a.Confidence,
		)
	}
}
