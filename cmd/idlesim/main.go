// Command idlesim runs the idle game clock: it reconciles the time the
// process was not running, then drives the live tick loop until stopped.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/idle-engine/internal/api"
	"github.com/talgya/idle-engine/internal/config"
	"github.com/talgya/idle-engine/internal/economy"
	"github.com/talgya/idle-engine/internal/engine"
	"github.com/talgya/idle-engine/internal/entropy"
	"github.com/talgya/idle-engine/internal/persistence"
	"github.com/talgya/idle-engine/internal/social"
	"github.com/talgya/idle-engine/internal/world"
)

// keepSlots is how many mechanics snapshots are retained.
const keepSlots = 5

func main() {
	cfg, err := config.Load(os.Getenv("IDLE_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	slog.Info("idle engine starting", "speed", cfg.Speed, "autosave_seconds", cfg.AutosaveSeconds)

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		slog.Error("failed to create data dir", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath())
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath())

	var random entropy.Source = entropy.Crypto{}
	if cfg.Seed != 0 {
		random = entropy.NewSeeded(cfg.Seed)
	}

	// ── Load or Create State ──────────────────────────────────────────
	saved, err := db.LoadEngineState()
	fresh := errors.Is(err, persistence.ErrNoState)
	if err != nil && !fresh {
		slog.Error("failed to load engine state", "error", err)
		os.Exit(1)
	}

	var (
		st       *engine.State
		ledger   *economy.Ledger
		factions *social.Registry
		speed    = cfg.Speed
	)
	if fresh {
		slog.Info("no saved state, starting a new game")
		st = engine.NewState(time.Now(), nil)
		ledger = economy.NewLedger()
		factions = social.NewRegistry(defaultFactions()...)
	} else {
		slog.Info("found saved state", "cycles", saved.Cycles, "last_update", saved.LastUpdate)
		st = engine.NewState(saved.LastUpdate, nil)
		st.Playtime = saved.Playtime
		st.Cycles = saved.Cycles
		ledger = saved.Ledger
		factions = social.NewRegistry(saved.Factions...)
		speed = saved.Speed
	}

	g, err := loadGame(db, cfg.Seed, ledger, factions, random)
	if err != nil {
		slog.Error("failed to load mechanics", "error", err)
		os.Exit(1)
	}
	g.hookDividends(ledger)

	w := world.New()
	w.Ledger = ledger
	w.Factions = factions
	g.wire(w, factions, ledger)

	// ── Engine ────────────────────────────────────────────────────────
	settings := config.NewSettings(cfg.AutosaveSeconds)
	var eng *engine.Engine

	// persist writes everything. Callers must hold the engine lock: autosave
	// runs inside a tick, other callers go through WithLock.
	persist := func() error {
		err := db.SaveEngineState(persistence.EngineState{
			LastUpdate: st.LastUpdate,
			Playtime:   st.Playtime,
			Cycles:     st.Cycles,
			Speed:      eng.Speed(),
			Counters:   st.Counters.Snapshot(),
			Ledger:     w.Ledger,
			Factions:   w.Factions.All(),
		})
		if err != nil {
			return err
		}
		if _, err := db.WriteSlot(slotName, g); err != nil {
			return err
		}
		if _, err := db.PruneSlots(slotName, keepSlots); err != nil {
			slog.Warn("prune save slots", "error", err)
		}
		events := st.DrainEvents()
		if err := db.SaveEvents(events); err != nil {
			st.Events = append(events, st.Events...)
			return fmt.Errorf("save events: %w", err)
		}
		return nil
	}
	saveNow := func() error {
		var err error
		eng.WithLock(func(*engine.State, *world.State) { err = persist() })
		return err
	}

	opts := engine.Options{
		Policy:   cfg.Policy,
		Settings: settings,
		Saver:    engine.SaverFunc(persist),
		Random:   random,
		Speed:    speed,
	}
	if !fresh {
		opts.Counters = saved.Counters
	}
	eng = engine.New(st, w, opts)
	if !fresh && saved.Speed == 0 {
		eng.SetSpeed(0)
	}

	// ── Offline Progress ──────────────────────────────────────────────
	summary := eng.Reconcile()
	if summary.Cycles > 0 {
		if err := db.SaveOfflineSummary(summary); err != nil {
			slog.Error("failed to record offline summary", "error", err)
		}
	}
	fmt.Println(summary.String())
	if err := saveNow(); err != nil {
		slog.Error("initial save failed", "error", err)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("IDLE_ADMIN_KEY not set, admin POST endpoints are disabled")
	}
	apiServer := &api.Server{
		Eng:      eng,
		DB:       db,
		Settings: settings,
		Save:     saveNow,
		Port:     cfg.APIPort,
		AdminKey: cfg.AdminKey,
	}
	apiServer.Start()

	// ── Run ───────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine stopped with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api shutdown", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := saveNow(); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Simulation stopped. State saved.")
}

// loadGame restores the mechanics from the latest save slot, or creates new
// ones when there is none.
func loadGame(db *persistence.DB, seed int64, ledger *economy.Ledger, factions *social.Registry, random entropy.Source) (*game, error) {
	slot, err := db.LatestSlot(slotName)
	if errors.Is(err, persistence.ErrNoSlot) {
		return newGame(seed, ledger, factions, random), nil
	}
	if err != nil {
		return nil, err
	}
	g := &game{}
	if err := db.ReadSlot(slot.ID, g); err != nil {
		return nil, err
	}
	g.attach(ledger, factions, random)
	slog.Info("mechanics restored", "slot", slot.ID, "saved_at", slot.CreatedAt)
	return g, nil
}
