// Command steward watches a running idle engine over its HTTP API and
// applies corrective actions through the admin endpoints.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/idle-engine/internal/steward"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	apiURL := envOrDefault("IDLE_API_URL", "http://localhost:8080")
	adminKey := os.Getenv("IDLE_ADMIN_KEY")
	memPath := envOrDefault("STEWARD_MEMORY", "data/steward_memory.json")
	intervalSec := envIntOrDefault("STEWARD_INTERVAL", 60)

	if adminKey == "" {
		slog.Error("IDLE_ADMIN_KEY is required")
		os.Exit(1)
	}

	interval := time.Duration(intervalSec) * time.Second
	slog.Info("steward starting", "api_url", apiURL, "interval", interval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := &steward.Steward{
		Observer: steward.NewObserver(apiURL),
		Actor:    steward.NewActor(apiURL, adminKey),
		Memory:   steward.LoadMemory(memPath),
		Policy:   steward.DefaultPolicy(),
	}

	slog.Info("waiting for engine API...")
	if !waitForAPI(ctx, s.Observer) {
		slog.Error("engine API not ready, giving up")
		os.Exit(1)
	}

	runCycle(ctx, s, memPath)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCycle(ctx, s, memPath)
		case <-ctx.Done():
			slog.Info("shutting down")
			fmt.Println("Steward stopped.")
			return
		}
	}
}

func runCycle(ctx context.Context, s *steward.Steward, memPath string) {
	d, err := s.RunCycle(ctx)
	if err != nil {
		slog.Error("steward cycle failed", "action", d.Action, "error", err)
		return
	}
	if err := s.Memory.Save(memPath); err != nil {
		slog.Warn("save steward memory", "error", err)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

// waitForAPI polls the status endpoint with exponential backoff until it
// responds. Gives up after 5 minutes or when ctx is cancelled.
func waitForAPI(ctx context.Context, obs *steward.Observer) bool {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		if obs.Ready(ctx) {
			slog.Info("engine API is ready")
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		slog.Info("engine API not ready, retrying", "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
