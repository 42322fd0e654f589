package app

import (
	"context"
	"log"
	"time"

	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/state"
)

const defaultPollInterval = 10 * time.Second

// HealthChecker performs one health request.
type HealthChecker interface {
	Health(ctx context.Context) (*imgapi.Health, error)
}

// StartPoller launches a background goroutine that refreshes the store at a
// fixed cadence. It returns immediately.
func StartPoller(ctx context.Context, store *state.Store, client HealthChecker, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			refresh(ctx, store, client)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func refresh(ctx context.Context, store *state.Store, client HealthChecker) {
	start := time.Now()
	health, err := client.Health(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		store.Update(nil, 0, err)
		log.Printf("health poll failed: %v", err)
		return
	}
	store.Update(health, time.Since(start), nil)
}
