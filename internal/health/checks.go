package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"

	"github.com/frame-dx-server/internal/cache"
	"github.com/frame-dx-server/internal/database"
	"github.com/frame-dx-server/internal/feedback"
	"github.com/frame-dx-server/internal/kb"
)

// Frames reports the loaded snapshot. An empty store ranks nothing and is
// reported as degraded.
func Frames(holder *kb.Holder) Check {
	return framesCheck{holder: holder}
}

type framesCheck struct {
	holder *kb.Holder
}

func (framesCheck) Name() string { return "frames" }

func (f framesCheck) Check(context.Context) ComponentHealth {
	store := f.holder.Current()
	h := ComponentHealth{
		Name:   "frames",
		Status: StateHealthy,
		Metadata: map[string]interface{}{
			"version":  store.Version(),
			"frames":   store.Len(),
			"diseases": len(store.Diseases()),
		},
	}
	if len(store.Diseases()) == 0 {
		h.Status = StateDegraded
		h.Message = "no diagnosable frames loaded"
	}
	return h
}

// Database pings the history database. History is required once enabled.
func Database(db *database.DB) Check {
	return Func("database", true, db.Health)
}

// Redis reports the shared cache tier. The memory tier keeps serving when it
// fails, so a failure only degrades the service.
func Redis(c *cache.RedisCache) Check {
	return Func("redis", false, func(ctx context.Context) error {
		if c.State() == gobreaker.StateOpen {
			return errors.New("circuit breaker open")
		}
		return c.Ping(ctx)
	})
}

// Feedback verifies the feedback store can be queried.
func Feedback(store feedback.Store) Check {
	return Func("feedback", false, func(ctx context.Context) error {
		if _, err := store.Count(ctx); err != nil {
			return fmt.Errorf("count feedback: %w", err)
		}
		return nil
	})
}
