package maintenance

import (
	"context"
	"log"
	"time"
)

// SchedulerConfig controls the background maintenance loop.
type SchedulerConfig struct {
	Interval time.Duration
	Enabled  bool
	// RunOnStart triggers one pass before the first tick.
	RunOnStart bool
}

// Schedule starts a background goroutine that calls Run every interval. The
// returned channel stops it; so does cancelling ctx. A disabled config
// returns nil.
func (s *Service) Schedule(ctx context.Context, cfg SchedulerConfig) chan struct{} {
	if !cfg.Enabled {
		log.Println("Automatic maintenance is disabled")
		return nil
	}

	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		if cfg.RunOnStart {
			s.runScheduled(ctx)
		}
		for {
			select {
			case <-ticker.C:
				s.runScheduled(ctx)
			case <-stopCh:
				log.Println("Scheduled maintenance stopped")
				return
			case <-ctx.Done():
				log.Println("Scheduled maintenance stopped (context done)")
				return
			}
		}
	}()

	log.Printf("Scheduled maintenance started with interval %v", cfg.Interval)
	return stopCh
}

func (s *Service) runScheduled(ctx context.Context) {
	if _, err := s.Run(ctx, "scheduler"); err != nil {
		log.Printf("Scheduled maintenance error: %v", err)
	}
}
