// Package scheduler runs the background maintenance jobs: the expired
// discount sweep and the failed history-append retry drain.
package scheduler

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tariffsnap/tariffsnap-golang/internal/handlers"
	"github.com/tariffsnap/tariffsnap-golang/internal/store"
)

type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Start registers the jobs and begins the cron loop.
func (s *Scheduler) Start(profiles *store.ProfileStore, h *handlers.Handlers) {
	sweepSpec := os.Getenv("DISCOUNT_SWEEP_SCHEDULE")
	if sweepSpec == "" {
		sweepSpec = "@daily"
	}
	_, err := s.cron.AddFunc(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := profiles.DeactivateExpiredDiscounts(ctx, time.Now())
		if err != nil {
			log.Printf("[Scheduler] discount sweep failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("[Scheduler] deactivated %d expired discount(s)", n)
		}
	})
	if err != nil {
		log.Fatalf("Error scheduling discount sweep: %v", err)
	}

	retrySpec := os.Getenv("HISTORY_RETRY_SCHEDULE")
	if retrySpec == "" {
		retrySpec = "@every 1m"
	}
	_, err = s.cron.AddFunc(retrySpec, func() {
		h.DrainHistoryRetries(context.Background())
	})
	if err != nil {
		log.Fatalf("Error scheduling history retry drain: %v", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (discount sweep: %s, history retry: %s)", sweepSpec, retrySpec)
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
