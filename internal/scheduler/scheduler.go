// Package scheduler provides cron-based background jobs for InterviewDeck,
// primarily the periodic company-registry refresh.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/BTreeMap/InterviewDeck/internal/models"
)

// RegistryRefresher refreshes the company registry from the hosted store.
type RegistryRefresher interface {
	Refresh(ctx context.Context) (*models.CompanyRegistry, error)
}

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Standard 5-field cron parser (min, hour, dom, month, dow) with panic recovery.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// AddRegistryRefresh schedules a periodic registry refresh. Refresh failures
// are logged and retried on the next tick; the loaders keep serving cached or
// fallback data in the meantime.
func (s *Scheduler) AddRegistryRefresh(expr string, refresher RegistryRefresher) error {
	return s.AddJob(expr, func() {
		reg, err := refresher.Refresh(context.Background())
		if err != nil {
			slog.Warn("Scheduler: registry refresh failed", "error", err)
			return
		}
		slog.Debug("Scheduler: registry refreshed", "companies", len(reg.Companies))
	})
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
