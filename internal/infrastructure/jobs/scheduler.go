// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nearhelp/sos-engine/internal/api/metrics"
	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
	"github.com/nearhelp/sos-engine/pkg/logger"
)

const (
	// DefaultGaugeSpec refreshes the active incident gauge once a minute.
	DefaultGaugeSpec = "@every 1m"
	jobTimeout       = 10 * time.Second
)

// Scheduler owns the cron runner.
type Scheduler struct {
	cron      *cron.Cron
	incidents ports.IncidentRepository
	log       zerolog.Logger
}

func NewScheduler(incidents ports.IncidentRepository, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		incidents: incidents,
		log:       logger.Component(log, "jobs"),
	}
}

// Register adds the built-in jobs. spec overrides DefaultGaugeSpec when set.
func (s *Scheduler) Register(spec string) error {
	if spec == "" {
		spec = DefaultGaugeSpec
	}
	_, err := s.cron.AddFunc(spec, func() { s.RefreshActiveGauge(context.Background()) })
	return err
}

// Every schedules an additional named job.
func (s *Scheduler) Every(spec, name string, job func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.log.Debug().Str("job", name).Msg("running job")
		job()
	})
	return err
}

// RefreshActiveGauge recounts active incidents from the store.
func (s *Scheduler) RefreshActiveGauge(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	n, err := s.incidents.Count(ctx, ports.IncidentCountFilter{Status: domain.StatusActive})
	if err != nil {
		s.log.Warn().Err(err).Msg("active incident gauge refresh failed")
		return
	}
	metrics.ActiveIncidents.Set(float64(n))
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
