// Package scheduler runs the background jobs of the service: the periodic
// entity-linking probe, the outage monitor and the daily statistics log.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/pillchecker/pillchecker/health"
	"github.com/pillchecker/pillchecker/interfaces"
	"github.com/pillchecker/pillchecker/logging"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const (
	probeTimeout     = 10 * time.Second
	outageThreshold  = 30 * time.Minute
	monitorFrequency = 10 * time.Minute
)

// Scheduler probes the entity-linking service and records the outcome in a
// health.NERStatus.
type Scheduler struct {
	linker    interfaces.EntityLinker
	store     interfaces.MedicationStore
	status    *health.NERStatus
	interval  time.Duration
	scheduler *gocron.Scheduler
	now       func() time.Time
}

// NewScheduler creates a scheduler. linker may be nil when entity linking
// is disabled; the probe is then not scheduled.
func NewScheduler(linker interfaces.EntityLinker, store interfaces.MedicationStore, status *health.NERStatus, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		linker:    linker,
		store:     store,
		status:    status,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.Local),
		now:       time.Now,
	}
}

// Start schedules the jobs and runs the first probe immediately.
func (s *Scheduler) Start() error {
	if s.linker != nil {
		if _, err := s.scheduler.Every(s.interval).Do(s.probe); err != nil {
			return fmt.Errorf("failed to schedule entity-linking probe: %w", err)
		}
		if _, err := s.scheduler.Every(monitorFrequency).WaitForSchedule().Do(s.monitor); err != nil {
			return fmt.Errorf("failed to schedule outage monitor: %w", err)
		}
	} else {
		logging.Warn("Entity linking disabled, probe not scheduled")
	}

	if _, err := s.scheduler.Every(1).Days().At("06:00").Do(s.logStats); err != nil {
		return fmt.Errorf("failed to schedule statistics: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Scheduler started", "probe_interval", s.interval.String())
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// probe pings the entity-linking service once.
func (s *Scheduler) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	before := s.status.Snapshot()
	err := s.linker.Ping(ctx)
	s.status.Record(err, s.now())

	switch {
	case err != nil && (!before.Checked || before.Healthy):
		logging.Warn("Entity-linking service is down", "error", err)
	case err != nil:
		logging.Debug("Entity-linking service still down", "error", err)
	case before.Checked && !before.Healthy:
		logging.Info("Entity-linking service recovered")
	}
}

// monitor warns while the entity-linking service has been down too long.
func (s *Scheduler) monitor() {
	snap := s.status.Snapshot()
	if down := snap.DownFor(s.now()); down > outageThreshold {
		logging.Warn("Entity-linking service has been down for over 30 minutes",
			"down_minutes", int(down.Minutes()), "last_error", snap.LastError)
	}
}

func (s *Scheduler) logStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := s.store.Count(ctx)
	if err != nil {
		logging.Error("Failed to count medications", "error", err)
		return
	}
	logging.Info("Daily statistics", "medications", count)
}
