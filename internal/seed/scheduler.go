package seed

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/simplyliz/searchd/internal/logging"
)

// Scheduler periodically re-seeds a fixed set of datasets on a cron
// schedule, for operators who want synthetic data refreshed without an
// explicit /seed call each time.
type Scheduler struct {
	cron   *cron.Cron
	seeder *Seeder
	logger *logging.Logger
}

// NewScheduler constructs a Scheduler. Schedule registers entries; the
// caller owns calling Start/Stop.
func NewScheduler(seeder *Seeder, logger *logging.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), seeder: seeder, logger: logger}
}

// Schedule registers a periodic re-seed of dataset with count rows,
// per a standard 5-field cron spec (e.g. "0 */6 * * *" for every 6
// hours). Returns the entry ID for later removal.
func (s *Scheduler) Schedule(spec, dataset string, count int) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, func() {
		s.logger.Info("scheduled re-seed starting", map[string]interface{}{"dataset": dataset, "count": count})
		s.seeder.Start(context.Background(), dataset, count)
	})
}

// Remove cancels a previously scheduled entry.
func (s *Scheduler) Remove(id cron.EntryID) {
	s.cron.Remove(id)
}

// Start begins running scheduled entries in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler without waiting; the returned context is
// done once any running entry has returned.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }
