// package scheduler owns cron job registration for the sync engine: one job
// per cron-enabled task plus the fixed system jobs.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/cloudmirror/sharesync/internal/shared"
)

// Fixed system job keys. Task jobs are keyed by task id.
const (
	JobFullSweep  = "system:full-sweep"
	JobRetrySweep = "system:retry-sweep"
	JobCleanup    = "system:cleanup"
)

// RetrySweepSpec fires the retry sweep once per minute.
const RetrySweepSpec = "* * * * *"

// Scheduler is a registry of cron jobs keyed by task id or system job name.
// Registering a key that already holds a job stops and replaces it; there is
// never more than one live job per key.
type Scheduler struct {
	cron   *cron.Cron
	parser cron.Parser
	logger *log.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New creates a stopped scheduler; call Start to begin firing jobs.
func New(logger *log.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Register adds (or replaces) the job under key with the given cron spec.
// An invalid spec is rejected with no job created and no existing job removed.
func (s *Scheduler) Register(key, spec string, job func()) error {
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", shared.ErrInvalidCron, spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.entries[key]; ok {
		s.cron.Remove(prior)
	}

	s.entries[key] = s.cron.Schedule(schedule, cron.FuncJob(job))
	if s.logger != nil {
		s.logger.Debug("registered cron job", "key", key, "spec", spec)
	}
	return nil
}

// Remove stops and forgets the job under key, if any.
func (s *Scheduler) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok {
		s.cron.Remove(entry)
		delete(s.entries, key)
		if s.logger != nil {
			s.logger.Debug("removed cron job", "key", key)
		}
	}
}

// Has reports whether a job is registered under key.
func (s *Scheduler) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start begins firing registered jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler. Jobs already in flight run to completion.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
