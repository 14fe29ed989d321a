// Package schedule starts flows on their cron schedules.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/robfig/cron/v3"
)

// TriggerFunc starts one run of flowID.
type TriggerFunc func(ctx context.Context, flowID string) error

// Scheduler keeps one cron entry per enabled flow that has a schedule.
type Scheduler struct {
	cron    *cron.Cron
	trigger TriggerFunc
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]scheduled
}

type scheduled struct {
	id   cron.EntryID
	spec string
}

func New(trigger TriggerFunc, logger *slog.Logger) *Scheduler {
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))

	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
		trigger: trigger,
		logger:  logger.With("module", "scheduler"),
		entries: make(map[string]scheduled),
	}
}

// Sync makes the schedule match flows: new and changed schedules are (re)added, flows that are gone,
// disabled or unscheduled are removed.
func (s *Scheduler) Sync(flows []*models.FlowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]string, len(flows))

	for _, flow := range flows {
		if flow.Enabled && flow.Schedule != "" {
			wanted[flow.ID] = flow.Schedule
		}
	}

	for flowID, entry := range s.entries {
		if spec, ok := wanted[flowID]; !ok || spec != entry.spec {
			s.cron.Remove(entry.id)
			delete(s.entries, flowID)
		}
	}

	for flowID, spec := range wanted {
		if _, ok := s.entries[flowID]; ok {
			continue
		}

		id, err := s.cron.AddJob(spec, s.job(flowID))
		if err != nil {
			return fmt.Errorf("failed to schedule flow %s: %w", flowID, err)
		}

		s.entries[flowID] = scheduled{id: id, spec: spec}
		s.logger.Info("Scheduled flow", "flow_id", flowID, "cron", spec)
	}

	return nil
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", "flows", len(s.FlowIDs()))
	s.cron.Start()
}

// Stop stops the cron loop and waits for running triggers, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FlowIDs returns the scheduled flows in sorted order.
func (s *Scheduler) FlowIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for flowID := range s.entries {
		ids = append(ids, flowID)
	}

	slices.Sort(ids)

	return ids
}

// Next returns the next activation of flowID once the scheduler runs.
func (s *Scheduler) Next(flowID string) (time.Time, bool) {
	s.mu.Lock()
	entry, ok := s.entries[flowID]
	s.mu.Unlock()

	if !ok {
		return time.Time{}, false
	}

	return s.cron.Entry(entry.id).Next, true
}

func (s *Scheduler) job(flowID string) cron.Job {
	return cron.FuncJob(func() {
		s.fire(context.Background(), flowID)
	})
}

func (s *Scheduler) fire(ctx context.Context, flowID string) {
	s.logger.InfoContext(ctx, "Cron job triggered", "flow_id", flowID)

	if err := s.trigger(ctx, flowID); err != nil {
		s.logger.ErrorContext(ctx, "Error executing scheduled flow", "flow_id", flowID, "error", err)
	}
}
