// Package scheduler manages recurring background tasks using gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// TaskFunc is a schedulable unit of background work.
type TaskFunc func(ctx context.Context) error

type task struct {
	name       string
	definition gocron.JobDefinition
	run        TaskFunc
}

// Scheduler wraps a gocron scheduler with registration, logging, and
// lifecycle management.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	tasks     []task
	mu        sync.Mutex
	running   bool
}

// New creates a stopped scheduler. Tasks are registered with Register and
// begin running on Start.
func New(logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
	}, nil
}

// Register adds a named task with its schedule. Registration after Start
// has no effect.
func (s *Scheduler) Register(name string, definition gocron.JobDefinition, run TaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task{name: name, definition: definition, run: run})
}

// Start schedules all registered tasks and starts the internal ticker.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	scheduled := 0
	for _, t := range s.tasks {
		t := t
		_, err := s.scheduler.NewJob(
			t.definition,
			gocron.NewTask(func(ctx context.Context) {
				start := time.Now()
				if err := t.run(ctx); err != nil {
					s.logger.Error("Scheduled task failed", "task_name", t.name, "error", err)
					return
				}
				s.logger.Debug("Finished scheduled task", "task_name", t.name, "duration", time.Since(start))
			}, context.Background()),
			gocron.WithName(t.name),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task", "task_name", t.name, "error", err)
			continue
		}
		scheduled++
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduled)
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if err := s.scheduler.Shutdown(); err != nil {
		s.running = false
		return fmt.Errorf("scheduler shutdown failed: %w", err)
	}
	s.running = false
	s.logger.Info("Scheduler stopped")
	return nil
}

// Every builds a fixed-interval job definition.
func Every(interval time.Duration) gocron.JobDefinition {
	return gocron.DurationJob(interval)
}

// DailyAt builds a once-a-day job definition from an "HH:MM" clock time.
func DailyAt(clock string) (gocron.JobDefinition, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid clock time %q, expected HH:MM", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return nil, fmt.Errorf("invalid hour in clock time %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid minute in clock time %q", clock)
	}

	return gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), uint(minute), 0))), nil
}
