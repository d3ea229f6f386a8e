package cron

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/metrics"
)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locker   Locker
	Metrics  *metrics.CronJobMetrics
}

// Service runs registered jobs on demand, one at a time per job name across
// every process sharing the lock store.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locker   Locker
	metrics  *metrics.CronJobMetrics
}

// Outcome is what one trigger observed. Locked means another trigger held
// the job's lock and nothing ran.
type Outcome struct {
	Result   Result        `json:"result"`
	Locked   bool          `json:"locked"`
	Duration time.Duration `json:"-"`
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locker:   params.Locker,
		metrics:  params.Metrics,
	}, nil
}

// Registry exposes the registered jobs.
func (s *Service) Registry() *Registry { return s.registry }

// RunJob runs the named job once while holding its lock.
func (s *Service) RunJob(ctx context.Context, name string) (Outcome, error) {
	job, ok := s.registry.Lookup(name)
	if !ok {
		return Outcome{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "unknown cron job %q", name)
	}
	jobCtx := s.logg.WithJob(ctx, job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")

	lock, err := s.locker.LockFor(job.Name())
	if err != nil {
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cron lock")
	}
	locked, err := lock.Acquire(jobCtx)
	if err != nil {
		s.recordFailure(job.Name())
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cron lock")
	}
	if !locked {
		s.logg.Info(s.logg.WithField(jobCtx, "locked", true), "job already running elsewhere; skipping")
		s.recordSkipped(job.Name())
		return Outcome{Locked: true}, nil
	}
	defer func() {
		if relErr := lock.Release(jobCtx); relErr != nil {
			s.logg.Error(jobCtx, "failed to release cron lock", relErr)
		}
	}()

	return s.runJob(jobCtx, job)
}

// RunAll runs every registered job in order. A failing job does not stop the
// ones after it.
func (s *Service) RunAll(ctx context.Context) map[string]Outcome {
	out := make(map[string]Outcome, len(s.registry.jobs))
	for _, job := range s.registry.Jobs() {
		outcome, err := s.RunJob(ctx, job.Name())
		if err != nil {
			s.logg.Error(s.logg.WithJob(ctx, job.Name()), "job failed", err)
		}
		out[job.Name()] = outcome
	}
	return out
}

func (s *Service) runJob(ctx context.Context, job Job) (Outcome, error) {
	s.logg.Info(ctx, "job start")
	start := time.Now()
	result, err := job.Run(ctx)
	duration := time.Since(start)
	s.observeDuration(job.Name(), duration)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"duration_ms": duration.Milliseconds(),
		"succeeded":   result.Succeeded,
		"failed":      result.Failed,
		"total":       result.Total,
	})
	outcome := Outcome{Result: result, Duration: duration}
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		s.recordFailure(job.Name())
		return outcome, err
	}
	s.logg.Info(ctx, "job completed")
	s.recordSuccess(job.Name())
	return outcome, nil
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}

func (s *Service) recordSkipped(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSkipped(job)
}
