package cron

import (
	"context"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/nightlysync"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/reports"
)

const (
	JobNightlySync   = "nightly-sync"
	JobWeeklyReports = "weekly-reports"
)

type nightlySyncer interface {
	RunNightlySync(ctx context.Context) nightlysync.Summary
}

type weeklyReporter interface {
	RunWeekly(ctx context.Context) reports.Summary
}

// NightlySyncJob pulls yesterday's Square data for every connected account.
type NightlySyncJob struct {
	svc nightlySyncer
}

func NewNightlySyncJob(svc nightlySyncer) *NightlySyncJob {
	return &NightlySyncJob{svc: svc}
}

func (j *NightlySyncJob) Name() string { return JobNightlySync }

func (j *NightlySyncJob) Run(ctx context.Context) (Result, error) {
	s := j.svc.RunNightlySync(ctx)
	return Result{Succeeded: s.Succeeded, Failed: s.Failed, Total: s.Total}, nil
}

// WeeklyReportsJob generates and emails last week's report for every
// reportable user.
type WeeklyReportsJob struct {
	svc weeklyReporter
}

func NewWeeklyReportsJob(svc weeklyReporter) *WeeklyReportsJob {
	return &WeeklyReportsJob{svc: svc}
}

func (j *WeeklyReportsJob) Name() string { return JobWeeklyReports }

func (j *WeeklyReportsJob) Run(ctx context.Context) (Result, error) {
	s := j.svc.RunWeekly(ctx)
	return Result{Succeeded: s.Succeeded, Failed: s.Failed, Total: s.Total}, nil
}
