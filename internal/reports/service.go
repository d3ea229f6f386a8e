// Package reports turns a week of metrics into an AI-written report, stores
// it and emails it to the owner.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/analytics"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/email"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/llm"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/metrics"
)

const (
	pipelineName    = "weekly_reports"
	comparisonDays  = 28
	reportTopItems  = 10
	reportTopStaff  = 5
	subjectTemplate = "Your Weekly Bar Report: %s to %s"
)

// DeliveryError means the report was saved but the email did not go out.
type DeliveryError struct {
	ReportID uuid.UUID
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("report %s saved but not delivered: %v", e.ReportID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Summary counts per-user outcomes of a weekly run. Skipped users count as
// succeeded and undelivered ones as failed.
type Summary struct {
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	Total       int `json:"total"`
	Skipped     int `json:"-"`
	Undelivered int `json:"-"`
}

type metricsSource interface {
	ComputeMetrics(ctx context.Context, userID uuid.UUID, window, comparison analytics.Window, opts analytics.Options) (analytics.Metrics, error)
}

type store interface {
	Create(ctx context.Context, report *models.WeeklyReport) error
	Exists(ctx context.Context, userID uuid.UUID, weekStart time.Time) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.WeeklyReport, error)
}

type userLister interface {
	ListReportable(ctx context.Context) ([]models.User, error)
}

type ServiceParams struct {
	Metrics   metricsSource
	Reports   store
	Users     userLister
	Generator llm.TextGenerator
	Mailer    email.Mailer
	AppURL    string
	Logger    *logger.Logger
	Pipeline  *metrics.PipelineMetrics
	// Concurrency caps parallel users; zero or negative means unlimited.
	Concurrency int
	Now         func() time.Time
}

type Service struct {
	metrics     metricsSource
	reports     store
	users       userLister
	generator   llm.TextGenerator
	mailer      email.Mailer
	appURL      string
	logg        *logger.Logger
	pipeline    *metrics.PipelineMetrics
	concurrency int
	now         func() time.Time
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Metrics == nil:
		return nil, fmt.Errorf("metrics source required")
	case p.Reports == nil:
		return nil, fmt.Errorf("report store required")
	case p.Users == nil:
		return nil, fmt.Errorf("user lister required")
	case p.Generator == nil:
		return nil, fmt.Errorf("text generator required")
	case p.Mailer == nil:
		return nil, fmt.Errorf("mailer required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		metrics:     p.Metrics,
		reports:     p.Reports,
		users:       p.Users,
		generator:   p.Generator,
		mailer:      p.Mailer,
		appURL:      strings.TrimRight(p.AppURL, "/"),
		logg:        p.Logger,
		pipeline:    p.Pipeline,
		concurrency: p.Concurrency,
		now:         now,
	}, nil
}

// PreviousWeek is the Monday to Sunday week before the one containing now,
// in now's location.
func PreviousWeek(now time.Time) analytics.Window {
	y, m, d := now.AddDate(0, 0, -7).Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	monday := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	return analytics.Window{Start: monday, End: monday.AddDate(0, 0, 7)}
}

// Generate builds, saves and emails one report for user covering week.
//
// If saving fails nothing is sent. If sending fails the saved report is
// returned together with a DELIVERY_FAILED error wrapping *DeliveryError.
func (s *Service) Generate(ctx context.Context, user models.User, week analytics.Window) (*models.WeeklyReport, error) {
	comparison := analytics.Window{Start: week.Start.AddDate(0, 0, -comparisonDays), End: week.Start}
	m, err := s.metrics.ComputeMetrics(ctx, user.ID, week, comparison, analytics.Options{TopItems: reportTopItems, TopStaff: reportTopStaff})
	switch {
	case errors.Is(err, analytics.ErrNoData):
		s.logg.Info(ctx, "no transactions for the week, using sample metrics")
		m = analytics.SampleWeeklyMetrics(week)
	case err != nil:
		return nil, err
	}

	barName := user.DisplayBarName()
	reportHTML, err := s.generator.GenerateText(ctx, BuildPrompt(barName, m))
	if err != nil {
		return nil, err
	}

	report := &models.WeeklyReport{
		ID:             uuid.New(),
		UserID:         user.ID,
		WeekStart:      week.Start,
		WeekEnd:        week.LastDay(),
		ReportHTML:     reportHTML,
		ReportText:     StripTags(reportHTML),
		UsedSampleData: m.Sample,
		GeneratedAt:    s.now().UTC(),
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	ctx = s.logg.WithField(ctx, "report_id", report.ID.String())

	if err := s.deliver(ctx, user, report); err != nil {
		derr := &DeliveryError{ReportID: report.ID, Err: err}
		return report, pkgerrors.Wrap(pkgerrors.CodeDelivery, derr, "weekly report saved but email failed").
			WithDetails(map[string]any{"report_id": report.ID.String()})
	}
	s.logg.Info(s.logg.WithField(ctx, "sample_data", report.UsedSampleData), "weekly report generated and sent")
	return report, nil
}

func (s *Service) deliver(ctx context.Context, user models.User, report *models.WeeklyReport) error {
	start := report.WeekStart.Format(weekLabelLayout)
	end := report.WeekEnd.Format(weekLabelLayout)
	body, err := renderEmail(emailData{
		BarName:      user.DisplayBarName(),
		WeekStart:    start,
		WeekEnd:      end,
		Sample:       report.UsedSampleData,
		DashboardURL: s.appURL + "/dashboard",
		SettingsURL:  s.appURL + "/dashboard/settings",
	}, report.ReportHTML)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, email.Message{
		To:      user.Email,
		ToName:  user.DisplayBarName(),
		Subject: fmt.Sprintf(subjectTemplate, start, end),
		HTML:    body,
		Text:    report.ReportText,
	})
}

// GenerateForUser produces last week's report on demand.
func (s *Service) GenerateForUser(ctx context.Context, user models.User) (*models.WeeklyReport, error) {
	return s.Generate(ctx, user, PreviousWeek(s.now().In(user.Location())))
}

// List returns the user's saved reports, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.WeeklyReport, error) {
	return s.reports.ListByUser(ctx, userID)
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeSkipped
	outcomeUndelivered
	outcomeFailed
)

// RunWeekly generates last week's report for every subscribed user. Users
// that already have one for that week are skipped, so reruns never resend.
func (s *Service) RunWeekly(ctx context.Context) Summary {
	users, err := s.users.ListReportable(ctx)
	if err != nil {
		s.logg.Error(ctx, "load reportable users failed", err)
		return Summary{}
	}

	var succeeded, failed, skipped, undelivered atomic.Int64
	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i := range users {
		user := users[i]
		// tasks never return an error so one user cannot cancel the rest
		g.Go(func() error {
			switch s.runUserSafely(ctx, user) {
			case outcomeSkipped:
				succeeded.Add(1)
				skipped.Add(1)
				s.pipeline.IncAccount(pipelineName, metrics.OutcomeSkipped)
			case outcomeUndelivered:
				failed.Add(1)
				undelivered.Add(1)
				s.pipeline.IncAccount(pipelineName, metrics.OutcomeUndelivered)
			case outcomeFailed:
				failed.Add(1)
				s.pipeline.IncAccount(pipelineName, metrics.OutcomeFailed)
			default:
				succeeded.Add(1)
				s.pipeline.IncAccount(pipelineName, metrics.OutcomeSucceeded)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{
		Succeeded:   int(succeeded.Load()),
		Failed:      int(failed.Load()),
		Total:       len(users),
		Skipped:     int(skipped.Load()),
		Undelivered: int(undelivered.Load()),
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"succeeded":   summary.Succeeded,
		"failed":      summary.Failed,
		"total":       summary.Total,
		"skipped":     summary.Skipped,
		"undelivered": summary.Undelivered,
	}), "weekly reports complete")
	return summary
}

func (s *Service) runUserSafely(ctx context.Context, user models.User) (out outcome) {
	week := PreviousWeek(s.now().In(user.Location()))
	ctx = s.logg.WithFields(s.logg.WithUserID(ctx, user.ID.String()), map[string]any{
		"week_start": week.Start.Format(time.DateOnly),
	})
	defer func() {
		if r := recover(); r != nil {
			s.logg.Error(ctx, "weekly report panicked", fmt.Errorf("panic: %v", r))
			out = outcomeFailed
		}
	}()

	exists, err := s.reports.Exists(ctx, user.ID, week.Start)
	if err != nil {
		s.logg.Error(ctx, "check existing report failed", err)
		return outcomeFailed
	}
	if exists {
		s.logg.Info(ctx, "report already generated for this week")
		return outcomeSkipped
	}

	_, err = s.Generate(ctx, user, week)
	switch {
	case err == nil:
		return outcomeSucceeded
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		s.logg.Info(ctx, "report saved concurrently, skipping")
		return outcomeSkipped
	case pkgerrors.IsCode(err, pkgerrors.CodeDelivery):
		s.logg.Error(ctx, "weekly report not delivered", err)
		return outcomeUndelivered
	default:
		s.logg.Error(ctx, "weekly report failed", err)
		return outcomeFailed
	}
}
