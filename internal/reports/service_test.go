package reports

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/analytics"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/dbtest"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/email"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/llm"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

const reportBody = "<h2>What happened last week</h2><p>You made <strong>$1,000.00</strong> &amp; smiled.</p>" +
	"<h2>What's working</h2><p>IPA.</p><h2>What to fix</h2><p>Tuesdays.</p><h2>Weekend forecast</h2><p>Busy.</p>"

var fixedNow = time.Date(2025, time.March, 12, 9, 0, 0, 0, time.UTC)

type fakeMetrics struct {
	byUser map[uuid.UUID]analytics.Metrics
	err    error
}

func (f fakeMetrics) ComputeMetrics(_ context.Context, userID uuid.UUID, window, _ analytics.Window, _ analytics.Options) (analytics.Metrics, error) {
	if f.err != nil {
		return analytics.Metrics{}, f.err
	}
	m, ok := f.byUser[userID]
	if !ok {
		return analytics.Metrics{}, analytics.ErrNoData
	}
	m.Window = window
	return m, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
	fail map[string]error
}

func (m *recordingMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[msg.To]; err != nil {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type staticUsers []models.User

func (u staticUsers) ListReportable(context.Context) ([]models.User, error) { return u, nil }

type failingStore struct{ store }

func (failingStore) Create(context.Context, *models.WeeklyReport) error {
	return pkgerrors.New(pkgerrors.CodePersistence, "disk full")
}

func staticGenerator(out string) llm.TextGenerator {
	return llm.GeneratorFunc(func(context.Context, llm.Prompt) (string, error) { return out, nil })
}

type fixture struct {
	svc    *Service
	repo   *Repository
	mailer *recordingMailer
}

func newFixture(t *testing.T, p ServiceParams) fixture {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	mailer := &recordingMailer{}
	if p.Metrics == nil {
		p.Metrics = fakeMetrics{}
	}
	if p.Reports == nil {
		p.Reports = repo
	}
	if p.Users == nil {
		p.Users = staticUsers{}
	}
	if p.Generator == nil {
		p.Generator = staticGenerator(reportBody)
	}
	if p.Mailer == nil {
		p.Mailer = mailer
	} else if m, ok := p.Mailer.(*recordingMailer); ok {
		mailer = m
	}
	p.Logger = logger.Nop()
	p.AppURL = "https://app.tavernbuddy.test/"
	p.Now = func() time.Time { return fixedNow }
	svc, err := NewService(p)
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, mailer: mailer}
}

func newUser(name string) models.User {
	return models.User{ID: uuid.New(), Email: strings.ToLower(name) + "@bar.test", BarName: &name}
}

func TestGenerateSavesThenSends(t *testing.T) {
	user := newUser("Rusty")
	m := analytics.Metrics{Revenue: 100000, Transactions: 20, AvgTransaction: 5000}
	var prompt llm.Prompt
	f := newFixture(t, ServiceParams{
		Metrics: fakeMetrics{byUser: map[uuid.UUID]analytics.Metrics{user.ID: m}},
		Generator: llm.GeneratorFunc(func(_ context.Context, p llm.Prompt) (string, error) {
			prompt = p
			return reportBody, nil
		}),
	})
	week := PreviousWeek(fixedNow)

	report, err := f.svc.Generate(context.Background(), user, week)
	require.NoError(t, err)
	assert.False(t, report.UsedSampleData)
	assert.Equal(t, week.Start, report.WeekStart)
	assert.Equal(t, week.LastDay(), report.WeekEnd)
	assert.Contains(t, report.ReportText, "You made $1,000.00 & smiled.")
	assert.Contains(t, prompt.User, "Generate a weekly business report for Rusty")
	assert.Contains(t, prompt.User, "WEEK: Mar 3, 2025 to Mar 9, 2025")

	saved, err := f.repo.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, report.ID, saved[0].ID)

	require.Len(t, f.mailer.sent, 1)
	msg := f.mailer.sent[0]
	assert.Equal(t, "rusty@bar.test", msg.To)
	assert.Equal(t, "Your Weekly Bar Report: Mar 3, 2025 to Mar 9, 2025", msg.Subject)
	assert.Equal(t, 4, strings.Count(msg.HTML, `<div class="card">`))
	assert.Contains(t, msg.HTML, `href="https://app.tavernbuddy.test/dashboard"`)
	assert.NotContains(t, msg.HTML, "sample numbers")
}

func TestGenerateFallsBackToSampleMetrics(t *testing.T) {
	user := newUser("Empty")
	var prompt llm.Prompt
	f := newFixture(t, ServiceParams{
		Generator: llm.GeneratorFunc(func(_ context.Context, p llm.Prompt) (string, error) {
			prompt = p
			return reportBody, nil
		}),
	})

	report, err := f.svc.Generate(context.Background(), user, PreviousWeek(fixedNow))
	require.NoError(t, err)
	assert.True(t, report.UsedSampleData)
	assert.Contains(t, prompt.User, "Craft IPA Draft: $2,486.00 (142 sold)")
	require.Len(t, f.mailer.sent, 1)
	assert.Contains(t, f.mailer.sent[0].HTML, "sample numbers")
}

func TestGeneratePersistenceFailureSendsNothing(t *testing.T) {
	f := newFixture(t, ServiceParams{Reports: failingStore{}})

	report, err := f.svc.Generate(context.Background(), newUser("Broke"), PreviousWeek(fixedNow))
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePersistence))
	var derr *DeliveryError
	assert.False(t, errors.As(err, &derr))
	assert.Empty(t, f.mailer.sent)
}

func TestGenerateDeliveryFailureKeepsReport(t *testing.T) {
	user := newUser("Quiet")
	mailer := &recordingMailer{fail: map[string]error{user.Email: errors.New("sendgrid down")}}
	f := newFixture(t, ServiceParams{Mailer: mailer})

	report, err := f.svc.Generate(context.Background(), user, PreviousWeek(fixedNow))
	require.Error(t, err)
	require.NotNil(t, report)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDelivery))

	var derr *DeliveryError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, report.ID, derr.ReportID)

	saved, err := f.repo.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestGenerateLLMFailureSavesNothing(t *testing.T) {
	user := newUser("Mute")
	f := newFixture(t, ServiceParams{
		Generator: llm.GeneratorFunc(func(context.Context, llm.Prompt) (string, error) {
			return "", pkgerrors.New(pkgerrors.CodeDependency, "gemini unavailable")
		}),
	})

	_, err := f.svc.Generate(context.Background(), user, PreviousWeek(fixedNow))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	saved, err := f.repo.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestRunWeeklySettlesEveryUser(t *testing.T) {
	ok, already, undelivered, broken := newUser("Ok"), newUser("Already"), newUser("Bounced"), newUser("Broken")
	mailer := &recordingMailer{fail: map[string]error{undelivered.Email: errors.New("bounced")}}
	f := newFixture(t, ServiceParams{
		Users:  staticUsers{ok, already, undelivered, broken},
		Mailer: mailer,
		Metrics: metricsFunc(func(userID uuid.UUID) (analytics.Metrics, error) {
			if userID == broken.ID {
				return analytics.Metrics{}, pkgerrors.New(pkgerrors.CodePersistence, "db gone")
			}
			return analytics.Metrics{}, analytics.ErrNoData
		}),
	})
	week := PreviousWeek(fixedNow)
	require.NoError(t, f.repo.Create(context.Background(), &models.WeeklyReport{
		UserID: already.ID, WeekStart: week.Start, WeekEnd: week.LastDay(),
		ReportHTML: "<p>old</p>", ReportText: "old", GeneratedAt: fixedNow,
	}))

	summary := f.svc.RunWeekly(context.Background())
	assert.Equal(t, Summary{Succeeded: 2, Failed: 2, Total: 4, Skipped: 1, Undelivered: 1}, summary)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, ok.Email, mailer.sent[0].To)

	// a rerun skips everyone who already has a saved report
	mailer.fail = nil
	again := f.svc.RunWeekly(context.Background())
	assert.Equal(t, 3, again.Skipped)
	assert.Equal(t, 1, again.Failed)
	assert.Len(t, mailer.sent, 1)
}

func TestRunWeeklyEmpty(t *testing.T) {
	f := newFixture(t, ServiceParams{})
	assert.Equal(t, Summary{}, f.svc.RunWeekly(context.Background()))
}

func TestRepositoryRejectsDuplicateWeek(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	userID := uuid.New()
	week := PreviousWeek(fixedNow)
	row := func() *models.WeeklyReport {
		return &models.WeeklyReport{UserID: userID, WeekStart: week.Start, WeekEnd: week.LastDay(), ReportHTML: "x", ReportText: "x", GeneratedAt: fixedNow}
	}
	require.NoError(t, repo.Create(context.Background(), row()))
	err := repo.Create(context.Background(), row())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	exists, err := repo.Exists(context.Background(), userID, week.Start)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(context.Background(), userID, week.End)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPreviousWeek(t *testing.T) {
	want := analytics.Window{
		Start: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	for _, now := range []time.Time{
		time.Date(2025, 3, 10, 0, 30, 0, 0, time.UTC), // Monday
		fixedNow, // Wednesday
		time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC), // Sunday
	} {
		assert.Equal(t, want, PreviousWeek(now), now.String())
	}
}

func TestNewServiceValidatesDeps(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}

type metricsFunc func(userID uuid.UUID) (analytics.Metrics, error)

func (f metricsFunc) ComputeMetrics(_ context.Context, userID uuid.UUID, _, _ analytics.Window, _ analytics.Options) (analytics.Metrics, error) {
	return f(userID)
}
