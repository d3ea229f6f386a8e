package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/analytics"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/users"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/dbtest"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/enums"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/llm"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

type staticContext struct{ data analytics.ChatContext }

func (s staticContext) ChatContext(context.Context, uuid.UUID, time.Time) (analytics.ChatContext, error) {
	return s.data, nil
}

type limiterFunc func() (bool, error)

func (f limiterFunc) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	ok, err := f()
	return ok, 1, err
}

// clock hands out strictly increasing timestamps.
func clock() func() time.Time {
	t := time.Date(2025, time.March, 17, 18, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

type fixture struct {
	svc     *Service
	users   *users.Repository
	msgs    *Repository
	prompts []llm.Prompt
}

func newFixture(t *testing.T, limiter RateLimiter) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{users: users.NewRepository(db), msgs: NewRepository(db)}
	gen := llm.GeneratorFunc(func(_ context.Context, p llm.Prompt) (string, error) {
		f.prompts = append(f.prompts, p)
		return fmt.Sprintf("answer %d", len(f.prompts)), nil
	})
	svc, err := NewService(ServiceParams{
		Users:     f.users,
		Messages:  f.msgs,
		Context:   staticContext{data: analytics.ChatContext{Note: "No transaction data available yet. Using sample data."}},
		Generator: gen,
		Logger:    logger.Nop(),
		Limiter:   limiter,
		Now:       clock(),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) user(t *testing.T, plan enums.Plan, status *enums.SubscriptionStatus) models.User {
	t.Helper()
	name := "The Crown"
	u := models.User{Email: uuid.NewString() + "@bar.test", BarName: &name, Plan: plan, SubscriptionStatus: status}
	require.NoError(t, f.users.Create(context.Background(), &u))
	return u
}

func statusPtr(s enums.SubscriptionStatus) *enums.SubscriptionStatus { return &s }

func TestAskStoresConversationAndReplaysHistory(t *testing.T) {
	f := newFixture(t, nil)
	u := f.user(t, enums.PlanPro, statusPtr(enums.SubscriptionStatusActive))
	ctx := context.Background()

	first, err := f.svc.Ask(ctx, u.ID, "  What sold best?  ")
	require.NoError(t, err)
	assert.Equal(t, "answer 1", first)

	second, err := f.svc.Ask(ctx, u.ID, "And on Fridays?")
	require.NoError(t, err)
	assert.Equal(t, "answer 2", second)

	require.Len(t, f.prompts, 2)
	assert.Empty(t, f.prompts[0].History)
	assert.Equal(t, []llm.Turn{{Text: "What sold best?"}, {FromModel: true, Text: "answer 1"}}, f.prompts[1].History)
	assert.Contains(t, f.prompts[1].System, "AI analyst for The Crown")
	assert.Contains(t, f.prompts[1].User, "AVAILABLE DATA FOR THE CROWN:")
	assert.Contains(t, f.prompts[1].User, "Using sample data.")
	assert.Contains(t, f.prompts[1].User, "Current date: Monday, March 17, 2025")
	assert.Contains(t, f.prompts[1].User, "QUESTION: And on Fridays?")
	assert.Equal(t, answerMaxTokens, f.prompts[1].MaxTokens)

	history, err := f.svc.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, enums.ChatRoleUser, history[0].Role)
	assert.Equal(t, "What sold best?", history[0].Content)
	assert.Equal(t, enums.ChatRoleAssistant, history[3].Role)
	assert.Equal(t, "answer 2", history[3].Content)
}

func TestAskHistoryIsCappedAtTenMessages(t *testing.T) {
	f := newFixture(t, nil)
	u := f.user(t, enums.PlanPro, nil)
	for i := range 7 {
		_, err := f.svc.Ask(context.Background(), u.ID, fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}
	last := f.prompts[len(f.prompts)-1]
	require.Len(t, last.History, historyTurns)
	assert.Equal(t, "q1", last.History[0].Text)
	assert.Equal(t, "answer 6", last.History[historyTurns-1].Text)
}

func TestAskPlanGate(t *testing.T) {
	f := newFixture(t, nil)
	cases := []struct {
		name   string
		plan   enums.Plan
		status *enums.SubscriptionStatus
		allow  bool
	}{
		{"pro", enums.PlanPro, statusPtr(enums.SubscriptionStatusActive), true},
		{"starter trial", enums.PlanStarter, statusPtr(enums.SubscriptionStatusTrialing), true},
		{"starter active", enums.PlanStarter, statusPtr(enums.SubscriptionStatusActive), false},
		{"no plan", enums.PlanNone, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := f.user(t, tc.plan, tc.status)
			_, err := f.svc.Ask(context.Background(), u.ID, "hi")
			if tc.allow {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
			assert.Equal(t, map[string]any{"upgrade": true}, pkgerrors.As(err).Details())

			history, err := f.svc.History(context.Background(), u.ID)
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}

func TestAskValidatesMessage(t *testing.T) {
	f := newFixture(t, nil)
	u := f.user(t, enums.PlanPro, nil)

	_, err := f.svc.Ask(context.Background(), u.ID, "   ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	long := make([]rune, maxMessageRunes+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = f.svc.Ask(context.Background(), u.ID, string(long))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Ask(context.Background(), uuid.New(), "hi")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAskRateLimit(t *testing.T) {
	allowed := true
	var limErr error
	f := newFixture(t, limiterFunc(func() (bool, error) { return allowed, limErr }))
	u := f.user(t, enums.PlanPro, nil)

	allowed = false
	_, err := f.svc.Ask(context.Background(), u.ID, "hi")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRateLimit))
	assert.Empty(t, f.prompts)

	// limiter outages do not block questions
	limErr = errors.New("redis down")
	_, err = f.svc.Ask(context.Background(), u.ID, "hi")
	require.NoError(t, err)
}

func TestClear(t *testing.T) {
	f := newFixture(t, nil)
	u := f.user(t, enums.PlanPro, nil)
	other := f.user(t, enums.PlanPro, nil)
	ctx := context.Background()
	_, err := f.svc.Ask(ctx, u.ID, "hi")
	require.NoError(t, err)
	_, err = f.svc.Ask(ctx, other.ID, "hi")
	require.NoError(t, err)

	require.NoError(t, f.svc.Clear(ctx, u.ID))
	mine, err := f.svc.History(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
	theirs, err := f.svc.History(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, theirs, 2)
}
