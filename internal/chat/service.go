// Package chat answers owners' questions about their bar with the language
// model, grounded in the last 30 days of synced data.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/analytics"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/enums"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/llm"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

const (
	historyTurns     = 10
	transcriptLimit  = 50
	answerMaxTokens  = 800
	maxMessageRunes  = 2000
	defaultRateLimit = 30
	defaultRateSpan  = time.Hour
)

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type messageStore interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	Latest(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatMessage, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type contextSource interface {
	ChatContext(ctx context.Context, userID uuid.UUID, now time.Time) (analytics.ChatContext, error)
}

// RateLimiter is satisfied by the Redis client's fixed-window counter.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type ServiceParams struct {
	Users     userFinder
	Messages  messageStore
	Context   contextSource
	Generator llm.TextGenerator
	Logger    *logger.Logger
	// Limiter is optional; without it questions are not rate limited.
	Limiter    RateLimiter
	RateLimit  int64
	RateWindow time.Duration
	Now        func() time.Time
}

type Service struct {
	users      userFinder
	messages   messageStore
	context    contextSource
	generator  llm.TextGenerator
	logg       *logger.Logger
	limiter    RateLimiter
	rateLimit  int64
	rateWindow time.Duration
	now        func() time.Time
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Users == nil:
		return nil, fmt.Errorf("user finder required")
	case p.Messages == nil:
		return nil, fmt.Errorf("message store required")
	case p.Context == nil:
		return nil, fmt.Errorf("chat context source required")
	case p.Generator == nil:
		return nil, fmt.Errorf("text generator required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	s := &Service{
		users:      p.Users,
		messages:   p.Messages,
		context:    p.Context,
		generator:  p.Generator,
		logg:       p.Logger,
		limiter:    p.Limiter,
		rateLimit:  p.RateLimit,
		rateWindow: p.RateWindow,
		now:        p.Now,
	}
	if s.rateLimit <= 0 {
		s.rateLimit = defaultRateLimit
	}
	if s.rateWindow <= 0 {
		s.rateWindow = defaultRateSpan
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// CanChat reports whether the user's plan includes Ask Tavernbuddy.
func CanChat(u models.User) bool {
	if u.Plan == enums.PlanPro {
		return true
	}
	return u.SubscriptionStatus != nil && *u.SubscriptionStatus == enums.SubscriptionStatusTrialing
}

// Ask stores the question, asks the model with recent history and the
// user's data summary, stores the answer and returns it.
func (s *Service) Ask(ctx context.Context, userID uuid.UUID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}
	if utf8.RuneCountInString(message) > maxMessageRunes {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "message must be at most %d characters", maxMessageRunes)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !CanChat(*user) {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "Ask Tavernbuddy requires the Pro plan").
			WithDetails(map[string]any{"upgrade": true})
	}
	ctx = s.logg.WithUserID(ctx, userID.String())
	if err := s.checkRate(ctx, userID); err != nil {
		return "", err
	}

	history, err := s.messages.Latest(ctx, userID, historyTurns)
	if err != nil {
		return "", err
	}
	if err := s.messages.Create(ctx, &models.ChatMessage{
		UserID: userID, Role: enums.ChatRoleUser, Content: message, CreatedAt: s.now().UTC(),
	}); err != nil {
		return "", err
	}

	now := s.now().In(user.Location())
	data, err := s.context.ChatContext(ctx, userID, now)
	if err != nil {
		return "", err
	}
	prompt, err := buildPrompt(user.DisplayBarName(), data, history, message, now)
	if err != nil {
		return "", err
	}

	answer, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := s.messages.Create(ctx, &models.ChatMessage{
		UserID: userID, Role: enums.ChatRoleAssistant, Content: answer, CreatedAt: s.now().UTC(),
	}); err != nil {
		return "", err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"history_turns": len(history),
		"answer_chars":  len(answer),
	}), "chat answered")
	return answer, nil
}

// checkRate fails open when the limiter itself errors.
func (s *Service) checkRate(ctx context.Context, userID uuid.UUID) error {
	if s.limiter == nil {
		return nil
	}
	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "chat:"+userID.String(), s.rateLimit, s.rateWindow)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "chat rate limiter unavailable")
		return nil
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many questions, try again later")
	}
	return nil
}

// History returns the user's last 50 messages, oldest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]models.ChatMessage, error) {
	return s.messages.Latest(ctx, userID, transcriptLimit)
}

// Clear deletes the user's whole conversation.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.messages.DeleteByUser(ctx, userID)
}

func buildPrompt(barName string, data analytics.ChatContext, history []models.ChatMessage, question string, now time.Time) (llm.Prompt, error) {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return llm.Prompt{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode chat context")
	}

	system := fmt.Sprintf("You are Tavernbuddy, an AI analyst for %s. You answer questions about the bar's business data in plain English. "+
		"Be specific with numbers, be concise and be friendly. If you don't have enough data to answer definitively, say so and explain what you can see. "+
		"Never make up numbers; only use what's in the provided data context.", barName)

	var b strings.Builder
	fmt.Fprintf(&b, "DATA CONTEXT:\nAVAILABLE DATA FOR %s:\n%s\n\n", strings.ToUpper(barName), raw)
	fmt.Fprintf(&b, "Current date: %s\n\n", now.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "QUESTION: %s", question)

	turns := make([]llm.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, llm.Turn{FromModel: m.Role == enums.ChatRoleAssistant, Text: m.Content})
	}
	return llm.Prompt{System: system, History: turns, User: b.String(), MaxTokens: answerMaxTokens}, nil
}
