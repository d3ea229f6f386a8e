// Package nightlysync pulls the previous day's Square data for every
// connected account.
package nightlysync

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/ingest"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/metrics"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/square"
)

const pipelineName = "nightly_sync"

// Summary counts account outcomes. Skipped accounts count as succeeded.
type Summary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

type connectionLister interface {
	List(ctx context.Context) ([]models.SquareConnection, error)
}

type userLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)
}

type tokenSource interface {
	ValidToken(ctx context.Context, conn *models.SquareConnection) (string, bool)
}

// Fetcher reads one account's Square data.
type Fetcher interface {
	FetchStaff(ctx context.Context, accessToken string) ([]square.TeamMember, error)
	FetchTransactions(ctx context.Context, accessToken, locationID string, start, end time.Time) ([]square.Order, error)
}

type ingester interface {
	Ingest(ctx context.Context, user models.User, orders []square.Order, members []square.TeamMember) (ingest.Result, error)
}

type ServiceParams struct {
	Connections connectionLister
	Users       userLoader
	Tokens      tokenSource
	Fetcher     Fetcher
	Ingester    ingester
	Logger      *logger.Logger
	Metrics     *metrics.PipelineMetrics
	// Concurrency caps parallel accounts; zero or negative means unlimited.
	Concurrency int
	Now         func() time.Time
}

type Service struct {
	conns       connectionLister
	users       userLoader
	tokens      tokenSource
	fetcher     Fetcher
	ingester    ingester
	logg        *logger.Logger
	metrics     *metrics.PipelineMetrics
	concurrency int
	now         func() time.Time
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Connections == nil:
		return nil, fmt.Errorf("connection lister required")
	case p.Users == nil:
		return nil, fmt.Errorf("user loader required")
	case p.Tokens == nil:
		return nil, fmt.Errorf("token source required")
	case p.Fetcher == nil:
		return nil, fmt.Errorf("square fetcher required")
	case p.Ingester == nil:
		return nil, fmt.Errorf("ingester required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		conns:       p.Connections,
		users:       p.Users,
		tokens:      p.Tokens,
		fetcher:     p.Fetcher,
		ingester:    p.Ingester,
		logg:        p.Logger,
		metrics:     p.Metrics,
		concurrency: p.Concurrency,
		now:         now,
	}, nil
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeSkipped
	outcomeFailed
)

// RunNightlySync syncs yesterday (UTC) for every connection. Per-account
// failures become counts; the run itself never fails. If the connection list
// cannot be loaded the summary is empty and the error is logged.
func (s *Service) RunNightlySync(ctx context.Context) Summary {
	conns, err := s.conns.List(ctx)
	if err != nil {
		s.logg.Error(ctx, "load square connections failed", err)
		return Summary{}
	}
	ids := make([]uuid.UUID, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.UserID)
	}
	owners, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		s.logg.Error(ctx, "load connection owners failed", err)
		return Summary{}
	}

	window := ingest.PriorUTCDay(s.now())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"window_start": window.Start.Format(time.RFC3339),
		"window_end":   window.End.Format(time.RFC3339),
	})

	var succeeded, failed atomic.Int64
	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i := range conns {
		conn := conns[i]
		owner, ok := owners[conn.UserID]
		if !ok {
			owner = models.User{ID: conn.UserID}
		}
		// tasks never return an error so one account cannot cancel the rest
		g.Go(func() error {
			switch s.syncAccountSafely(ctx, &conn, owner, window) {
			case outcomeFailed:
				failed.Add(1)
				s.metrics.IncAccount(pipelineName, metrics.OutcomeFailed)
			case outcomeSkipped:
				succeeded.Add(1)
				s.metrics.IncAccount(pipelineName, metrics.OutcomeSkipped)
			default:
				succeeded.Add(1)
				s.metrics.IncAccount(pipelineName, metrics.OutcomeSucceeded)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Succeeded: int(succeeded.Load()), Failed: int(failed.Load()), Total: len(conns)}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"total":     summary.Total,
	}), "nightly sync complete")
	return summary
}

func (s *Service) syncAccountSafely(ctx context.Context, conn *models.SquareConnection, owner models.User, window ingest.Window) (out outcome) {
	ctx = s.logg.WithUserID(ctx, conn.UserID.String())
	defer func() {
		if r := recover(); r != nil {
			s.logg.Error(ctx, "account sync panicked", fmt.Errorf("panic: %v", r))
			out = outcomeFailed
		}
	}()
	out, err := s.syncAccount(ctx, conn, owner, window)
	if err != nil {
		s.logg.Error(ctx, "account sync failed", err)
	}
	return out
}

func (s *Service) syncAccount(ctx context.Context, conn *models.SquareConnection, owner models.User, window ingest.Window) (outcome, error) {
	if status := owner.SubscriptionStatus; status != nil && !status.Entitled() {
		s.logg.Info(s.logg.WithField(ctx, "subscription_status", status.String()), "skipping account without an active subscription")
		return outcomeSkipped, nil
	}

	token, ok := s.tokens.ValidToken(ctx, conn)
	if !ok {
		return outcomeFailed, pkgerrors.New(pkgerrors.CodeUnauthorized, "no valid square access token")
	}
	if conn.LocationID == nil || *conn.LocationID == "" {
		return outcomeFailed, pkgerrors.New(pkgerrors.CodeDataIntegrity, "square connection has no location id")
	}

	members, err := s.fetcher.FetchStaff(ctx, token)
	if err != nil {
		return outcomeFailed, err
	}
	orders, err := s.fetcher.FetchTransactions(ctx, token, *conn.LocationID, window.Start, window.End)
	if err != nil {
		return outcomeFailed, err
	}

	res, err := s.ingester.Ingest(ctx, owner, orders, members)
	if err != nil {
		return outcomeFailed, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"orders":    len(orders),
		"processed": res.Processed,
		"failed":    res.Failed,
		"staff":     res.Staff,
	}), "account synced")
	return outcomeSucceeded, nil
}
