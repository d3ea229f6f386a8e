// Package ingest turns Square orders and team members into stored rows.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/metrics"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/square"
)

type store interface {
	UpsertStaff(ctx context.Context, userID uuid.UUID, squareEmployeeID, name string) error
	StaffIndex(ctx context.Context, userID uuid.UUID) (StaffIndex, error)
	UpsertTransaction(ctx context.Context, txn models.Transaction, items []models.TransactionItem) (uuid.UUID, error)
}

// Result summarizes one batch. Err joins every per-record failure.
type Result struct {
	Staff     int
	Processed int
	Failed    int
	Err       error
}

type ServiceParams struct {
	Store   store
	Logger  *logger.Logger
	Metrics *metrics.PipelineMetrics
}

// Service normalizes and upserts one account's Square data.
type Service struct {
	store   store
	logg    *logger.Logger
	metrics *metrics.PipelineMetrics
}

func NewService(p ServiceParams) (*Service, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("ingest store required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{store: p.Store, logg: p.Logger, metrics: p.Metrics}, nil
}

// Ingest upserts staff then orders for user. A failing record is counted and
// joined into Result.Err; the rest of the batch still runs. The returned
// error is reserved for failures that make the whole batch meaningless.
func (s *Service) Ingest(ctx context.Context, user models.User, orders []square.Order, members []square.TeamMember) (Result, error) {
	ctx = s.logg.WithUserID(ctx, user.ID.String())
	var res Result

	for _, tm := range members {
		if tm.ID == "" {
			continue
		}
		if err := s.store.UpsertStaff(ctx, user.ID, tm.ID, StaffName(tm)); err != nil {
			res.Err = multierr.Append(res.Err, fmt.Errorf("staff %s: %w", tm.ID, err))
			continue
		}
		res.Staff++
	}

	staff, err := s.store.StaffIndex(ctx, user.ID)
	if err != nil {
		return res, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load staff index")
	}

	loc := user.Location()
	for _, order := range orders {
		if order.ID == "" {
			res.Failed++
			res.Err = multierr.Append(res.Err, pkgerrors.New(pkgerrors.CodeDataIntegrity, "order without id"))
			continue
		}
		txn, items := NormalizeOrder(user.ID, order, loc, staff)
		if _, err := s.store.UpsertTransaction(ctx, txn, items); err != nil {
			res.Failed++
			res.Err = multierr.Append(res.Err, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		res.Processed++
	}

	s.metrics.AddRows("staff", res.Staff)
	s.metrics.AddRows("transactions", res.Processed)
	if res.Err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"failed": res.Failed,
			"errors": len(multierr.Errors(res.Err)),
			"error":  res.Err.Error(),
		}), "ingest finished with record failures")
	}
	return res, nil
}

// Window is the half-open UTC interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// PriorUTCDay returns the full UTC calendar day before now.
func PriorUTCDay(now time.Time) Window {
	today := LocalDate(now.UTC())
	return Window{Start: today.AddDate(0, 0, -1), End: today}
}
