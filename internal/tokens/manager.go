package tokens

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/square"
)

// RefreshMargin is how close to expiry a token may get before it is renewed.
const RefreshMargin = 5 * time.Minute

// Refresher renews an access token from a refresh token.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*square.TokenGrant, error)
}

type connectionStore interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.SquareConnection, error)
	UpdateTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error
}

// ManagerParams groups the token manager's dependencies.
type ManagerParams struct {
	Connections connectionStore
	Refresher   Refresher
	Logger      *logger.Logger
	Now         func() time.Time
}

// Manager hands out usable access tokens, refreshing them when needed.
type Manager struct {
	conns     connectionStore
	refresher Refresher
	logg      *logger.Logger
	now       func() time.Time
}

func NewManager(p ManagerParams) (*Manager, error) {
	if p.Connections == nil {
		return nil, fmt.Errorf("connection store required")
	}
	if p.Refresher == nil {
		return nil, fmt.Errorf("token refresher required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{conns: p.Connections, refresher: p.Refresher, logg: p.Logger, now: now}, nil
}

// ValidToken returns an access token for conn that stays valid for at least
// RefreshMargin. ok is false when no usable token could be produced; the
// reason is logged, never returned.
func (m *Manager) ValidToken(ctx context.Context, conn *models.SquareConnection) (string, bool) {
	if conn == nil {
		return "", false
	}
	ctx = m.logg.WithUserID(ctx, conn.UserID.String())

	if conn.AccessToken != "" && conn.ExpiresAt.After(m.now().Add(RefreshMargin)) {
		return conn.AccessToken, true
	}
	if strings.TrimSpace(conn.RefreshToken) == "" {
		m.logg.Warn(ctx, "square token expired and no refresh token stored")
		return "", false
	}

	grant, err := m.refresher.RefreshToken(ctx, conn.RefreshToken)
	if err != nil {
		m.logg.Error(ctx, "square token refresh failed", err)
		return "", false
	}

	refreshToken := grant.RefreshToken
	if refreshToken == "" {
		refreshToken = conn.RefreshToken
	}
	if err := m.conns.UpdateTokens(ctx, conn.ID, grant.AccessToken, refreshToken, grant.ExpiresAt); err != nil {
		// the fresh token is still good for this run; the next run refreshes again
		m.logg.Error(ctx, "persist refreshed square token failed", err)
	}
	conn.AccessToken = grant.AccessToken
	conn.RefreshToken = refreshToken
	conn.ExpiresAt = grant.ExpiresAt

	m.logg.Info(m.logg.WithField(ctx, "expires_at", grant.ExpiresAt), "square token refreshed")
	return grant.AccessToken, true
}

// ValidTokenForUser looks up the user's connection and delegates to ValidToken.
func (m *Manager) ValidTokenForUser(ctx context.Context, userID uuid.UUID) (string, bool) {
	conn, err := m.conns.FindByUserID(ctx, userID)
	if err != nil {
		m.logg.Error(m.logg.WithUserID(ctx, userID.String()), "load square connection failed", err)
		return "", false
	}
	if conn == nil {
		return "", false
	}
	return m.ValidToken(ctx, conn)
}
