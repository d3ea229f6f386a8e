package tokens

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/auth"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/config"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/square"
)

// Onboarding redirect outcomes for the OAuth callback.
const (
	CallbackConnected      = "connected"
	CallbackDenied         = "square_denied"
	CallbackMissingParams  = "square_missing_params"
	CallbackInvalidState   = "square_invalid_state"
	CallbackExchangeFailed = "square_exchange_failed"
)

// OAuthClient is the slice of the Square client the connect flow uses.
type OAuthClient interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*square.TokenGrant, error)
	PrimaryLocationID(ctx context.Context, accessToken string) (string, error)
}

type connectionWriter interface {
	UpsertWithTx(tx *gorm.DB, conn *models.SquareConnection) error
	DeleteByUserIDWithTx(tx *gorm.DB, userID uuid.UUID) error
}

type userFlagWriter interface {
	SetSquareConnectedWithTx(tx *gorm.DB, id uuid.UUID, connected bool) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ConnectorParams groups the connect flow's dependencies.
type ConnectorParams struct {
	Square      OAuthClient
	Connections connectionWriter
	Users       userFlagWriter
	Tx          txRunner
	JWT         config.JWTConfig
	AppURL      string
	Logger      *logger.Logger
	Now         func() time.Time
}

// Connector runs the Square OAuth connect and disconnect flows.
type Connector struct {
	square OAuthClient
	conns  connectionWriter
	users  userFlagWriter
	tx     txRunner
	jwt    config.JWTConfig
	appURL string
	logg   *logger.Logger
	now    func() time.Time
}

func NewConnector(p ConnectorParams) (*Connector, error) {
	if p.Square == nil {
		return nil, fmt.Errorf("square oauth client required")
	}
	if p.Connections == nil {
		return nil, fmt.Errorf("connection repo required")
	}
	if p.Users == nil {
		return nil, fmt.Errorf("user repo required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(p.JWT.Secret) == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Connector{
		square: p.Square,
		conns:  p.Connections,
		users:  p.Users,
		tx:     p.Tx,
		jwt:    p.JWT,
		appURL: strings.TrimRight(p.AppURL, "/"),
		logg:   p.Logger,
		now:    now,
	}, nil
}

// AuthorizeURL returns the Square consent URL for userID.
func (c *Connector) AuthorizeURL(userID uuid.UUID) (string, error) {
	state, err := auth.MintState(c.jwt, c.now(), userID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign oauth state")
	}
	return c.square.AuthorizeURL(state), nil
}

// Connect finishes the OAuth flow: verify state, exchange the code, pick the
// first location and store the connection. Returns the connected user id.
func (c *Connector) Connect(ctx context.Context, code, state string) (uuid.UUID, error) {
	userID, err := auth.ParseState(c.jwt, state)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid oauth state")
	}
	ctx = c.logg.WithUserID(ctx, userID.String())

	grant, err := c.square.ExchangeCode(ctx, code)
	if err != nil {
		return uuid.Nil, err
	}

	var locationID *string
	loc, err := c.square.PrimaryLocationID(ctx, grant.AccessToken)
	switch {
	case err == nil:
		locationID = &loc
	case pkgerrors.IsCode(err, pkgerrors.CodeDataIntegrity):
		c.logg.Warn(ctx, "square merchant has no locations; connection stored without one")
	default:
		return uuid.Nil, err
	}

	conn := &models.SquareConnection{
		UserID:       userID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		MerchantID:   grant.MerchantID,
		LocationID:   locationID,
		ExpiresAt:    grant.ExpiresAt,
	}
	err = c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := c.conns.UpsertWithTx(tx, conn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save square connection")
		}
		return c.users.SetSquareConnectedWithTx(tx, userID, true)
	})
	if err != nil {
		return uuid.Nil, err
	}

	c.logg.Info(c.logg.WithField(ctx, "merchant_id", grant.MerchantID), "square account connected")
	return userID, nil
}

// CallbackParams are the query parameters Square sends to the redirect URI.
type CallbackParams struct {
	Code  string
	State string
	Error string
}

// HandleCallback runs Connect and returns the onboarding URL the browser
// should land on, encoding the outcome in the query string.
func (c *Connector) HandleCallback(ctx context.Context, p CallbackParams) string {
	if p.Error != "" {
		return c.onboardingURL(url.Values{"error": {CallbackDenied}})
	}
	if p.Code == "" || p.State == "" {
		return c.onboardingURL(url.Values{"error": {CallbackMissingParams}})
	}
	if _, err := c.Connect(ctx, p.Code, p.State); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) && !isRemote(err) {
			return c.onboardingURL(url.Values{"error": {CallbackInvalidState}})
		}
		c.logg.Error(ctx, "square oauth callback failed", err)
		return c.onboardingURL(url.Values{"error": {CallbackExchangeFailed}})
	}
	return c.onboardingURL(url.Values{"step": {"3"}, "square": {CallbackConnected}})
}

// Disconnect removes the user's connection and clears the connected flag.
func (c *Connector) Disconnect(ctx context.Context, userID uuid.UUID) error {
	err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := c.conns.DeleteByUserIDWithTx(tx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete square connection")
		}
		return c.users.SetSquareConnectedWithTx(tx, userID, false)
	})
	if err != nil {
		return err
	}
	c.logg.Info(c.logg.WithUserID(ctx, userID.String()), "square account disconnected")
	return nil
}

func (c *Connector) onboardingURL(q url.Values) string {
	return c.appURL + "/onboarding?" + q.Encode()
}

func isRemote(err error) bool {
	_, ok := square.AsRemoteAPIError(err)
	return ok
}
