package square

import (
	"context"
	"net/url"
	"strings"
	"time"

	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
)

// Scopes requested when a merchant connects their account.
var Scopes = []string{
	"MERCHANT_PROFILE_READ",
	"PAYMENTS_READ",
	"ORDERS_READ",
	"ITEMS_READ",
	"EMPLOYEES_READ",
	"TIMECARDS_READ",
}

// Square access tokens live for 30 days; used when a grant omits expires_at.
const defaultTokenLifetime = 30 * 24 * time.Hour

// AuthorizeURL builds the merchant consent URL carrying the signed state.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.appID)
	q.Set("scope", strings.Join(Scopes, " "))
	q.Set("session", "false")
	q.Set("state", state)
	if c.redirectURL != "" {
		q.Set("redirect_uri", c.redirectURL)
	}
	return c.baseURL + "/oauth2/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for merchant tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenGrant, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization code is required")
	}
	req := &sq.ObtainTokenRequest{
		ClientID:     c.appID,
		ClientSecret: sq.String(c.appSecret),
		Code:         sq.String(code),
		GrantType:    "authorization_code",
	}
	if c.redirectURL != "" {
		req.RedirectURI = sq.String(c.redirectURL)
	}
	return c.obtainToken(ctx, "exchange_code", req)
}

// RefreshToken renews an access token using the stored refresh token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh token is missing")
	}
	req := &sq.ObtainTokenRequest{
		ClientID:     c.appID,
		ClientSecret: sq.String(c.appSecret),
		RefreshToken: sq.String(refreshToken),
		GrantType:    "refresh_token",
	}
	return c.obtainToken(ctx, "refresh_token", req)
}

func (c *Client) obtainToken(ctx context.Context, op string, req *sq.ObtainTokenRequest) (*TokenGrant, error) {
	c.log(ctx, "request", op, map[string]any{"grant_type": req.GrantType})

	resp, err := c.sdk.OAuth.ObtainToken(ctx, req)
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, op)
	}

	grant := &TokenGrant{
		AccessToken:  stringValue(resp.GetAccessToken()),
		RefreshToken: stringValue(resp.GetRefreshToken()),
		MerchantID:   stringValue(resp.GetMerchantID()),
		ExpiresAt:    parseExpiry(stringValue(resp.GetExpiresAt())),
	}
	if grant.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square returned no access token")
	}
	c.log(ctx, "response", op, map[string]any{
		"merchant_id": grant.MerchantID,
		"expires_at":  grant.ExpiresAt,
	})
	return grant, nil
}

func parseExpiry(raw string) time.Time {
	if raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC().Add(defaultTokenLifetime)
}
