package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/config"
)

const stateAudience = "square-oauth-state"

var jwtSigningMethod = jwt.SigningMethodHS256

var errSecretRequired = errors.New("jwt secret is required")

// MintAccessToken issues a signed session JWT using the configured TTL.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if cfg.Secret == "" {
		return "", errSecretRequired
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", fmt.Errorf("jwt expiration minutes must be positive")
	}
	if payload.UserID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Email:  payload.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        jti,
		},
	}
	return sign(cfg.Secret, claims)
}

// ParseAccessToken validates the JWT string and returns typed claims.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errSecretRequired
	}
	claims := &AccessTokenClaims{}
	if err := parse(cfg, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("token missing user id")
	}
	if slices.Contains(claims.Audience, stateAudience) {
		return nil, fmt.Errorf("oauth state is not a session token")
	}
	return claims, nil
}

// MintState returns a short-lived signed OAuth state value for userID.
func MintState(cfg config.JWTConfig, now time.Time, userID uuid.UUID) (string, error) {
	if cfg.Secret == "" {
		return "", errSecretRequired
	}
	claims := stateClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{stateAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.StateTTL())),
			ID:        uuid.NewString(),
		},
	}
	return sign(cfg.Secret, claims)
}

// ParseState verifies an OAuth state value and returns the user that minted it.
func ParseState(cfg config.JWTConfig, state string) (uuid.UUID, error) {
	if cfg.Secret == "" {
		return uuid.Nil, errSecretRequired
	}
	claims := &stateClaims{}
	if err := parse(cfg, state, claims, jwt.WithAudience(stateAudience)); err != nil {
		return uuid.Nil, err
	}
	if claims.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("state missing user id")
	}
	return claims.UserID, nil
}

func sign(secret string, claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func parse(cfg config.JWTConfig, tokenString string, claims jwt.Claims, extra ...jwt.ParserOption) error {
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	}, extra...)
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtSigningMethod {
			return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	return err
}
