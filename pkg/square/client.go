package square

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/config"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	defaultAPIVersion = "2024-01-17"
	defaultTimeout    = 30 * time.Second
)

var (
	errApplicationIDRequired     = errors.New("square application id is required")
	errApplicationSecretRequired = errors.New("square application secret is required")
	errInvalidSquareEnv          = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired            = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

// Client talks to Square on behalf of connected merchants. It holds no
// merchant credentials; every call takes the merchant's access token.
type Client struct {
	sdk         *sqclient.Client
	baseURL     string
	appID       string
	appSecret   string
	redirectURL string
	environment string
	logger      *logger.Logger
}

// NewClient initializes the Square wrapper from app credentials.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	appID := strings.TrimSpace(cfg.ApplicationID)
	if appID == "" {
		return nil, errApplicationIDRequired
	}
	appSecret := strings.TrimSpace(cfg.ApplicationSecret)
	if appSecret == "" {
		return nil, errApplicationSecretRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = baseURLs[env]
	}
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	c := &Client{
		sdk: sqclient.NewClient(
			sqoption.WithBaseURL(baseURL),
			sqoption.WithHTTPClient(&http.Client{Timeout: defaultTimeout}),
			&sqcore.VersionOption{Version: apiVersion},
		),
		baseURL:     baseURL,
		appID:       appID,
		appSecret:   appSecret,
		redirectURL: strings.TrimSpace(cfg.RedirectURL),
		environment: env,
		logger:      logg,
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"square_env":         env,
		"square_api_version": apiVersion,
	}), "square client initialized")
	return c, nil
}

// Environment reports the normalized Square environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("square %s", op), errors.New(fmt.Sprint(fields["error"])))
	case "response":
		c.logger.Debug(ctx, fmt.Sprintf("square %s", phase))
	default:
		c.logger.Info(ctx, fmt.Sprintf("square %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "code", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidSquareEnv
	}
}
