package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/config"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

const defaultMaxTokens = 1500

// Gemini generates text with Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *logger.Logger
}

// GeminiOption customizes the underlying genai client config.
type GeminiOption func(*genai.ClientConfig)

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) GeminiOption {
	return func(cc *genai.ClientConfig) { cc.HTTPOptions.BaseURL = baseURL }
}

// WithHTTPClient sets the transport used for API calls.
func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(cc *genai.ClientConfig) { cc.HTTPClient = hc }
}

func NewGemini(ctx context.Context, cfg config.GeminiConfig, logg *logger.Logger, opts ...GeminiOption) (*Gemini, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("gemini model required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model, logger: logg}, nil
}

// GenerateText sends the history and the user turn with the system
// instruction attached.
func (g *Gemini) GenerateText(ctx context.Context, prompt Prompt) (string, error) {
	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	genCfg := &genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)}
	if strings.TrimSpace(prompt.System) != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	contents := make([]*genai.Content, 0, len(prompt.History)+1)
	for _, turn := range prompt.History {
		role := genai.Role(genai.RoleUser)
		if turn.FromModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt.User, genai.RoleUser))

	ctx = g.logger.WithFields(ctx, map[string]any{"model": g.model, "max_tokens": maxTokens, "turns": len(contents)})
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		g.logger.Error(ctx, "gemini generate content failed", err)
		return "", mapGenaiError(err)
	}

	text := StripFences(resp.Text())
	if text == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "gemini returned an empty response")
	}
	g.logger.Debug(g.logger.WithField(ctx, "response_chars", len(text)), "gemini response received")
	return text, nil
}

func mapGenaiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, err, "gemini rate limited")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gemini generate content failed")
}
