// Package llm wraps the text-generation model behind a one-method interface.
package llm

import (
	"context"
	"strings"
)

// Turn is one earlier message of a conversation.
type Turn struct {
	FromModel bool
	Text      string
}

// Prompt is a system instruction plus the user's message. History, when
// set, is replayed oldest first before User.
type Prompt struct {
	System    string
	History   []Turn
	User      string
	MaxTokens int
}

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt Prompt) (string, error)
}

// GeneratorFunc adapts a plain function to TextGenerator.
type GeneratorFunc func(ctx context.Context, prompt Prompt) (string, error)

func (f GeneratorFunc) GenerateText(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// StripFences removes a Markdown code fence the model sometimes wraps
// around its answer despite being told not to.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	idx := strings.Index(s, "\n")
	if idx == -1 {
		return s
	}
	s = strings.TrimSpace(s[idx+1:])
	if end := strings.LastIndex(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
