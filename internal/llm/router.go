package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the selected provider has no credential.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrUnsupportedModel means the normalized name matches no provider family.
	ErrUnsupportedModel = errors.New("unsupported model")
)

// Completer is the single blocking operation a completion backend exposes.
type Completer interface {
	Complete(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, error)
	Configured() bool
}

// GenParams are the per-operation generation settings.
type GenParams struct {
	Temperature float64
	MaxTokens   int
}

// Fixed generation parameters. OpenAI rewrites run warmer with more room;
// Anthropic calls and all answering/extraction stay conservative.
var (
	RewriteParams = GenParams{Temperature: 0.7, MaxTokens: 500}
	AnswerParams  = GenParams{Temperature: 0.3, MaxTokens: 300}
)

// RewriteParamsFor returns the rewrite generation settings for a family.
func RewriteParamsFor(f Family) GenParams {
	if f == FamilyOpenAI {
		return RewriteParams
	}
	return AnswerParams
}

// Router dispatches a normalized model to its provider family. There is
// exactly one attempt per request; callers handle failure by falling back.
type Router struct {
	OpenAI    Completer
	Anthropic Completer
}

// Available reports whether at least one backend has a credential.
func (r *Router) Available() bool {
	return (r.OpenAI != nil && r.OpenAI.Configured()) ||
		(r.Anthropic != nil && r.Anthropic.Configured())
}

// Complete routes the prompt to the backend owning the model's family. A
// missing credential fails immediately without attempting the call.
func (r *Router) Complete(ctx context.Context, m Model, prompt string, params GenParams) (string, error) {
	switch m.Family {
	case FamilyOpenAI:
		if r.OpenAI == nil || !r.OpenAI.Configured() {
			return "", fmt.Errorf("openai: %w", ErrNotConfigured)
		}
		return r.OpenAI.Complete(ctx, prompt, m.Name, params.Temperature, params.MaxTokens)
	case FamilyAnthropic:
		if r.Anthropic == nil || !r.Anthropic.Configured() {
			return "", fmt.Errorf("anthropic: %w", ErrNotConfigured)
		}
		return r.Anthropic.Complete(ctx, prompt, m.Name, params.Temperature, params.MaxTokens)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedModel, m.Name)
	}
}
