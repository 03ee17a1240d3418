package llm

import (
	"context"
	"log"
	"strings"
)

// Pipeline orchestrates prompt building, provider routing and sanitizing for
// the three composer operations. Every operation is total: provider and parse
// failures degrade to a deterministic fallback and are never surfaced to the
// caller.
type Pipeline struct {
	router *Router
	logger *log.Logger
}

// NewPipeline wires a pipeline over the given router.
func NewPipeline(router *Router, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[LLM] ", log.LstdFlags)
	}
	return &Pipeline{router: router, logger: logger}
}

// Available reports whether at least one LLM provider is configured.
func (p *Pipeline) Available() bool { return p.router.Available() }

// RewriteInput carries everything needed to rewrite one draft.
type RewriteInput struct {
	UserInput string
	Context   string
	Tone      string
	Platform  string
	Model     string
	Recipient string
}

// Rewrite rewrites a message draft using the requested model, falling back to
// the deterministic rewrite when no provider is configured or the call fails.
func (p *Pipeline) Rewrite(ctx context.Context, in RewriteInput) string {
	if strings.TrimSpace(in.UserInput) == "" {
		return ""
	}
	if !p.Available() {
		p.logger.Printf("no LLM provider configured, using fallback rewrite")
		return FallbackRewrite(in.UserInput, in.Tone, in.Platform)
	}

	m := Normalize(in.Model)
	if m.Name != in.Model {
		p.logger.Printf("model name normalized: %q -> %q", in.Model, m.Name)
	}
	if m.Family == FamilyFallback {
		return FallbackRewrite(in.UserInput, in.Tone, in.Platform)
	}

	prompt := BuildRewritePrompt(in.UserInput, in.Context, in.Platform, in.Recipient)
	out, err := p.router.Complete(ctx, m, prompt, RewriteParamsFor(m.Family))
	if err != nil {
		p.logger.Printf("provider call failed (%s), using fallback rewrite: %v", m.Family, err)
		return FallbackRewrite(in.UserInput, in.Tone, in.Platform)
	}
	return CleanResponse(out)
}

// AnswerInput carries a question plus the assembled context for it.
type AnswerInput struct {
	Question         string
	KnowledgeContext string
	Model            string
	SessionID        string
	PageTitle        string
	PageContent      string
	ChatHistory      string
}

// Answer answers a question over the stored knowledge. When both a page title
// and content are present the summarizer prompt is used instead of the chat
// prompt. Failures degrade to the deterministic answer.
func (p *Pipeline) Answer(ctx context.Context, in AnswerInput) string {
	if strings.TrimSpace(in.Question) == "" {
		return ""
	}
	if !p.Available() {
		p.logger.Printf("no LLM provider configured, using fallback answer")
		return FallbackAnswer(in.Question, in.KnowledgeContext)
	}

	m := Normalize(in.Model)
	if m.Family == FamilyFallback {
		return FallbackAnswer(in.Question, in.KnowledgeContext)
	}

	var prompt string
	if in.PageContent != "" && in.PageTitle != "" {
		prompt = BuildSummarizerPrompt(in.Question, in.PageContent, in.PageTitle, in.ChatHistory)
	} else {
		prompt = BuildChatPrompt(in.Question, in.KnowledgeContext)
	}

	out, err := p.router.Complete(ctx, m, prompt, AnswerParams)
	if err != nil {
		p.logger.Printf("provider call failed (%s), using fallback answer: %v", m.Family, err)
		return FallbackAnswer(in.Question, in.KnowledgeContext)
	}
	return CleanResponse(out)
}

// ExtractProfile turns scraped profile material into a structured record.
// Parse failures and provider failures both degrade to the deterministic
// profile structure.
func (p *Pipeline) ExtractProfile(ctx context.Context, in ProfileInput, model string) Profile {
	combined := ComposeProfileText(in)
	if strings.TrimSpace(combined) == "" {
		return FallbackProfile(in, combined)
	}

	m := Normalize(model)
	if !p.Available() || m.Family == FamilyFallback {
		return FallbackProfile(in, combined)
	}

	prompt := BuildProfilePrompt(combined)
	out, err := p.router.Complete(ctx, m, prompt, AnswerParams)
	if err != nil {
		p.logger.Printf("profile extraction failed (%s), using fallback structure: %v", m.Family, err)
		return FallbackProfile(in, combined)
	}

	// The JSON response is parsed as-is; CleanResponse would mangle arrays.
	profile, err := ParseProfileJSON(out, in, combined)
	if err != nil {
		p.logger.Printf("profile response unparsable, using fallback structure: %v", err)
		return FallbackProfile(in, combined)
	}
	return profile
}

// AvailableModels lists the model names usable with the current credentials.
func (p *Pipeline) AvailableModels() []string {
	var models []string
	if p.router.OpenAI != nil && p.router.OpenAI.Configured() {
		models = append(models, "gpt-4", "gpt-4-turbo-preview", "gpt-3.5-turbo")
	}
	if p.router.Anthropic != nil && p.router.Anthropic.Configured() {
		models = append(models, modelClaudeOpus, modelClaudeSonnet, modelClaudeHaiku)
	}
	if len(models) == 0 {
		models = append(models, "fallback")
	}
	return models
}
