package llm

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
)

type fakeCompleter struct {
	configured bool
	out        string
	err        error
	gotPrompt  string
	gotModel   string
	gotTemp    float64
	gotTokens  int
}

func (f *fakeCompleter) Complete(_ context.Context, prompt, model string, temperature float64, maxTokens int) (string, error) {
	f.gotPrompt = prompt
	f.gotModel = model
	f.gotTemp = temperature
	f.gotTokens = maxTokens
	return f.out, f.err
}

func (f *fakeCompleter) Configured() bool { return f.configured }

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestPipelineRewriteUnconfigured(t *testing.T) {
	p := NewPipeline(&Router{}, quietLogger())
	got := p.Rewrite(context.Background(), RewriteInput{
		UserInput: "hey can we meet", Tone: "professional", Platform: "linkedin", Model: "gpt-4",
	})
	if !strings.HasPrefix(got, "Following up:") {
		t.Fatalf("expected fallback rewrite, got %q", got)
	}
}

func TestPipelineRewriteProviderFailure(t *testing.T) {
	openai := &fakeCompleter{configured: true, err: errors.New("boom")}
	p := NewPipeline(&Router{OpenAI: openai}, quietLogger())
	got := p.Rewrite(context.Background(), RewriteInput{
		UserInput: "hey can we meet", Tone: "professional", Platform: "linkedin", Model: "gpt-4",
	})
	if !strings.HasPrefix(got, "Following up:") {
		t.Fatalf("expected fallback after provider error, got %q", got)
	}
}

func TestPipelineRewriteSanitizesProviderOutput(t *testing.T) {
	openai := &fakeCompleter{configured: true, out: "Hi [Name], great to connect!\nNote: adjust as needed."}
	p := NewPipeline(&Router{OpenAI: openai}, quietLogger())
	got := p.Rewrite(context.Background(), RewriteInput{UserInput: "hi", Platform: "linkedin", Model: "gpt-4"})
	if got != "Hi , great to connect!" {
		t.Fatalf("output not sanitized: %q", got)
	}
	if openai.gotTemp != 0.7 || openai.gotTokens != 500 {
		t.Errorf("rewrite params = %v/%v, want 0.7/500", openai.gotTemp, openai.gotTokens)
	}
}

func TestPipelineRewriteNormalizesModel(t *testing.T) {
	anthropic := &fakeCompleter{configured: true, out: "done"}
	p := NewPipeline(&Router{Anthropic: anthropic}, quietLogger())
	p.Rewrite(context.Background(), RewriteInput{UserInput: "hi", Model: "claude-opus"})
	if anthropic.gotModel != "claude-3-opus-20240229" {
		t.Fatalf("model not normalized: %q", anthropic.gotModel)
	}
	if anthropic.gotTemp != 0.3 || anthropic.gotTokens != 300 {
		t.Errorf("anthropic rewrite params = %v/%v, want 0.3/300", anthropic.gotTemp, anthropic.gotTokens)
	}
}

func TestPipelineRewriteExplicitFallbackModel(t *testing.T) {
	openai := &fakeCompleter{configured: true, out: "provider output"}
	p := NewPipeline(&Router{OpenAI: openai}, quietLogger())
	got := p.Rewrite(context.Background(), RewriteInput{UserInput: "hello there", Model: "fallback"})
	if got == "provider output" {
		t.Fatal("fallback model must not reach a provider")
	}
	if openai.gotPrompt != "" {
		t.Fatal("provider was called for fallback model")
	}
}

func TestPipelineRewriteEmptyInput(t *testing.T) {
	p := NewPipeline(&Router{}, quietLogger())
	if got := p.Rewrite(context.Background(), RewriteInput{UserInput: "  "}); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestPipelineAnswerUnconfigured(t *testing.T) {
	p := NewPipeline(&Router{}, quietLogger())
	got := p.Answer(context.Background(), AnswerInput{Question: "who is jane?"})
	if !strings.Contains(got, "don't have any saved knowledge") {
		t.Fatalf("expected fallback answer, got %q", got)
	}
}

func TestPipelineAnswerPicksSummarizerPrompt(t *testing.T) {
	openai := &fakeCompleter{configured: true, out: "summary"}
	p := NewPipeline(&Router{OpenAI: openai}, quietLogger())
	p.Answer(context.Background(), AnswerInput{
		Question: "summarize", Model: "gpt-4",
		PageTitle: "Example", PageContent: "page body",
	})
	if !strings.Contains(openai.gotPrompt, "analyzing the webpage") {
		t.Fatal("expected summarizer prompt when page content is present")
	}
	if openai.gotTemp != 0.3 || openai.gotTokens != 300 {
		t.Errorf("answer params = %v/%v, want 0.3/300", openai.gotTemp, openai.gotTokens)
	}
}

func TestPipelineAnswerPicksChatPrompt(t *testing.T) {
	openai := &fakeCompleter{configured: true, out: "answer"}
	p := NewPipeline(&Router{OpenAI: openai}, quietLogger())
	p.Answer(context.Background(), AnswerInput{Question: "who is jane?", Model: "gpt-4", KnowledgeContext: "Jane: engineer"})
	if !strings.Contains(openai.gotPrompt, "Knowledge graph snippets") {
		t.Fatal("expected chat prompt without page content")
	}
}

func TestPipelineExtractProfileUnconfigured(t *testing.T) {
	p := NewPipeline(&Router{}, quietLogger())
	profile := p.ExtractProfile(context.Background(), ProfileInput{Title: "Jane Doe | Engineer"}, "gpt-4")
	if profile.Name != "Jane Doe" {
		t.Fatalf("expected fallback profile, got %+v", profile)
	}
}

func TestPipelineExtractProfileParsesRawJSON(t *testing.T) {
	openai := &fakeCompleter{configured: true, out: `{"name":"Jane Doe","skills":["Go","SQL"]}`}
	p := NewPipeline(&Router{OpenAI: openai}, quietLogger())
	profile := p.ExtractProfile(context.Background(), ProfileInput{Title: "Jane Doe | Engineer"}, "gpt-4")
	if len(profile.Skills) != 2 {
		t.Fatalf("skills lost: %+v", profile)
	}
}

func TestPipelineExtractProfileUnparsableFallsBack(t *testing.T) {
	openai := &fakeCompleter{configured: true, out: "Sure! Here you go:"}
	p := NewPipeline(&Router{OpenAI: openai}, quietLogger())
	profile := p.ExtractProfile(context.Background(), ProfileInput{Title: "Jane Doe | Engineer"}, "gpt-4")
	if profile.Name != "Jane Doe" {
		t.Fatalf("expected fallback profile, got %+v", profile)
	}
}

func TestPipelineAvailableModels(t *testing.T) {
	p := NewPipeline(&Router{}, quietLogger())
	models := p.AvailableModels()
	if len(models) != 1 || models[0] != "fallback" {
		t.Fatalf("expected only fallback, got %v", models)
	}

	p = NewPipeline(&Router{OpenAI: &fakeCompleter{configured: true}}, quietLogger())
	models = p.AvailableModels()
	if len(models) == 0 || models[0] != "gpt-4" {
		t.Fatalf("expected openai models, got %v", models)
	}
}
