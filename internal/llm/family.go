package llm

import "strings"

// Family identifies which completion backend a model name belongs to.
// It is resolved once at normalization time so call sites never re-check
// string prefixes.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyOpenAI
	FamilyAnthropic
	FamilyFallback
)

func (f Family) String() string {
	switch f {
	case FamilyOpenAI:
		return "openai"
	case FamilyAnthropic:
		return "anthropic"
	case FamilyFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Model is a canonical provider-specific model identifier tagged with its family.
type Model struct {
	Name   string
	Family Family
}

// Dated Anthropic model identifiers used for shorthand names.
const (
	modelClaudeSonnet4 = "claude-sonnet-4-5-20250929"
	modelClaudeOpus    = "claude-3-opus-20240229"
	modelClaudeSonnet  = "claude-3-sonnet-20240229"
	modelClaudeHaiku   = "claude-3-haiku-20240307"
)

// Normalize canonicalizes a user-supplied model name. Matching is
// case-insensitive; "fallback" passes through, "claude" shorthands map to
// dated identifiers (haiku when no tier is named), and anything else passes
// through unchanged. Unknown names are not an error here; they surface as
// unsupported when routed.
func Normalize(raw string) Model {
	lower := strings.ToLower(strings.TrimSpace(raw))

	if lower == "fallback" {
		return Model{Name: "fallback", Family: FamilyFallback}
	}
	if strings.Contains(lower, "claude-sonnet-4") {
		return Model{Name: modelClaudeSonnet4, Family: FamilyAnthropic}
	}
	if strings.Contains(lower, "claude") {
		switch {
		case strings.Contains(lower, "opus"):
			return Model{Name: modelClaudeOpus, Family: FamilyAnthropic}
		case strings.Contains(lower, "sonnet"):
			return Model{Name: modelClaudeSonnet, Family: FamilyAnthropic}
		default:
			// Haiku is the fastest, so bare "claude" maps there.
			return Model{Name: modelClaudeHaiku, Family: FamilyAnthropic}
		}
	}

	family := FamilyUnknown
	if strings.HasPrefix(lower, "gpt") || strings.HasPrefix(lower, "o1") {
		family = FamilyOpenAI
	}
	return Model{Name: raw, Family: family}
}
