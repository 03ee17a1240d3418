package llm

import (
	"fmt"
	"strings"
	"unicode"
)

// FallbackRewrite produces a deterministic rewrite when no provider is
// available: sentences are tidied and re-capitalized, terminal punctuation is
// ensured, and LinkedIn messages get a tone-dependent lead-in. Whitespace-only
// input yields an empty string.
func FallbackRewrite(userInput, tone, platform string) string {
	text := strings.TrimSpace(userInput)
	if text == "" {
		return ""
	}

	var sentences []string
	for _, s := range strings.Split(strings.ReplaceAll(text, "\n", " "), ".") {
		s = capitalize(strings.TrimSpace(s))
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	body := strings.Join(sentences, ". ")
	if body == "" {
		body = capitalize(text)
	}
	if !strings.ContainsRune(".!?", rune(body[len(body)-1])) {
		body += "."
	}

	switch platform {
	case "linkedin":
		if tone == "friendly" {
			return fmt.Sprintf("Just to share heads-up: %s", body)
		}
		return fmt.Sprintf("Following up: %s", body)
	default:
		return body
	}
}

// FallbackAnswer returns a templated answer built from whatever knowledge is
// stored, or a fixed message when nothing is known yet.
func FallbackAnswer(question, knowledgeContext string) string {
	if strings.TrimSpace(knowledgeContext) != "" {
		return fmt.Sprintf(
			"Based on what I currently know:\n%s\n\nFor your question %q, this is the best summary available. "+
				"If you need more detail, try saving additional conversations or profiles first.",
			knowledgeContext, question)
	}
	return "I don't have any saved knowledge yet to answer that. " +
		"Try capturing profiles or conversations, then ask again."
}

// FallbackProfile derives a minimal structured profile without an LLM. The
// title field is split on "|": the first segment becomes the name, the second
// (or the summary) the headline. List fields are empty, never nil.
func FallbackProfile(in ProfileInput, combined string) Profile {
	var name, remainder string
	if in.Title != "" {
		parts := strings.Split(in.Title, "|")
		name = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			remainder = strings.TrimSpace(parts[1])
		} else {
			remainder = in.Summary
		}
	} else {
		remainder = in.Summary
	}

	rawText := combined
	if rawText == "" {
		rawText = in.Snippet
	}

	return Profile{
		Name:        name,
		Headline:    remainder,
		Summary:     in.Summary,
		Title:       remainder,
		Experiences: []Experience{},
		Education:   []Education{},
		Skills:      []string{},
		RawText:     rawText,
	}
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
