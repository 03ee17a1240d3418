// Package knowledge renders retrieved store records into the single text
// block the prompt layer consumes. Section order is fixed: current page,
// recent messages, known profiles, prior chat turns. Empty sections are
// omitted entirely.
package knowledge

import (
	"fmt"
	"sort"
	"strings"
)

// Caps applied to free text so one large record cannot dominate the prompt.
const (
	pageContentCap    = 2000
	profileContentCap = 500
	chatHistoryTurns  = 5
)

// Message is one captured conversation message.
type Message struct {
	Text     string
	Outgoing bool
}

// Page is a stored page capture.
type Page struct {
	URL     string
	Title   string
	Content string
}

// ProfileRecord is a stored contact profile, either scraped markdown content
// or structured metadata.
type ProfileRecord struct {
	URL      string
	Platform string
	Content  string
	Data     map[string]string
}

// ChatTurn is one prior turn of the assistant chat session.
type ChatTurn struct {
	Role string
	Text string
}

// direction labels a message line by who sent it.
func direction(outgoing bool, recipient string) string {
	if outgoing {
		return "You"
	}
	if recipient == "" {
		return "Contact"
	}
	return recipient
}

// BuildRewriteContext renders the rewrite prompt's conversation context:
// stored history first, then the live conversation captured by the caller.
func BuildRewriteContext(history, current []Message, recipient string) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Previous conversation history:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", direction(m.Outgoing, recipient), m.Text)
		}
	}
	if len(current) > 0 {
		b.WriteString("\nCurrent conversation:\n")
		for _, m := range current {
			fmt.Fprintf(&b, "%s: %s\n", direction(m.Outgoing, recipient), m.Text)
		}
	}
	return b.String()
}

// Build merges the retrieved collections into one knowledge block.
func Build(page *Page, messages []Message, profiles []ProfileRecord, chat []ChatTurn, recipient string) string {
	var lines []string

	if page != nil {
		lines = append(lines,
			fmt.Sprintf("Current Page: %s", page.Title),
			fmt.Sprintf("URL: %s", page.URL),
			fmt.Sprintf("Content:\n%s", truncate(page.Content, pageContentCap)),
			"")
	}

	if len(messages) > 0 {
		lines = append(lines, "Recent conversations:")
		for _, m := range messages {
			lines = append(lines, fmt.Sprintf("%s: %s", direction(m.Outgoing, recipient), m.Text))
		}
	}

	if len(profiles) > 0 {
		lines = append(lines, "\nKnown profiles:")
		for _, p := range profiles {
			if p.Content != "" {
				lines = append(lines,
					fmt.Sprintf("\nProfile: %s", p.URL),
					fmt.Sprintf("Content:\n%s", truncate(p.Content, profileContentCap)))
				continue
			}
			var fields []string
			keys := make([]string, 0, len(p.Data))
			for k := range p.Data {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if v := p.Data[k]; v != "" {
					fields = append(fields, fmt.Sprintf("%s: %s", k, v))
				}
			}
			lines = append(lines, fmt.Sprintf("- %s (%s): %s", p.URL, p.Platform, strings.Join(fields, ", ")))
		}
	}

	if len(chat) > 0 {
		lines = append(lines, "\nPrevious chat messages:")
		for _, t := range lastTurns(chat, chatHistoryTurns) {
			lines = append(lines, fmt.Sprintf("%s: %s", capitalizeRole(t.Role), t.Text))
		}
	}

	return strings.Join(lines, "\n")
}

// RenderChatHistory renders the trailing chat turns for the summarizer
// prompt, most recent last.
func RenderChatHistory(chat []ChatTurn) string {
	if len(chat) == 0 {
		return ""
	}
	var lines []string
	for _, t := range lastTurns(chat, chatHistoryTurns) {
		lines = append(lines, fmt.Sprintf("%s: %s", capitalizeRole(t.Role), t.Text))
	}
	return strings.Join(lines, "\n")
}

func lastTurns(chat []ChatTurn, n int) []ChatTurn {
	if len(chat) > n {
		return chat[len(chat)-n:]
	}
	return chat
}

func capitalizeRole(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
