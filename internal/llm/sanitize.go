package llm

import (
	"regexp"
	"strings"
)

// Marker phrases that signal the model drifted into meta-commentary. Every
// line at or after the first match is dropped.
var responseMarkers = []string{
	"---",
	"**note:**",
	"note:",
	"feel free to",
	"you can also",
	"suggestions:",
	"tips:",
	"remember to",
	"don't forget",
	"consider adding",
}

var (
	bracketRe  = regexp.MustCompile(`\[.*?\]`)
	newlinesRe = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// CleanResponse strips meta-commentary from raw model output: trailing note
// and suggestion sections, bracketed placeholders like [Name], and runs of
// blank lines. It is a pure string transform and idempotent.
func CleanResponse(response string) string {
	lines := strings.Split(response, "\n")
	cleaned := make([]string, 0, len(lines))

	for _, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		marked := false
		for _, marker := range responseMarkers {
			if strings.Contains(lower, marker) {
				marked = true
				break
			}
		}
		if marked {
			break
		}
		cleaned = append(cleaned, line)
	}

	result := strings.TrimSpace(strings.Join(cleaned, "\n"))
	result = bracketRe.ReplaceAllString(result, "")
	result = newlinesRe.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}
