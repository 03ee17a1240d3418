package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProfileInput is the raw scraped material a profile is extracted from.
type ProfileInput struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Snippet string `json:"snippet"`
}

// Experience is a single position on a profile.
type Experience struct {
	Role        string `json:"role"`
	Company     string `json:"company"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Education is a single school entry on a profile.
type Education struct {
	School    string `json:"school"`
	Degree    string `json:"degree"`
	Field     string `json:"field"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Profile is the structured record produced by profile extraction.
type Profile struct {
	Name        string       `json:"name"`
	Headline    string       `json:"headline"`
	Summary     string       `json:"summary"`
	Location    string       `json:"location"`
	Company     string       `json:"company"`
	Title       string       `json:"title"`
	Experiences []Experience `json:"experiences"`
	Education   []Education  `json:"education"`
	Skills      []string     `json:"skills"`
	RawText     string       `json:"raw_text"`
}

// ComposeProfileText flattens the labelled non-empty input fields into the
// source text handed to the extraction prompt.
func ComposeProfileText(in ProfileInput) string {
	var parts []string
	if in.Title != "" {
		parts = append(parts, fmt.Sprintf("Title: %s", in.Title))
	}
	if in.Summary != "" {
		parts = append(parts, fmt.Sprintf("Summary: %s", in.Summary))
	}
	if in.Snippet != "" {
		parts = append(parts, fmt.Sprintf("Snippet: %s", in.Snippet))
	}
	return strings.Join(parts, "\n")
}

// ParseProfileJSON decodes a JSON-only extraction response, tolerating a
// Markdown code fence around the object. Missing fields default from the
// original input; list fields are never nil.
func ParseProfileJSON(response string, in ProfileInput, combined string) (Profile, error) {
	jsonText := strings.TrimSpace(response)
	if strings.HasPrefix(jsonText, "```") {
		jsonText = strings.Trim(jsonText, "`")
		if idx := strings.Index(jsonText, "\n"); idx >= 0 {
			jsonText = jsonText[idx+1:]
		}
	}

	var p Profile
	if err := json.Unmarshal([]byte(jsonText), &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile json: %w", err)
	}

	if p.Experiences == nil {
		p.Experiences = []Experience{}
	}
	if p.Education == nil {
		p.Education = []Education{}
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Summary == "" {
		p.Summary = in.Summary
	}
	if p.Headline == "" {
		p.Headline = in.Title
	}
	if p.RawText == "" {
		p.RawText = combined
	}
	return p, nil
}
