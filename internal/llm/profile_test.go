package llm

import "testing"

func TestComposeProfileTextSkipsEmptyFields(t *testing.T) {
	got := ComposeProfileText(ProfileInput{Title: "Jane Doe | Engineer", Snippet: "10 years in infra"})
	want := "Title: Jane Doe | Engineer\nSnippet: 10 years in infra"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if ComposeProfileText(ProfileInput{}) != "" {
		t.Fatal("empty input should compose to empty text")
	}
}

func TestParseProfileJSONPlain(t *testing.T) {
	raw := `{"name":"Jane Doe","company":"Acme","skills":["Go","SQL"]}`
	p, err := ParseProfileJSON(raw, ProfileInput{Title: "Jane Doe | Engineer", Summary: "builds things"}, "combined text")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Jane Doe" || p.Company != "Acme" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if len(p.Skills) != 2 || p.Skills[0] != "Go" {
		t.Errorf("skills = %v", p.Skills)
	}
	if p.Summary != "builds things" {
		t.Errorf("summary should default from input, got %q", p.Summary)
	}
	if p.Headline != "Jane Doe | Engineer" {
		t.Errorf("headline should default from title, got %q", p.Headline)
	}
	if p.RawText != "combined text" {
		t.Errorf("raw_text should default to combined, got %q", p.RawText)
	}
	if p.Experiences == nil || p.Education == nil {
		t.Error("list fields must never be nil")
	}
}

func TestParseProfileJSONCodeFence(t *testing.T) {
	raw := "```json\n{\"name\":\"Jane Doe\"}\n```"
	p, err := ParseProfileJSON(raw, ProfileInput{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Jane Doe" {
		t.Fatalf("name = %q", p.Name)
	}
}

func TestParseProfileJSONInvalid(t *testing.T) {
	if _, err := ParseProfileJSON("Sure! Here is the profile:", ProfileInput{}, ""); err == nil {
		t.Fatal("expected parse error")
	}
}
