package pagesearch

import (
	"testing"

	"github.com/mohammad-safakhou/composer/internal/store"
)

func TestSearchFindsIndexedPage(t *testing.T) {
	idx, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pages := []store.PageRecord{
		{URL: "https://example.com/go", Title: "Go Concurrency Patterns", Content: "goroutines and channels explained"},
		{URL: "https://example.com/sql", Title: "Postgres Indexing", Content: "btree indexes and query plans"},
	}
	for _, p := range pages {
		if err := idx.Add(p); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	hits, err := idx.Search("goroutines", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].URL != "https://example.com/go" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Title != "Go Concurrency Patterns" || hits[0].Content == "" {
		t.Fatalf("hit missing metadata: %+v", hits[0])
	}
}

func TestAddReplacesSameURL(t *testing.T) {
	idx, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := idx.Add(store.PageRecord{URL: "u", Title: "old", Content: "stale words"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(store.PageRecord{URL: "u", Title: "new", Content: "fresh words"}); err != nil {
		t.Fatalf("Add replace: %v", err)
	}
	if idx.Count() != 1 {
		t.Fatalf("count = %d, want 1", idx.Count())
	}

	hits, err := idx.Search("fresh", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Title != "new" {
		t.Fatalf("replacement not visible: %+v", hits)
	}
}

func TestSearchNoMatches(t *testing.T) {
	idx, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := idx.Add(store.PageRecord{URL: "u", Title: "t", Content: "unrelated"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	hits, err := idx.Search("zebra", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %+v", hits)
	}
}
