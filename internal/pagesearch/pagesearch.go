// Package pagesearch keeps an in-memory full-text index over stored page
// snapshots so the chat endpoint can find relevant captures by keyword.
// The index is rebuilt from Postgres at startup.
package pagesearch

import (
	"context"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/mohammad-safakhou/composer/internal/store"
)

// Hit is one matched page.
type Hit struct {
	URL     string
	Title   string
	Content string
	Score   float64
}

type doc struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Index struct {
	bleve bleve.Index
	meta  map[string]store.PageRecord
	mu    sync.RWMutex
}

func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{bleve: idx, meta: make(map[string]store.PageRecord)}, nil
}

// Add indexes one page, replacing any prior entry for the same URL.
func (i *Index) Add(rec store.PageRecord) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.meta[rec.URL] = rec
	return i.bleve.Index(rec.URL, doc{Title: rec.Title, Content: rec.Content})
}

// Rebuild reloads the index from the store. Existing entries stay; pages are
// keyed by URL so reloading is idempotent.
func (i *Index) Rebuild(ctx context.Context, st *store.Store, limit int) (int, error) {
	pages, err := st.ListPages(ctx, limit)
	if err != nil {
		return 0, err
	}
	for _, p := range pages {
		if err := i.Add(p); err != nil {
			return 0, err
		}
	}
	return len(pages), nil
}

// Search runs a query-string search and returns the top k pages.
func (i *Index) Search(q string, k int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	query := bleve.NewQueryStringQuery(q)
	req := bleve.NewSearchRequestOptions(query, k, 0, false)
	res, err := i.bleve.Search(req)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		rec, ok := i.meta[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			URL:     rec.URL,
			Title:   rec.Title,
			Content: rec.Content,
			Score:   h.Score,
		})
	}
	return hits, nil
}

// Count reports how many pages are indexed.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.meta)
}
