// Package store persists captured messages, page snapshots and contact
// profiles in Postgres. All methods are independent single-statement
// transactions.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Store struct {
	DB *sql.DB
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// MessageRecord is one captured conversation message. Source names the
// writer that appended it, never inferred from timing.
type MessageRecord struct {
	ID        string
	Platform  string
	Recipient string
	Text      string
	Outgoing  bool
	Source    string
	CreatedAt time.Time
	SyncedAt  *time.Time
}

// Message writer sources.
const (
	SourceExtension  = "extension"
	SourceMemorySync = "memory-sync"
)

// InsertMessage appends one message and returns its generated id.
func (s *Store) InsertMessage(ctx context.Context, rec MessageRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Source == "" {
		rec.Source = SourceExtension
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO messages (id, platform, recipient, message, is_outgoing, source, created_at) VALUES ($1,$2,$3,$4,$5,$6,NOW())`,
		rec.ID, rec.Platform, rec.Recipient, rec.Text, rec.Outgoing, rec.Source)
	return rec.ID, err
}

// History returns the recipient's messages oldest-first.
func (s *Store) History(ctx context.Context, recipient, platform string, limit int) ([]MessageRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, platform, recipient, message, is_outgoing, source, created_at FROM (
  SELECT id, platform, recipient, message, is_outgoing, source, created_at FROM messages
  WHERE recipient=$1 AND platform=$2 ORDER BY created_at DESC LIMIT $3
) recent ORDER BY created_at ASC`,
		recipient, platform, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// RecentMessages returns the latest messages on a platform, oldest-first.
// Empty platform or recipient matches everything.
func (s *Store) RecentMessages(ctx context.Context, platform, recipient string, limit int) ([]MessageRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, platform, recipient, message, is_outgoing, source, created_at FROM (
  SELECT id, platform, recipient, message, is_outgoing, source, created_at FROM messages
  WHERE ($1 = '' OR platform=$1) AND ($2 = '' OR recipient=$2) ORDER BY created_at DESC LIMIT $3
) recent ORDER BY created_at ASC`,
		platform, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]MessageRecord, error) {
	var out []MessageRecord
	for rows.Next() {
		var m MessageRecord
		if err := rows.Scan(&m.ID, &m.Platform, &m.Recipient, &m.Text, &m.Outgoing, &m.Source, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteHistory removes a recipient's messages and reports how many went.
func (s *Store) DeleteHistory(ctx context.Context, recipient, platform string) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM messages WHERE recipient=$1 AND platform=$2`, recipient, platform)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListUnsyncedMessages returns messages not yet pushed to the memory API,
// oldest-first.
func (s *Store) ListUnsyncedMessages(ctx context.Context, limit int) ([]MessageRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, platform, recipient, message, is_outgoing, source, created_at FROM messages
 WHERE synced_at IS NULL ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MarkMessagesSynced stamps the given messages as pushed to the memory API.
func (s *Store) MarkMessagesSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.DB.ExecContext(ctx,
		`UPDATE messages SET synced_at=NOW() WHERE id = ANY($1)`, pq.Array(ids))
	return err
}

// PageRecord is a stored page snapshot keyed by URL.
type PageRecord struct {
	URL       string
	Title     string
	Content   string
	UpdatedAt time.Time
}

// UpsertPage stores or refreshes one page snapshot.
func (s *Store) UpsertPage(ctx context.Context, rec PageRecord) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO pages (url, title, content, updated_at) VALUES ($1,$2,$3,NOW())
ON CONFLICT (url) DO UPDATE SET
  title = EXCLUDED.title,
  content = EXCLUDED.content,
  updated_at = NOW()`,
		rec.URL, rec.Title, rec.Content)
	return err
}

// GetPage fetches one page snapshot by URL.
func (s *Store) GetPage(ctx context.Context, url string) (PageRecord, bool, error) {
	var p PageRecord
	err := s.DB.QueryRowContext(ctx,
		`SELECT url, title, content, updated_at FROM pages WHERE url=$1`, url).
		Scan(&p.URL, &p.Title, &p.Content, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return PageRecord{}, false, nil
	}
	if err != nil {
		return PageRecord{}, false, err
	}
	return p, true, nil
}

// ListPages returns stored pages newest-first. Used to rebuild the search
// index at startup.
func (s *Store) ListPages(ctx context.Context, limit int) ([]PageRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT url, title, content, updated_at FROM pages ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PageRecord
	for rows.Next() {
		var p PageRecord
		if err := rows.Scan(&p.URL, &p.Title, &p.Content, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProfileRecord is a structured contact profile. Experiences, Education and
// Skills are stored as JSONB.
type ProfileRecord struct {
	ID          string
	URL         string
	Platform    string
	Name        string
	Headline    string
	Summary     string
	Location    string
	Company     string
	Title       string
	Experiences json.RawMessage
	Education   json.RawMessage
	Skills      json.RawMessage
	RawText     string
	CreatedAt   time.Time
}

// UpsertProfile stores or refreshes one structured profile keyed by URL.
func (s *Store) UpsertProfile(ctx context.Context, rec ProfileRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Experiences == nil {
		rec.Experiences = json.RawMessage(`[]`)
	}
	if rec.Education == nil {
		rec.Education = json.RawMessage(`[]`)
	}
	if rec.Skills == nil {
		rec.Skills = json.RawMessage(`[]`)
	}
	var id string
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO profiles (id, url, platform, name, headline, summary, location, company, title, experiences, education, skills, raw_text, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
ON CONFLICT (url) DO UPDATE SET
  platform = EXCLUDED.platform,
  name = EXCLUDED.name,
  headline = EXCLUDED.headline,
  summary = EXCLUDED.summary,
  location = EXCLUDED.location,
  company = EXCLUDED.company,
  title = EXCLUDED.title,
  experiences = EXCLUDED.experiences,
  education = EXCLUDED.education,
  skills = EXCLUDED.skills,
  raw_text = EXCLUDED.raw_text
RETURNING id`,
		rec.ID, rec.URL, rec.Platform, rec.Name, rec.Headline, rec.Summary, rec.Location,
		rec.Company, rec.Title, []byte(rec.Experiences), []byte(rec.Education), []byte(rec.Skills), rec.RawText).
		Scan(&id)
	return id, err
}

// UpsertScrapedProfile stores the raw scraped markdown for a profile URL.
func (s *Store) UpsertScrapedProfile(ctx context.Context, url, platform, content string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO scraped_profiles (url, platform, content, updated_at) VALUES ($1,$2,$3,NOW())
ON CONFLICT (url) DO UPDATE SET
  platform = EXCLUDED.platform,
  content = EXCLUDED.content,
  updated_at = NOW()`,
		url, platform, content)
	return err
}

// ProfileSnippet is the context-building view of a profile: scraped markdown
// when available, structured metadata otherwise.
type ProfileSnippet struct {
	URL      string
	Platform string
	Content  string
	Name     string
	Company  string
	Title    string
}

// ProfileSnippets returns the latest profiles joined with their scraped
// content. An empty platform matches everything.
func (s *Store) ProfileSnippets(ctx context.Context, platform string, limit int) ([]ProfileSnippet, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT p.url, p.platform, COALESCE(sp.content, ''), p.name, p.company, p.title
FROM profiles p
LEFT JOIN scraped_profiles sp ON sp.url = p.url
WHERE ($1 = '' OR p.platform=$1)
ORDER BY p.created_at DESC LIMIT $2`,
		platform, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProfileSnippet
	for rows.Next() {
		var p ProfileSnippet
		if err := rows.Scan(&p.URL, &p.Platform, &p.Content, &p.Name, &p.Company, &p.Title); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
