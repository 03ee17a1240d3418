package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestInsertMessageDefaultsIDAndSource(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	query := regexp.QuoteMeta(`INSERT INTO messages (id, platform, recipient, message, is_outgoing, source, created_at) VALUES ($1,$2,$3,$4,$5,$6,NOW())`)
	mock.ExpectExec(query).
		WithArgs(sqlmock.AnyArg(), "linkedin", "Jane Doe", "hey there", true, SourceExtension).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := st.InsertMessage(context.Background(), MessageRecord{
		Platform:  "linkedin",
		Recipient: "Jane Doe",
		Text:      "hey there",
		Outgoing:  true,
	})
	if err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHistoryOrdersOldestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "platform", "recipient", "message", "is_outgoing", "source", "created_at"}).
		AddRow("m1", "linkedin", "Jane Doe", "hi", true, SourceExtension, now.Add(-time.Minute)).
		AddRow("m2", "linkedin", "Jane Doe", "hello", false, SourceExtension, now)
	mock.ExpectQuery("SELECT id, platform, recipient, message, is_outgoing, source, created_at FROM").
		WithArgs("Jane Doe", "linkedin", 10).
		WillReturnRows(rows)

	got, err := st.History(context.Background(), "Jane Doe", "linkedin", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "m2" {
		t.Fatalf("unexpected history: %+v", got)
	}
	if !got[0].Outgoing || got[1].Outgoing {
		t.Fatal("outgoing flags lost")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteHistoryReportsCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM messages WHERE recipient=$1 AND platform=$2`)).
		WithArgs("Jane Doe", "linkedin").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := st.DeleteHistory(context.Background(), "Jane Doe", "linkedin")
	if err != nil {
		t.Fatalf("DeleteHistory: %v", err)
	}
	if n != 3 {
		t.Fatalf("deleted = %d, want 3", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkMessagesSyncedNoIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	if err := st.MarkMessagesSynced(context.Background(), nil); err != nil {
		t.Fatalf("MarkMessagesSynced: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no statement should run for empty ids: %v", err)
	}
}

func TestMarkMessagesSynced(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE messages SET synced_at=NOW() WHERE id = ANY($1)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := st.MarkMessagesSynced(context.Background(), []string{"m1", "m2"}); err != nil {
		t.Fatalf("MarkMessagesSynced: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertPage(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	mock.ExpectExec("INSERT INTO pages").
		WithArgs("https://example.com", "Example", "body").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = st.UpsertPage(context.Background(), PageRecord{URL: "https://example.com", Title: "Example", Content: "body"})
	if err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetPageMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	mock.ExpectQuery("SELECT url, title, content, updated_at FROM pages").
		WithArgs("https://missing.example.com").
		WillReturnRows(sqlmock.NewRows([]string{"url", "title", "content", "updated_at"}))

	_, ok, err := st.GetPage(context.Background(), "https://missing.example.com")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if ok {
		t.Fatal("missing page reported as found")
	}
}

func TestUpsertProfileDefaultsJSONLists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	mock.ExpectQuery("INSERT INTO profiles").
		WithArgs(sqlmock.AnyArg(), "https://linkedin.com/in/jane", "linkedin", "Jane Doe", "Senior Engineer",
			"", "", "", "", []byte(`[]`), []byte(`[]`), []byte(`[]`), "raw").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))

	id, err := st.UpsertProfile(context.Background(), ProfileRecord{
		URL:      "https://linkedin.com/in/jane",
		Platform: "linkedin",
		Name:     "Jane Doe",
		Headline: "Senior Engineer",
		RawText:  "raw",
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	if id != "p1" {
		t.Fatalf("id = %q", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertProfileKeepsProvidedJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	skills := json.RawMessage(`["Go","SQL"]`)
	mock.ExpectQuery("INSERT INTO profiles").
		WithArgs(sqlmock.AnyArg(), "u", "linkedin", "", "", "", "", "", "",
			[]byte(`[]`), []byte(`[]`), []byte(skills), "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p2"))

	if _, err := st.UpsertProfile(context.Background(), ProfileRecord{URL: "u", Platform: "linkedin", Skills: skills}); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProfileSnippetsJoinsScrapedContent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	rows := sqlmock.NewRows([]string{"url", "platform", "content", "name", "company", "title"}).
		AddRow("https://linkedin.com/in/jane", "linkedin", "Jane, engineer at Acme", "Jane Doe", "Acme", "Engineer").
		AddRow("https://linkedin.com/in/alex", "linkedin", "", "Alex Roe", "", "")
	mock.ExpectQuery("SELECT p.url, p.platform, COALESCE").
		WithArgs("linkedin", 5).
		WillReturnRows(rows)

	got, err := st.ProfileSnippets(context.Background(), "linkedin", 5)
	if err != nil {
		t.Fatalf("ProfileSnippets: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Content == "" || got[1].Content != "" {
		t.Fatalf("content join wrong: %+v", got)
	}
}
