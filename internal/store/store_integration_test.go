package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/mohammad-safakhou/composer/internal/store"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		tcPostgres.WithDatabase("composer"),
		tcPostgres.WithUsername("composer"),
		tcPostgres.WithPassword("composer"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://composer:composer@%s:%s/composer?sslmode=disable", host, port.Port())
	if err := applySchema(ctx, dsn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	defer st.DB.Close()

	id1, err := st.InsertMessage(ctx, store.MessageRecord{Platform: "linkedin", Recipient: "Jane Doe", Text: "hi", Outgoing: true})
	if err != nil {
		t.Fatalf("insert message: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	id2, err := st.InsertMessage(ctx, store.MessageRecord{Platform: "linkedin", Recipient: "Jane Doe", Text: "hello", Outgoing: false})
	if err != nil {
		t.Fatalf("insert message: %v", err)
	}

	hist, err := st.History(ctx, "Jane Doe", "linkedin", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 || hist[0].ID != id1 || hist[1].ID != id2 {
		t.Fatalf("history out of order: %+v", hist)
	}

	unsynced, err := st.ListUnsyncedMessages(ctx, 10)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(unsynced) != 2 {
		t.Fatalf("unsynced = %d, want 2", len(unsynced))
	}
	if err := st.MarkMessagesSynced(ctx, []string{id1, id2}); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	unsynced, err = st.ListUnsyncedMessages(ctx, 10)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(unsynced) != 0 {
		t.Fatalf("messages still unsynced: %+v", unsynced)
	}

	if err := st.UpsertPage(ctx, store.PageRecord{URL: "https://example.com", Title: "Example", Content: "first"}); err != nil {
		t.Fatalf("upsert page: %v", err)
	}
	if err := st.UpsertPage(ctx, store.PageRecord{URL: "https://example.com", Title: "Example", Content: "second"}); err != nil {
		t.Fatalf("upsert page again: %v", err)
	}
	page, ok, err := st.GetPage(ctx, "https://example.com")
	if err != nil || !ok {
		t.Fatalf("get page: ok=%v err=%v", ok, err)
	}
	if page.Content != "second" {
		t.Fatalf("upsert did not replace content: %q", page.Content)
	}

	if err := st.UpsertScrapedProfile(ctx, "https://linkedin.com/in/jane", "linkedin", "Jane, engineer"); err != nil {
		t.Fatalf("upsert scraped profile: %v", err)
	}
	if _, err := st.UpsertProfile(ctx, store.ProfileRecord{
		URL: "https://linkedin.com/in/jane", Platform: "linkedin", Name: "Jane Doe",
	}); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}
	snips, err := st.ProfileSnippets(ctx, "linkedin", 5)
	if err != nil {
		t.Fatalf("profile snippets: %v", err)
	}
	if len(snips) != 1 || snips[0].Content != "Jane, engineer" {
		t.Fatalf("snippet join wrong: %+v", snips)
	}

	n, err := st.DeleteHistory(ctx, "Jane Doe", "linkedin")
	if err != nil {
		t.Fatalf("delete history: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted = %d, want 2", n)
	}
}

func applySchema(ctx context.Context, dsn string) error {
	ddl, err := os.ReadFile("../../migrations/0001_init.up.sql")
	if err != nil {
		return err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, string(ddl))
	return err
}
