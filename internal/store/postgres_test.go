package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	mydb "github.com/mailist/mailist/internal/db"
)

// newTestPostgresStore connects to TEST_DB_DSN and starts from an empty table.
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping PostgreSQL tests")
	}
	ctx := context.Background()
	pool, err := mydb.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	st := NewPostgresStore(pool)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE distribution_lists RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestPostgresStore_Lifecycle(t *testing.T) {
	st := newTestPostgresStore(t)
	ctx := context.Background()

	created, err := st.CreateDistributionList(ctx, CreateParams{
		Alias:        "choir",
		Flags:        2,
		SendersQuery: json.RawMessage(`{"==":[{"var":"person.id"},"7"]}`),
	})
	if err != nil {
		t.Fatalf("CreateDistributionList failed: %v", err)
	}
	if created.RecipientsQuery != nil {
		t.Errorf("Expected NULL recipients, got %s", created.RecipientsQuery)
	}

	if _, err := st.CreateDistributionList(ctx, CreateParams{Alias: "choir"}); !errors.Is(err, ErrAliasTaken) {
		t.Errorf("Expected ErrAliasTaken, got %v", err)
	}

	updated, err := st.SetQuery(ctx, created.ID, SlotRecipients, json.RawMessage(`{"==":[1,1]}`))
	if err != nil {
		t.Fatalf("SetQuery failed: %v", err)
	}
	var tree any
	if err := json.Unmarshal(updated.RecipientsQuery, &tree); err != nil {
		t.Fatalf("stored query is not JSON: %v", err)
	}

	got, err := st.GetDistributionListByAlias(ctx, "choir")
	if err != nil {
		t.Fatalf("GetDistributionListByAlias failed: %v", err)
	}
	if got.ID != created.ID || got.Flags != 2 {
		t.Errorf("unexpected list: %+v", got)
	}

	if err := st.DeleteDistributionList(ctx, created.ID); err != nil {
		t.Fatalf("DeleteDistributionList failed: %v", err)
	}
	if _, err := st.GetDistributionList(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSlotColumn(t *testing.T) {
	if c, _ := slotColumn(SlotSenders); c != "senders_query" {
		t.Errorf("unexpected column %q", c)
	}
	if c, _ := slotColumn(SlotRecipients); c != "recipients_query" {
		t.Errorf("unexpected column %q", c)
	}
	if _, err := slotColumn("owners"); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("Expected ErrInvalidSlot, got %v", err)
	}
}

func TestJSONBParam(t *testing.T) {
	if jsonbParam(nil) != nil {
		t.Error("Expected nil query to map to NULL")
	}
	if jsonbParam(json.RawMessage(`{}`)) != "{}" {
		t.Error("Expected query to be passed as text")
	}
}
