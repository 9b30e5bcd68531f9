package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rental-backend/store"
)

var fStatus = store.NewField[string]("status")
var fCount = store.NewField[int64]("count")

func setupTestStore(t *testing.T, ctx context.Context) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := conn.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	_ = conn.Close(ctx)

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(func() {
		pool.Close()
		c, err := pgx.Connect(context.Background(), dsn)
		if err == nil {
			_, _ = c.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
			_ = c.Close(context.Background())
		}
	})

	st, err := NewStore(pool, "rental")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return st
}

func TestNewStoreRejectsUnsafeTableName(t *testing.T) {
	if _, err := NewStore(nil, "rental; DROP TABLE x"); err == nil {
		t.Fatalf("expected error for unsafe table name")
	}
}

func TestStore_PutUpdateQuery(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)

	it := store.Item{PK: "LISTING#1", SK: "META", GSI2PK: "LISTING_STATUS#ONLINE", GSI2SK: "1", Data: map[string]any{"status": "ONLINE"}}
	if err := st.Put(ctx, store.Put{Item: it, Condition: store.CondNotExists}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.Put(ctx, store.Put{Item: it, Condition: store.CondNotExists}); !errors.Is(err, store.ErrConditionFailed) {
		t.Fatalf("expected condition failure, got %v", err)
	}

	u := store.ExpectIn(store.NewUpdate(), fStatus, "ONLINE", "APPROVED").SetIndex(store.IndexGSI2, "LISTING_STATUS#LOCKED", "1")
	store.Set(u, fStatus, "LOCKED")
	store.Add(u, fCount, 3)
	got, err := st.Update(ctx, it.Key(), u)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Data["status"] != "LOCKED" || got.Data["count"] != float64(3) {
		t.Fatalf("unexpected data %+v", got.Data)
	}

	if _, err := st.Update(ctx, it.Key(), u); !errors.Is(err, store.ErrConditionFailed) {
		t.Fatalf("expected condition failure on second update, got %v", err)
	}
	if _, err := st.Update(ctx, store.Key{PK: "nope", SK: "META"}, u); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	items, err := st.Query(ctx, store.Query{Index: store.IndexGSI2, PK: "LISTING_STATUS#LOCKED"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestStore_TransactRollsBack(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)

	if err := st.Put(ctx, store.Put{Item: store.Item{PK: "A", SK: "1", Data: map[string]any{"status": "DRAFT"}}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	err := st.Transact(ctx,
		store.Put{Item: store.Item{PK: "B", SK: "1"}},
		store.Delete{Key: store.Key{PK: "missing", SK: "1"}, Condition: store.CondExists},
	)
	if !errors.Is(err, store.ErrTxAborted) {
		t.Fatalf("expected aborted transaction, got %v", err)
	}
	if _, err := st.Get(ctx, store.Key{PK: "B", SK: "1"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected rollback of first op, got %v", err)
	}
}

func TestStore_ScanPages(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)

	for i := 0; i < scanPageSize+3; i++ {
		if err := st.Put(ctx, store.Put{Item: store.Item{PK: "PLAN#" + uuid.NewString(), SK: "META"}}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	n := 0
	if err := st.Scan(ctx, "PLAN#", func(store.Item) error { n++; return nil }); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if n != scanPageSize+3 {
		t.Fatalf("expected %d items, got %d", scanPageSize+3, n)
	}
}
