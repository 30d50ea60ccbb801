package sqlstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/storage"
	"spendwise/internal/storage/storagetest"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "spendwise.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return newTestRepository(t) })
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spendwise.db")
	first, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	ctx := context.Background()
	if err := first.CreateTransaction(ctx, core.Transaction{
		ID: "t", OwnerID: "o", Type: core.Income, Amount: core.Money{Cents: 1},
		Category: "Salary", Source: core.SourceManual, Date: time.Unix(1700000000, 0).UTC(),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	first.Close()

	second, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.GetTransaction(ctx, "t")
	if err != nil {
		t.Fatalf("data lost across reopen: %v", err)
	}
	if got.Date.Unix() != 1700000000 || got.Date.Location() != time.UTC {
		t.Fatalf("unexpected date round trip: %v", got.Date)
	}
}

func TestPing(t *testing.T) {
	repo := newTestRepository(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestMySQLDSNReportsFoundRows(t *testing.T) {
	got := mysqlDSN("user:pass@tcp(localhost:3306)/spendwise")
	if want := "clientFoundRows=true"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in %q", want, got)
	}
	if bad := mysqlDSN("::not a dsn"); bad != "::not a dsn" {
		t.Fatalf("unparseable dsn should pass through, got %q", bad)
	}
}
