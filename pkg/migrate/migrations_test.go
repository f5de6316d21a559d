package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := migrate.ValidateEmbedded(); err != nil {
		t.Fatalf("validate embedded: %v", err)
	}
}

func TestLedgerMigrationGuardsBalances(t *testing.T) {
	content := readMigration(t, "create_transactions")
	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_store_sequence ON transactions (store_id, sequence)",
		"CHECK (amount_cents > 0)",
		"CHECK (balance_after_cents >= 0)",
		"DROP TABLE IF EXISTS transactions",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}

	stores := readMigration(t, "create_stores")
	if !strings.Contains(stores, "CHECK (pending_balance_cents >= 0)") {
		t.Error("stores must reject a negative pending balance")
	}
}

func TestOrderMigrationConstraints(t *testing.T) {
	content := readMigration(t, "create_orders")
	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_order_number ON orders (order_number)",
		"'pending', 'paid', 'processing', 'shipped', 'delivered', 'cancelled', 'refunded'",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS orders",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Payout Index!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_payout_index.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add payout index"); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected empty sanitized name to be rejected")
	}
}

func TestEmbeddedMigrationsMatchSourceTree(t *testing.T) {
	embedded, err := migrate.EmbeddedFiles()
	if err != nil {
		t.Fatalf("embedded files: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(embedded) == 0 || len(embedded) != len(onDisk) {
		t.Fatalf("embedded %d migrations, %d on disk", len(embedded), len(onDisk))
	}
}
