package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// shopSchema is the fixture used by integration-style tests: two tables
// joined by a foreign key, a secondary index, and a handful of rows.
const shopSchema = `
CREATE TABLE customers (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	customer_id INTEGER NOT NULL,
	total REAL NOT NULL DEFAULT 0,
	placed_at TEXT,
	FOREIGN KEY (customer_id) REFERENCES customers(id)
);
CREATE INDEX idx_orders_customer ON orders(customer_id);
INSERT INTO customers (id, name, email) VALUES
	(1, 'Ada', 'ada@example.com'),
	(2, 'Grace', 'grace@example.com'),
	(3, 'Edsger', NULL);
INSERT INTO orders (id, customer_id, total, placed_at) VALUES
	(1, 1, 19.99, '2024-01-05'),
	(2, 1, 5.00, '2024-02-11'),
	(3, 2, 120.50, '2024-03-20');
`

// ShopDatabase writes a seeded SQLite database file under t.TempDir and
// returns its path plus a connection record pointing at it. The file is
// removed with the temp dir when the test ends.
func ShopDatabase(t testing.TB) (dbPath, configDir string) {
	t.Helper()

	dir := t.TempDir()
	dbPath = filepath.Join(dir, "shop.db")
	WriteSQLiteFixture(t, dbPath, shopSchema)

	configDir = filepath.Join(dir, "connections")
	require.NoError(t, os.MkdirAll(configDir, 0750), "fixture config dir should be creatable")

	record := `{"type": "sqlite", "database": ` + jsonString(dbPath) + `}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "shop.json"), []byte(record), 0600),
		"fixture connection record should be writable")

	return dbPath, configDir
}

func jsonString(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(append(out, '"'))
}
