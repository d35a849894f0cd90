package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"invosheet/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  groupKey TEXT NOT NULL,
  path TEXT NOT NULL UNIQUE,
  hash TEXT NOT NULL,
  supplier TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  reason TEXT,
  receivedAt TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_groupKey ON documents(groupKey);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertDocument(groupKey, path, hash, supplier, status, reason, receivedAt string) (internal.DocumentRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO documents (groupKey, path, hash, supplier, status, reason, receivedAt)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
  groupKey=excluded.groupKey,
  hash=excluded.hash,
  supplier=excluded.supplier,
  status=excluded.status,
  reason=excluded.reason,
  receivedAt=excluded.receivedAt,
  updatedAt=CURRENT_TIMESTAMP
`, groupKey, path, hash, supplier, status, reason, receivedAt)
	if err != nil {
		return internal.DocumentRow{}, err
	}

	row, err := d.GetDocumentByPath(path)
	if err != nil {
		return internal.DocumentRow{}, err
	}
	if row == nil {
		return internal.DocumentRow{}, errors.New("failed to upsert document")
	}
	return *row, nil
}

func (d *DB) GetDocumentByPath(path string) (*internal.DocumentRow, error) {
	var row internal.DocumentRow
	err := d.conn.QueryRow(`
SELECT id, groupKey, path, hash, supplier, status, reason, receivedAt
FROM documents WHERE path = ?
`, path).Scan(
		&row.ID, &row.GroupKey, &row.Path, &row.Hash, &row.Supplier, &row.Status, &row.Reason, &row.ReceivedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListDocumentsByStatus(status string, limit int) ([]internal.DocumentRow, error) {
	rows, err := d.conn.Query(`
SELECT id, groupKey, path, hash, supplier, status, reason, receivedAt
FROM documents WHERE status = ? ORDER BY createdAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DocumentRow
	for rows.Next() {
		var row internal.DocumentRow
		if err := rows.Scan(&row.ID, &row.GroupKey, &row.Path, &row.Hash, &row.Supplier, &row.Status, &row.Reason, &row.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateDocumentStatus(id int, status, reason string) error {
	_, err := d.conn.Exec(`
UPDATE documents SET status = ?, reason = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, status, reason, id)
	return err
}

func (d *DB) UpdateDocumentSupplier(id int, supplier string) error {
	_, err := d.conn.Exec(`
UPDATE documents SET supplier = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, supplier, id)
	return err
}

func (d *DB) InsertRun(traceID string, counts map[string]int, timings map[string]int64) error {
	countsJSON, _ := json.Marshal(counts)
	timingsJSON, _ := json.Marshal(timings)
	_, err := d.conn.Exec(`
INSERT INTO runs (traceId, countsJson, timingsJson) VALUES (?, ?, ?)
`, traceID, string(countsJSON), string(timingsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updatedAt=CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}
