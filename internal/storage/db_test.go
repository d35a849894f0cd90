package storage

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "invosheet.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDocumentUpsertAndStatus(t *testing.T) {
	db := openTestDB(t)

	row, err := db.UpsertDocument("mail", "/in/a.eml", "hash1", "", "fetched", "", "2024-03-05T10:00:00Z")
	if err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	if row.ID == 0 || row.Status != "fetched" {
		t.Errorf("row = %+v", row)
	}

	// Same path updates in place.
	again, err := db.UpsertDocument("mail", "/in/a.eml", "hash2", "iskus", "fetched", "", "2024-03-05T10:00:00Z")
	if err != nil {
		t.Fatalf("UpsertDocument again: %v", err)
	}
	if again.ID != row.ID || again.Hash != "hash2" || again.Supplier != "iskus" {
		t.Errorf("again = %+v", again)
	}

	if err := db.UpdateDocumentStatus(row.ID, "failed", "no_line_items"); err != nil {
		t.Fatalf("UpdateDocumentStatus: %v", err)
	}
	got, err := db.GetDocumentByPath("/in/a.eml")
	if err != nil {
		t.Fatalf("GetDocumentByPath: %v", err)
	}
	if got == nil || got.Status != "failed" || got.Reason != "no_line_items" {
		t.Errorf("got = %+v", got)
	}

	failed, err := db.ListDocumentsByStatus("failed", 10)
	if err != nil {
		t.Fatalf("ListDocumentsByStatus: %v", err)
	}
	if len(failed) != 1 {
		t.Errorf("failed = %d, want 1", len(failed))
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if v, err := db.GetMetadata("missing"); err != nil || v != "" {
		t.Errorf("GetMetadata(missing) = %q, %v", v, err)
	}
	if err := db.SetMetadata("lastRun", "abc"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := db.SetMetadata("lastRun", "def"); err != nil {
		t.Fatalf("SetMetadata overwrite: %v", err)
	}
	if v, err := db.GetMetadata("lastRun"); err != nil || v != "def" {
		t.Errorf("GetMetadata = %q, %v", v, err)
	}
}

func TestInsertRun(t *testing.T) {
	db := openTestDB(t)
	err := db.InsertRun("trace-1", map[string]int{"processed": 3, "failed": 1}, map[string]int64{"totalMs": 52})
	if err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
}
