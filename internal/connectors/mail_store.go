package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"invosheet/internal"
	"invosheet/internal/storage"
)

// MailGroupKey is the record group fetched mail lands in; the exported
// workbook gets one sheet pair for the whole mailbox.
const MailGroupKey = "mail"

// MailStoreService persists fetched messages: raw bytes under a content hash
// in the mail directory, plus a pending document row for the pipeline.
type MailStoreService struct {
	db         *storage.DB
	rawMailDir string
}

func NewMailStoreService(db *storage.DB, rawMailDir string) *MailStoreService {
	return &MailStoreService{db: db, rawMailDir: rawMailDir}
}

func (s *MailStoreService) Store(msg internal.FetchedMailMessage) (internal.DocumentRow, error) {
	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return internal.DocumentRow{}, err
	}

	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.DocumentRow{}, err
		}
	}

	// Refetching a message that already went through the pipeline must not
	// reset it to fetched, or the next cycle would process it again.
	if existing, err := s.db.GetDocumentByPath(rawPath); err != nil {
		return internal.DocumentRow{}, err
	} else if existing != nil && existing.Status != "fetched" {
		return *existing, nil
	}

	return s.db.UpsertDocument(MailGroupKey, rawPath, hash, "", "fetched", "", msg.ReceivedAt)
}
