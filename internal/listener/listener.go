package listener

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"invosheet/internal"
	"invosheet/internal/config"
	"invosheet/internal/connectors"
	gmailconnector "invosheet/internal/connectors/gmail"
	imapconnector "invosheet/internal/connectors/imap"
	"invosheet/internal/pipeline"
	"invosheet/internal/storage"
)

// Service polls a mailbox on an interval: fetch new messages, run the
// pending ones through the pipeline, and export a workbook for each cycle
// that produced records.
type Service struct {
	db     *storage.DB
	cfg    config.Config
	runner *pipeline.Runner
	log    *slog.Logger
}

func NewService(db *storage.DB, cfg config.Config, runner *pipeline.Runner) *Service {
	return &Service{
		db:     db,
		cfg:    cfg,
		runner: runner,
		log:    slog.Default().With("component", "listener"),
	}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			s.log.Error("cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	records, failed, err := s.processPending(ctx)
	if err != nil {
		return err
	}

	if s.cfg.MailListenerAutoExport && len(records) > 0 {
		if err := s.export(records); err != nil {
			return err
		}
	}

	s.log.Info("cycle done",
		"provider", provider,
		"fetched", fetchResult.Fetched,
		"stored", fetchResult.Stored,
		"processed", len(records),
		"failed", failed)
	return nil
}

// processPending runs the fetched-but-unprocessed documents through the
// pipeline. Status updates happen inside the runner; a document that fails
// stays queryable with its failure reason.
func (s *Service) processPending(ctx context.Context) ([]*internal.InvoiceRecord, int, error) {
	pending, err := s.db.ListDocumentsByStatus("fetched", s.cfg.MailListenerProcessBatch)
	if err != nil {
		return nil, 0, err
	}

	var records []*internal.InvoiceRecord
	failed := 0
	for _, doc := range pending {
		if ctx.Err() != nil {
			break
		}
		rec, failure := s.runner.ProcessDocument(ctx, doc.GroupKey, doc.Path)
		if failure != nil {
			failed++
			continue
		}
		records = append(records, rec)
	}
	return records, failed, nil
}

func (s *Service) export(records []*internal.InvoiceRecord) error {
	plan := pipeline.PlanSheets([]internal.RecordGroup{
		{Key: connectors.MailGroupKey, Records: records},
	})
	filename := fmt.Sprintf("mail_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	return pipeline.WriteWorkbook(plan, filepath.Join(s.cfg.OutputDir, "listener", filename))
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
