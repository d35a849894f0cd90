package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"invosheet/internal"
	"invosheet/internal/acquire"
	"invosheet/internal/config"
	"invosheet/internal/connectors"
	gmailconnector "invosheet/internal/connectors/gmail"
	imapconnector "invosheet/internal/connectors/imap"
	"invosheet/internal/listener"
	"invosheet/internal/llm"
	"invosheet/internal/pipeline"
	"invosheet/internal/profile"
	"invosheet/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input directory of invoice documents")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		out := *output
		if out == "" {
			out = filepath.Join(cfg.OutputDir, "invoices.xlsx")
		}

		runner, err := buildRunner(cfg, db)
		must(err)
		result, err := runner.Run(context.Background(), *input)
		must(err)
		must(pipeline.WriteWorkbook(result.Plan, out))

		fmt.Printf("run done processed=%d failed=%d sheets=%d output=%s\n",
			result.Processed, len(result.Failures), len(result.Plan.Sheets), out)
		for _, failure := range result.Failures {
			fmt.Printf("  failed %s: %s (%s)\n", failure.Path, failure.Reason, failure.Detail)
		}
	case "extract":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "single document to extract")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}

		runner, err := buildRunner(cfg, db)
		must(err)
		rec, failure := runner.ProcessDocument(context.Background(), "adhoc", *file)
		if failure != nil {
			must(fmt.Errorf("%s: %s", failure.Reason, failure.Detail))
		}
		blob, err := json.MarshalIndent(recordView(rec), "", "  ")
		must(err)
		fmt.Println(string(blob))
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", cfg.MailListenerFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])

		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batch := fs.Int("batch", cfg.MailListenerProcessBatch, "batch size")
		output := fs.String("output", "", "output xlsx path (empty to skip export)")
		_ = fs.Parse(os.Args[2:])

		runner, err := buildRunner(cfg, db)
		must(err)
		pending, err := db.ListDocumentsByStatus("fetched", *batch)
		must(err)

		result := runner.ProcessDocuments(context.Background(), pending)
		for _, failure := range result.Failures {
			fmt.Printf("  failed %s: %s\n", failure.Path, failure.Reason)
		}
		if *output != "" && result.Processed > 0 {
			must(pipeline.WriteWorkbook(result.Plan, *output))
		}
		fmt.Printf("mail process done processed=%d failed=%d\n", result.Processed, len(result.Failures))
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		status := fs.String("status", "processed", "document status to export")
		max := fs.Int("max", 200, "max documents")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}

		runner, err := buildRunner(cfg, db)
		must(err)
		docs, err := db.ListDocumentsByStatus(*status, *max)
		must(err)
		if len(docs) == 0 {
			must(fmt.Errorf("no documents with status=%s", *status))
		}

		result := runner.ProcessDocuments(context.Background(), docs)
		must(pipeline.WriteWorkbook(result.Plan, *out))
		fmt.Printf("export done documents=%d failed=%d output=%s\n",
			result.Processed, len(result.Failures), *out)
	case "mail:listen":
		runner, err := buildRunner(cfg, db)
		must(err)
		svc := listener.NewService(db, cfg, runner)
		must(svc.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

func buildRunner(cfg config.Config, db *storage.DB) (*pipeline.Runner, error) {
	profiles, err := profile.Load(cfg.ProfilesPath)
	if err != nil {
		return nil, err
	}

	var delegate pipeline.DelegatedExtractor
	var vision acquire.VisionClient
	if cfg.OpenAIAPIKey != "" {
		client, err := llm.New(cfg)
		if err != nil {
			return nil, err
		}
		delegate = client
		vision = client
	}

	return pipeline.NewRunner(
		profiles,
		acquire.NewService(vision),
		pipeline.NewExtractor(profiles, delegate),
		pipeline.NewNormalizer(cfg.DateOrder, cfg.DefaultCurrency),
		db,
	), nil
}

// recordView flattens pointer fields for readable CLI output.
func recordView(rec *internal.InvoiceRecord) map[string]any {
	view := map[string]any{
		"invoiceId":    strDeref(rec.InvoiceID),
		"date":         strDeref(rec.Date),
		"vendor":       rec.Vendor,
		"customer":     rec.Customer,
		"currency":     rec.Currency,
		"paymentTerms": rec.PaymentTerms,
		"supplier":     rec.Supplier,
		"sourceFile":   rec.SourceFile,
		"items":        rec.Items,
		"warnings":     rec.Warnings,
	}
	if rec.TotalAmount != nil {
		view["totalAmount"] = *rec.TotalAmount
	}
	return view
}

func strDeref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: invosheet <command>")
	fmt.Println("commands:")
	fmt.Println("  run --input=./invoices [--output=./out/invoices.xlsx]")
	fmt.Println("  extract --file=./invoices/scan.pdf")
	fmt.Println("  mail:fetch [--provider=gmail|imap] [--label=INBOX] [--max=20]")
	fmt.Println("  mail:process [--batch=20] [--output=./out/mail.xlsx]")
	fmt.Println("  mail:listen")
	fmt.Println("  export:xlsx --out=./out/export.xlsx [--status=processed] [--max=200]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
