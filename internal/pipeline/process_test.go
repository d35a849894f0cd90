package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"invosheet/internal"
	"invosheet/internal/acquire"
)

const goodInvoice = `Acme Widgets Ltd
Invoice #: INV-1001
Date: 12/01/2024
Bill To: Corner Pharmacy

Widget  2  10.00  20.00

Total: 20.00
`

func writeInput(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	profiles := emptyProfiles(t)
	return NewRunner(
		profiles,
		acquire.NewService(nil),
		NewExtractor(profiles, nil),
		NewNormalizer("dmy", "EUR"),
		nil,
	)
}

func TestRunnerRun(t *testing.T) {
	input := filepath.Join(t.TempDir(), "invoices")
	writeInput(t, input, "good.txt", goodInvoice)
	writeInput(t, input, "garbage.txt", "1234\n5678\n")
	writeInput(t, input, "notes.docx", "ignored")
	writeInput(t, input, filepath.Join("march", "another.txt"), goodInvoice)

	result, err := newTestRunner(t).Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Processed != 2 {
		t.Errorf("Processed = %d, want 2", result.Processed)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %+v, want 1", result.Failures)
	}
	if result.Failures[0].Reason != internal.ReasonNoHeaderFields {
		t.Errorf("failure reason = %q", result.Failures[0].Reason)
	}

	// Loose files group first, then subdirectories in name order.
	if len(result.Groups) != 2 {
		t.Fatalf("Groups = %d, want 2", len(result.Groups))
	}
	if result.Groups[0].Key != "invoices" || result.Groups[1].Key != "march" {
		t.Errorf("group keys = %q, %q", result.Groups[0].Key, result.Groups[1].Key)
	}

	rec := result.Groups[0].Records[0]
	if rec.Date == nil || *rec.Date != "2024-01-12" {
		t.Errorf("Date = %v, want normalized 2024-01-12", rec.Date)
	}
	if rec.SourceFile != "good.txt" {
		t.Errorf("SourceFile = %q", rec.SourceFile)
	}

	// Summary and items sheet per group.
	if len(result.Plan.Sheets) != 4 {
		t.Errorf("Sheets = %d, want 4", len(result.Plan.Sheets))
	}
}

func TestRunnerWorkbookRoundTrip(t *testing.T) {
	input := filepath.Join(t.TempDir(), "batch")
	writeInput(t, input, "invoice.txt", goodInvoice)

	result, err := newTestRunner(t).Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := filepath.Join(t.TempDir(), "out", "invoices.xlsx")
	if err := WriteWorkbook(result.Plan, out); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "batch" || sheets[1] != "batch Items" {
		t.Fatalf("sheets = %v", sheets)
	}

	got, err := f.GetCellValue("batch", "A2")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if got != "INV-1001" {
		t.Errorf("A2 = %q, want INV-1001", got)
	}
	header, err := f.GetCellValue("batch Items", "B1")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if header != "Description" {
		t.Errorf("items B1 = %q", header)
	}
}

func TestRunnerProcessDocuments(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "a.txt", goodInvoice)
	writeInput(t, dir, "b.txt", goodInvoice)
	writeInput(t, dir, "bad.txt", "1234\n")

	docs := []internal.DocumentRow{
		{GroupKey: "mail", Path: filepath.Join(dir, "a.txt")},
		{GroupKey: "scans", Path: filepath.Join(dir, "bad.txt")},
		{GroupKey: "mail", Path: filepath.Join(dir, "b.txt")},
	}
	result := newTestRunner(t).ProcessDocuments(context.Background(), docs)

	if result.Processed != 2 || len(result.Failures) != 1 {
		t.Fatalf("processed=%d failures=%+v", result.Processed, result.Failures)
	}
	// Both mail documents land in one group despite the interleaved failure.
	if len(result.Groups) != 1 || result.Groups[0].Key != "mail" {
		t.Fatalf("groups = %+v", result.Groups)
	}
	if len(result.Groups[0].Records) != 2 {
		t.Errorf("mail records = %d, want 2", len(result.Groups[0].Records))
	}
	if len(result.Plan.Sheets) != 2 {
		t.Errorf("sheets = %d, want summary + items", len(result.Plan.Sheets))
	}
}

func TestRunnerEmptyInput(t *testing.T) {
	input := t.TempDir()
	result, err := newTestRunner(t).Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Processed != 0 || len(result.Groups) != 0 || len(result.Plan.Sheets) != 0 {
		t.Errorf("result = %+v", result)
	}
}
