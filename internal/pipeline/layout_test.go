package pipeline

import (
	"strings"
	"testing"

	"invosheet/internal"
	"invosheet/internal/util"
)

func TestPlanSheetsSummaryAndDetail(t *testing.T) {
	groups := []internal.RecordGroup{{
		Key: "Batch A",
		Records: []*internal.InvoiceRecord{
			{
				InvoiceID:   util.StringPtr("A1"),
				Vendor:      "Vendor One",
				TotalAmount: util.FloatPtr(20),
				Items: []internal.LineItem{
					{Description: "Widget", Quantity: util.FloatPtr(2), UnitPrice: util.FloatPtr(10), Amount: util.FloatPtr(20)},
				},
			},
			{InvoiceID: util.StringPtr("A2"), Vendor: "Vendor Two"},
		},
	}}

	plan := PlanSheets(groups)
	if len(plan.Sheets) != 2 {
		t.Fatalf("Sheets = %d, want summary + items", len(plan.Sheets))
	}

	summary := plan.Sheets[0]
	if summary.Name != "Batch A" {
		t.Errorf("summary name = %q", summary.Name)
	}
	if len(summary.Rows) != 2 {
		t.Fatalf("summary rows = %d, want 2", len(summary.Rows))
	}
	if summary.Rows[0][0] != "A1" || summary.Rows[1][0] != "A2" {
		t.Errorf("row order = %v, %v", summary.Rows[0][0], summary.Rows[1][0])
	}

	detail := plan.Sheets[1]
	if detail.Name != "Batch A Items" {
		t.Errorf("detail name = %q", detail.Name)
	}
	if len(detail.Rows) != 1 {
		t.Fatalf("detail rows = %d, want 1", len(detail.Rows))
	}
	if detail.Rows[0][1] != "Widget" {
		t.Errorf("detail row = %v", detail.Rows[0])
	}
}

func TestPlanSheetsEmptyGroup(t *testing.T) {
	plan := PlanSheets([]internal.RecordGroup{{Key: "Empty Folder"}})
	if len(plan.Sheets) != 1 {
		t.Fatalf("Sheets = %d, want headered summary only", len(plan.Sheets))
	}
	sheet := plan.Sheets[0]
	if len(sheet.Header) == 0 || len(sheet.Rows) != 0 {
		t.Errorf("sheet = %+v", sheet)
	}
}

func TestPlanSheetsNameSanitization(t *testing.T) {
	long := strings.Repeat("Quarterly Invoices ", 3) // > 31 chars after strip
	plan := PlanSheets([]internal.RecordGroup{
		{Key: `Q1/2024 [final]: a\b?*`},
		{Key: long},
	})
	for _, sheet := range plan.Sheets {
		if len([]rune(sheet.Name)) > 31 {
			t.Errorf("name %q exceeds 31 chars", sheet.Name)
		}
		if strings.ContainsAny(sheet.Name, `\/?*[]:`) {
			t.Errorf("name %q contains forbidden characters", sheet.Name)
		}
	}
	if got := plan.Sheets[0].Name; got != "Q12024 final ab" {
		t.Errorf("sanitized name = %q", got)
	}
}

func TestPlanSheetsCollisionSuffix(t *testing.T) {
	// Distinct keys that sanitize to the same sheet name.
	plan := PlanSheets([]internal.RecordGroup{
		{Key: "Acme/2024"},
		{Key: "Acme[2024]"},
		{Key: "Acme:2024"},
	})
	names := []string{plan.Sheets[0].Name, plan.Sheets[1].Name, plan.Sheets[2].Name}
	want := []string{"Acme2024", "Acme2024-2", "Acme2024-3"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("sheet %d name = %q, want %q", i, names[i], want[i])
		}
	}
}
