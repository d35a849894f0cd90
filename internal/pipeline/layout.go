package pipeline

import (
	"fmt"
	"strings"

	"invosheet/internal"
)

// Excel caps sheet names at 31 characters and rejects a handful of
// characters outside that.
const maxSheetName = 31

var summaryColumns = []string{
	"Invoice ID", "Date", "Vendor", "Customer", "Total Amount",
	"Currency", "Payment Terms", "Supplier", "Source File", "Warnings",
}

var detailColumns = []string{
	"Invoice ID", "Description", "Quantity", "Unit Price", "Amount",
	"Batch Number", "Expiry Date",
}

// PlanSheets lays normalized record groups out as workbook sheets: one
// summary sheet per group, plus an items sheet when any record in the group
// carries line items. The plan depends only on the input order, so the same
// groups always produce the same workbook.
func PlanSheets(groups []internal.RecordGroup) internal.SheetPlan {
	var plan internal.SheetPlan
	used := make(map[string]struct{})

	for _, group := range groups {
		base := uniqueSheetName(sanitizeSheetName(group.Key), used)
		plan.Sheets = append(plan.Sheets, summarySheet(base, group.Records))

		if detail := detailRows(group.Records); len(detail) > 0 {
			name := uniqueSheetName(sanitizeSheetName(group.Key+" Items"), used)
			plan.Sheets = append(plan.Sheets, internal.SheetTable{
				Name:   name,
				Header: detailColumns,
				Rows:   detail,
			})
		}
	}
	return plan
}

func summarySheet(name string, records []*internal.InvoiceRecord) internal.SheetTable {
	sheet := internal.SheetTable{Name: name, Header: summaryColumns}
	for _, rec := range records {
		sheet.Rows = append(sheet.Rows, []any{
			strPtrCell(rec.InvoiceID),
			strPtrCell(rec.Date),
			rec.Vendor,
			rec.Customer,
			floatPtrCell(rec.TotalAmount),
			rec.Currency,
			rec.PaymentTerms,
			string(rec.Supplier),
			rec.SourceFile,
			strings.Join(rec.Warnings, "; "),
		})
	}
	return sheet
}

func detailRows(records []*internal.InvoiceRecord) [][]any {
	var rows [][]any
	for _, rec := range records {
		for _, item := range rec.Items {
			rows = append(rows, []any{
				strPtrCell(rec.InvoiceID),
				item.Description,
				floatPtrCell(item.Quantity),
				floatPtrCell(item.UnitPrice),
				floatPtrCell(item.Amount),
				strPtrCell(item.BatchNumber),
				strPtrCell(item.ExpiryDate),
			})
		}
	}
	return rows
}

func strPtrCell(p *string) any {
	if p == nil {
		return ""
	}
	return *p
}

func floatPtrCell(p *float64) any {
	if p == nil {
		return ""
	}
	return *p
}

var sheetNameStrip = strings.NewReplacer(
	`\`, "", `/`, "", `?`, "", `*`, "", `[`, "", `]`, "", `:`, "",
)

func sanitizeSheetName(name string) string {
	name = strings.TrimSpace(sheetNameStrip.Replace(name))
	if name == "" {
		name = "Records"
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = strings.TrimSpace(string(runes[:maxSheetName]))
	}
	return name
}

// uniqueSheetName reserves name in used, appending -2, -3, ... on collision.
// Suffixed names are re-trimmed so they stay within the length cap.
func uniqueSheetName(name string, used map[string]struct{}) string {
	candidate := name
	for i := 2; ; i++ {
		if _, taken := used[candidate]; !taken {
			used[candidate] = struct{}{}
			return candidate
		}
		suffix := fmt.Sprintf("-%d", i)
		runes := []rune(name)
		if len(runes)+len(suffix) > maxSheetName {
			runes = runes[:maxSheetName-len(suffix)]
		}
		candidate = strings.TrimSpace(string(runes)) + suffix
	}
}
