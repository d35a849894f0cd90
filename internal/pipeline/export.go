package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"invosheet/internal"
)

// WriteWorkbook serializes a sheet plan to an xlsx file, creating parent
// directories as needed. An empty plan still yields a valid workbook with a
// single blank sheet.
func WriteWorkbook(plan internal.SheetPlan, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range plan.Sheets {
		if i == 0 {
			// Rename the default sheet instead of leaving it dangling.
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return fmt.Errorf("rename sheet %q: %w", sheet.Name, err)
			}
		} else {
			if _, err := f.NewSheet(sheet.Name); err != nil {
				return fmt.Errorf("create sheet %q: %w", sheet.Name, err)
			}
		}
		if err := writeSheet(f, sheet); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet internal.SheetTable) error {
	for col, title := range sheet.Header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("sheet %q header: %w", sheet.Name, err)
		}
		if err := f.SetCellValue(sheet.Name, cell, title); err != nil {
			return fmt.Errorf("sheet %q header: %w", sheet.Name, err)
		}
	}
	for row, values := range sheet.Rows {
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("sheet %q row %d: %w", sheet.Name, row+1, err)
			}
			if err := f.SetCellValue(sheet.Name, cell, value); err != nil {
				return fmt.Errorf("sheet %q row %d: %w", sheet.Name, row+1, err)
			}
		}
	}
	return nil
}
