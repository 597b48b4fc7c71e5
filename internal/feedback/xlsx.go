package feedback

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Feedback"

var xlsxHeaders = []string{
	"ID", "Symptoms", "Suggested", "Confirmed", "Agreed",
	"Reviewer", "Notes", "Frames version", "Created", "Updated",
}

// ExportXLSX writes every entry of store as a spreadsheet, one row per
// feedback entry, newest first.
func ExportXLSX(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(xlsxSheet, cell, h); err != nil {
			return err
		}
	}

	for r, fb := range all {
		row := []interface{}{
			fb.ID,
			strings.Join(fb.Symptoms, ", "),
			fb.SuggestedDisease,
			fb.ConfirmedDisease,
			fb.UserAgreed,
			fb.Reviewer,
			fb.Notes,
			fb.SnapshotVersion,
			fb.CreatedAt.UTC().Format(time.RFC3339),
			fb.UpdatedAt.UTC().Format(time.RFC3339),
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if err := f.SetPanes(xlsxSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.Write(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
