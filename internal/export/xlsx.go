package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is the worksheet name used in XLSX exports.
const DefaultSheetName = "NAV"

// WriteXLSX writes the frame as a single-sheet workbook.
func WriteXLSX(w io.Writer, f Frame) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", DefaultSheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := book.SetSheetRow(DefaultSheetName, "A1", &f.Header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, record := range f.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := record
		if err := book.SetSheetRow(DefaultSheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if _, err := book.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
