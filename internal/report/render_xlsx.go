package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
)

const (
	defaultSheet   = "Sheet1"
	maxSheetName   = 31
	xlsxColumnWide = 24
)

func renderXLSX(w io.Writer, def *Definition, rs *domain.ResultSet) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	sheet := def.Name
	if len(sheet) > maxSheetName {
		sheet = sheet[:maxSheetName]
	}
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, c := range def.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, c.Label); err != nil {
			return err
		}
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(def.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for r, row := range rs.Rows {
		for i, c := range def.Columns {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := setXLSXCell(f, sheet, cell, c, row[c.Field]); err != nil {
				return fmt.Errorf("cell %s: %w", cell, err)
			}
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(def.Columns))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, xlsxColumnWide); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

// setXLSXCell keeps account ids and formatted values as text so leading
// zeros survive; plain numbers and booleans stay native.
func setXLSXCell(f *excelize.File, sheet, cell string, c ColumnSpec, v any) error {
	if c.Format != FormatText {
		s := FormatCell(c, v, "\n")
		if s == "" {
			return nil
		}
		return f.SetCellStr(sheet, cell, s)
	}
	switch x := v.(type) {
	case nil:
		return nil
	case int64, int, int32, float64, bool:
		return f.SetCellValue(sheet, cell, x)
	default:
		return f.SetCellStr(sheet, cell, textValue(x))
	}
}
