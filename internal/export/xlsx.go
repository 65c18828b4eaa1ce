// Package export renders reports into downloadable spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the MIME type of the files written by WriteXLSX.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const maxSheetName = 31

// WriteXLSX writes rep as a single-sheet workbook: a bold header row, one
// row per report row, then the summary figures under a blank line.
func WriteXLSX(w io.Writer, rep *model.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(rep)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, col := range rep.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, col.Label); err != nil {
			return err
		}
		if col.Width > 0 {
			name, _ := excelize.ColumnNumberToName(i + 1)
			if err := f.SetColWidth(sheet, name, name, float64(col.Width)/7); err != nil {
				return err
			}
		}
	}
	if len(rep.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(rep.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return err
		}
	}

	for r, row := range rep.Rows {
		for c, col := range rep.Columns {
			v, ok := row[col.Field]
			if !ok || v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, cellValue(v)); err != nil {
				return err
			}
		}
	}

	next := len(rep.Rows) + 3
	for i, s := range rep.Summary {
		label := fmt.Sprintf("A%d", next+i)
		if err := f.SetCellValue(sheet, label, s.Label); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, label, label, bold); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", next+i), cellValue(s.Value)); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// FileName names the download of a report generated on day.
func FileName(rep *model.Report, day model.Date) string {
	return fmt.Sprintf("%s_%s.xlsx", rep.Name, day.Time.Format("20060102"))
}

func sheetName(rep *model.Report) string {
	name := rep.Title
	if name == "" {
		name = rep.Name
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

// cellValue flattens values excelize does not know how to write.
func cellValue(v interface{}) interface{} {
	switch x := v.(type) {
	case model.Date:
		return x.String()
	case *model.Date:
		if x == nil {
			return nil
		}
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	return v
}
