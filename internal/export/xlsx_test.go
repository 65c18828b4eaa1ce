package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	rep := &model.Report{
		Name:  "fee-collection",
		Title: "Fee Collection Summary",
		Columns: []model.ReportColumn{
			{Field: "fee_type", Label: "Fee Type", Width: 150},
			{Field: "total_billed", Label: "Total Billed", Width: 120},
			{Field: "due", Label: "Due"},
		},
		Rows: []map[string]interface{}{
			{"fee_type": "Scolarité", "total_billed": 5800.0, "due": model.NewDate(2025, time.October, 31)},
			{"fee_type": "Transport"},
		},
		Summary: []model.ReportSummaryItem{{Label: "Total Billed", Value: 5800.0}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rep))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheet := "Fee Collection Summary"
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 5)
	assert.Equal(t, []string{"Fee Type", "Total Billed", "Due"}, rows[0])
	assert.Equal(t, []string{"Scolarité", "5800", "2025-10-31"}, rows[1])
	assert.Equal(t, []string{"Transport"}, rows[2])
	assert.Equal(t, []string{"Total Billed", "5800"}, rows[4])
}

func TestSheetNameIsTruncated(t *testing.T) {
	rep := &model.Report{Name: "x", Title: "A very long report title that excel refuses"}
	assert.Len(t, sheetName(rep), maxSheetName)
	assert.Equal(t, "stock-balance", sheetName(&model.Report{Name: "stock-balance"}))
}

func TestFileName(t *testing.T) {
	rep := &model.Report{Name: "trial-balance"}
	assert.Equal(t, "trial-balance_20251103.xlsx", FileName(rep, model.NewDate(2025, time.November, 3)))
}
