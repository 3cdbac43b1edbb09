// Package export renders report listings as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"report-hub/grouping"
	"report-hub/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName = "Reports"
	// ContentType is the media type of the workbook WriteReports produces.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var Header = []string{
	"Submitted",
	"Building",
	"Concern",
	"Heading",
	"Description",
	"Status",
	"Group Size",
	"Image",
	"ID",
}

var columnWidths = []float64{20, 18, 16, 30, 50, 12, 12, 50, 26}

// WriteReports builds a workbook with one row per report, in the given order.
// groupSizes comes from grouping.CountGroups over the full listing so a
// filtered export still shows how many reports share each group.
func WriteReports(reports []models.Report, groupSizes map[grouping.GroupKey]int) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, h := range Header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, col, col, columnWidths[i]); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(Header))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("set header style: %w", err)
	}

	for i, r := range reports {
		image := ""
		if r.HasImage() {
			image = *r.Image
		}
		row := []interface{}{
			r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			r.Building,
			r.Concern,
			grouping.DisplayHeading(r),
			grouping.DisplayDescription(r),
			grouping.DisplayStatus(r),
			groupSizes[grouping.KeyOf(r)],
			image,
			r.ID.Hex(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if len(reports) > 0 {
		ref := fmt.Sprintf("A1:%s%d", lastCol, len(reports)+1)
		if err := f.AutoFilter(SheetName, ref, nil); err != nil {
			return nil, fmt.Errorf("set auto filter: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
