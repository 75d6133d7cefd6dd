// Package export writes tracked applications to spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/amishk599/applytrack/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "xlsx" or "csv" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want xlsx or csv)", s)
	}
}

const sheet = "Applications"

var headers = []string{
	"Company",
	"Role",
	"Status",
	"Location",
	"Source",
	"Applied",
	"Last Update",
	"Next Action",
	"Notes",
	"ID",
}

func row(app model.Application) []string {
	return []string{
		app.Company,
		app.Role,
		string(app.Status),
		app.Location,
		app.Source,
		appliedDate(app),
		formatDate(app.UpdatedAt),
		app.NextActionDate,
		app.Notes,
		app.ID,
	}
}

// appliedDate prefers the recorded applied date over the creation day.
func appliedDate(app model.Application) string {
	if app.AppliedDate != "" {
		return app.AppliedDate
	}
	return formatDate(app.CreatedAt)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// Applications writes apps to w in the given format.
func Applications(w io.Writer, apps []model.Application, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, apps)
	case FormatXLSX:
		return writeXLSX(w, apps)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func writeCSV(w io.Writer, apps []model.Application) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	for _, app := range apps {
		if err := cw.Write(row(app)); err != nil {
			return fmt.Errorf("csv write: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, apps []model.Application) error {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet rather than leaving an empty "Sheet1" behind.
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheet, "A1", last, headerStyle)

	for r, app := range apps {
		for c, v := range row(app) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("xlsx row %d: %w", r+2, err)
			}
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "B", 28) // company, role
	_ = f.SetColWidth(sheet, "C", "C", 14) // status
	_ = f.SetColWidth(sheet, "D", "E", 20) // location, source
	_ = f.SetColWidth(sheet, "F", "G", 12) // dates
	_ = f.SetColWidth(sheet, "H", "H", 48) // notes
	_ = f.SetColWidth(sheet, "I", "I", 38) // id

	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("xlsx panes: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
