// Package export writes prospect lists to spreadsheets and reads company
// lists back for batch research.
package export

import (
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prospect-research/internal/model"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Prospects"

// Header is the first row of an exported sheet.
var Header = []string{"ID", "Company", "Domain", "Status", "Failed From", "Last Error", "Created", "Updated"}

// WriteXLSX writes prospects as a single-sheet workbook to w.
func WriteXLSX(w io.Writer, prospects []model.Prospect) error {
	f, err := build(prospects)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

// SaveXLSX writes prospects to a workbook at path.
func SaveXLSX(path string, prospects []model.Prospect) error {
	f, err := build(prospects)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save xlsx %s", path)
	}
	return nil
}

func build(prospects []model.Prospect) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	addRow(sheet, Header)
	for _, p := range prospects {
		addRow(sheet, []string{
			p.ID,
			p.Company,
			p.Domain,
			string(p.Status),
			string(p.FailedFrom),
			p.LastError,
			formatTime(p.CreatedAt),
			formatTime(p.UpdatedAt),
		})
	}
	return f, nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ReadCompanies returns the company names or domains listed in the first
// column of the first sheet at path. A header row whose first cell is
// "company" or "domain" is skipped, as are blank cells.
func ReadCompanies(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("export: %s has no sheets", path)
	}

	var out []string
	seen := make(map[string]bool)
	for i, row := range f.Sheets[0].Rows {
		if row == nil || len(row.Cells) == 0 {
			continue
		}
		v := strings.TrimSpace(row.Cells[0].String())
		if v == "" {
			continue
		}
		if i == 0 && isHeader(v) {
			continue
		}
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out, nil
}

func isHeader(v string) bool {
	switch strings.ToLower(v) {
	case "company", "domain", "company name", "website":
		return true
	}
	return false
}
