package loader

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/claims-cli/internal/model"
)

// readXLSX reads the first sheet of a workbook. The first row is the header;
// every other row becomes a record with cells kept as text.
func readXLSX(path, source string) ([]model.Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("xlsx: sheet %q is empty", sheet.Name)
	}

	header := dedupeHeader(rowToStrings(sheet.Rows[0]))

	var records []model.Record
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		cells := rowToStrings(row)
		if allBlank(cells) {
			continue
		}

		rec := model.NewRecord(source)
		for i, col := range header {
			if col == "" {
				continue
			}
			if i >= len(cells) {
				rec.Set(col, model.NullValue())
				continue
			}
			rec.Set(col, cellValue(cells[i]))
		}
		records = append(records, rec)
	}

	return records, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
