package loader

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/claims-cli/internal/model"
)

// naTokens are cell values read as null, mirroring common spreadsheet and
// dataframe exports.
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// parseCSV reads a CSV file with a header row. Every cell stays raw text;
// null tokens become null values and short rows leave trailing columns null.
func parseCSV(r io.Reader, source string) ([]model.Record, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: no columns to parse from file")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	header = dedupeHeader(header)

	var records []model.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		if len(row) > len(header) {
			return nil, eris.Errorf("csv: expected %d fields in line %d, saw %d", len(header), line, len(row))
		}

		rec := model.NewRecord(source)
		for i, col := range header {
			if i >= len(row) {
				rec.Set(col, model.NullValue())
				continue
			}
			rec.Set(col, cellValue(row[i]))
		}
		records = append(records, rec)
	}

	return records, nil
}

func cellValue(s string) model.Value {
	if _, ok := naTokens[s]; ok {
		return model.NullValue()
	}
	return model.Text(s)
}

// dedupeHeader suffixes repeated column names with .1, .2, ... so no cell
// silently overwrites another.
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		n, dup := seen[name]
		seen[name] = n + 1
		if !dup {
			out[i] = name
			continue
		}
		candidate := name + "." + strconv.Itoa(n)
		for {
			if _, taken := seen[candidate]; !taken {
				break
			}
			n++
			candidate = name + "." + strconv.Itoa(n)
		}
		seen[name] = n + 1
		seen[candidate] = 1
		out[i] = candidate
	}
	return out
}
