package geocodes

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// readXLSX returns the first sheet of a workbook as string rows.
func readXLSX(path string) ([][]string, error) {
	xlFile, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geocodes: open xlsx %s", path)
	}
	if len(xlFile.Sheets) == 0 {
		return nil, eris.Errorf("geocodes: xlsx %s has no sheets", path)
	}
	sheet := xlFile.Sheets[0]

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		record := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			if c == nil {
				continue
			}
			record[i] = strings.TrimSpace(c.String())
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// readCSV reads every row of a delimited file. Preamble rows are allowed to
// have a different field count from the data rows.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geocodes: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "geocodes: read %s", path)
		}
		rows = append(rows, record)
	}
	return rows, nil
}
