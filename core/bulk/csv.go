package bulk

import (
	"encoding/csv"
	"io"
	"strings"
)

// WriteCSV writes `rows` as `;` separated values with a header row and `\n` line ends.
// Missing keys are written as empty values.
func WriteCSV(w io.Writer, headers []string, rows []map[string]string) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(headers); err != nil {
		return err
	}
	record := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			record[i] = row[h]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BuildCSV returns the CSV document of `rows`, see WriteCSV.
func BuildCSV(headers []string, rows []map[string]string) string {
	var sb strings.Builder
	_ = WriteCSV(&sb, headers, rows) // a strings.Builder never fails
	return sb.String()
}
