package report

import (
	"bufio"
	"io"
	"strings"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
)

// renderCSV quotes every field, which encoding/csv cannot be told to do.
func renderCSV(w io.Writer, def *Definition, rs *domain.ResultSet) error {
	bw := bufio.NewWriter(w)

	writeCSVLine(bw, def.Labels())

	fields := make([]string, len(def.Columns))
	for _, row := range rs.Rows {
		for i, c := range def.Columns {
			fields[i] = FormatCell(c, row[c.Field], "\n")
		}
		writeCSVLine(bw, fields)
	}

	return bw.Flush()
}

func writeCSVLine(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}
