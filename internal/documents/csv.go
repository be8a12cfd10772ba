package documents

import (
	"encoding/csv"
	"strings"
)

// csvDelimiters in priority order.
var csvDelimiters = []rune{'|', ';', ',', '\t'}

// cellText keeps a cell on one pipe row.
var cellText = strings.NewReplacer("|", "/", "\r\n", " ", "\n", " ", "\r", " ")

// CSVText sniffs the delimiter of a CSV document and re-emits its rows as
// "key | value" lines. Text that does not parse as a table with at least
// two columns is returned unchanged.
func CSVText(text string) string {
	for _, d := range csvDelimiters {
		rows, ok := readCSV(text, d)
		if !ok {
			continue
		}
		return renderRows(rows)
	}
	return text
}

// readCSV parses text with delimiter d and accepts the result when the
// first non-empty row has at least two non-empty cells.
func readCSV(text string, d rune) ([][]string, bool) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = d
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = d != '\t'
	records, err := r.ReadAll()
	if err != nil {
		return nil, false
	}

	var rows [][]string
	for _, rec := range records {
		row := make([]string, len(rec))
		empty := true
		for i, c := range rec {
			row[i] = strings.TrimSpace(c)
			if row[i] != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 || nonEmpty(rows[0]) < 2 {
		return nil, false
	}
	return rows, true
}

func nonEmpty(row []string) int {
	n := 0
	for _, c := range row {
		if c != "" {
			n++
		}
	}
	return n
}

func renderRows(rows [][]string) string {
	header := rows[0]
	qi, ai := column(header, "question"), column(header, "answer")

	var b strings.Builder
	line := func(k, v string) {
		if k == "" || v == "" {
			return
		}
		k, v = cellText.Replace(k), cellText.Replace(v)
		b.WriteString(k)
		b.WriteString(" | ")
		b.WriteString(v)
		b.WriteByte('\n')
	}

	switch {
	case qi >= 0 && ai >= 0:
		for _, row := range rows[1:] {
			line(cell(row, qi), cell(row, ai))
		}
	case len(header) == 2:
		for _, row := range rows {
			line(cell(row, 0), cell(row, 1))
		}
	default:
		for _, row := range rows[1:] {
			for i, v := range row {
				line(cell(header, i), v)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func column(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
