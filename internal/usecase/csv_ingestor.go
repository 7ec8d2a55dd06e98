package usecase

import (
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// Row is one parsed CSV row keyed by header. Every header is present as a
// key; fields the row did not supply are empty strings. Lookups should use
// the two-value form so absence stays explicit at the call site.
type Row map[string]string

// Get returns the value for a header and whether the row defines it.
func (r Row) Get(header string) (string, bool) {
	v, ok := r[header]
	return v, ok
}

// CSVTable is the structured result of parsing a catalog upload.
type CSVTable struct {
	Headers []string
	Rows    []Row
}

// ParseCSV parses raw comma-delimited text into a header row plus data rows.
// Quoting follows the usual CSV rules: a double-quoted field may contain
// commas and newlines, and "" inside a quoted field is a literal quote.
//
// The parser is deliberately permissive. Rows shorter than the header get
// empty strings for the missing trailing fields, extra fields are ignored,
// and a row left open by an unbalanced quote is skipped with a warning
// instead of aborting the batch. Returns ErrEmptyInput when nothing but
// blank lines remain.
func ParseCSV(text string) (*CSVTable, []domain.RowParseWarning, error) {
	records, warnings := logicalRows(text)
	if len(records) == 0 {
		return nil, warnings, domain.ErrEmptyInput
	}

	headers := splitFields(records[0].text)
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	table := &CSVTable{Headers: headers}
	for _, rec := range records[1:] {
		fields := splitFields(rec.text)
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(fields) {
				row[h] = fields[i]
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, warnings, nil
}

// rawRecord is one logical CSV row with the physical line it started on.
type rawRecord struct {
	line int
	text string
}

// logicalRows splits text on line boundaries, rejoining physical lines that
// belong to one row because a quoted field spans them. A row whose quote is
// still open at end of input is dropped with a warning; anything a runaway
// quote swallowed is part of that row by CSV's own rules and is not
// recoverable.
func logicalRows(text string) ([]rawRecord, []domain.RowParseWarning) {
	var (
		records  []rawRecord
		warnings []domain.RowParseWarning
		pending  strings.Builder
		start    int
		open     bool
	)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")

		if !open {
			if strings.TrimSpace(line) == "" {
				continue
			}
			start = i + 1
			pending.WriteString(line)
		} else {
			pending.WriteString("\n")
			pending.WriteString(line)
		}

		// An escaped quote contributes two characters, so parity of the
		// raw quote count tells us whether a field is still open.
		open = strings.Count(pending.String(), `"`)%2 == 1
		if !open {
			records = append(records, rawRecord{line: start, text: pending.String()})
			pending.Reset()
		}
	}

	if open {
		warnings = append(warnings, domain.RowParseWarning{
			Row:     start,
			Reason:  "unterminated quoted field",
			Snippet: snippet(pending.String()),
		})
	}

	return records, warnings
}

// splitFields splits one logical row on unquoted commas, unescaping "" pairs.
func splitFields(record string) []string {
	var (
		fields   []string
		cur      strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(record); i++ {
		ch := record[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(record) && record[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	fields = append(fields, cur.String())

	return fields
}

// snippet truncates a raw row for inclusion in a warning.
func snippet(s string) string {
	const max = 48
	s = strings.ReplaceAll(s, "\n", `\n`)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
