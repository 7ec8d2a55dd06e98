package usecase

import (
	"errors"
	"strings"
	"testing"

	"github.com/pricelens/backend/internal/domain"
)

func TestParseCSV(t *testing.T) {
	t.Run("parses headers and rows", func(t *testing.T) {
		table, warnings, err := ParseCSV("name,sku,price\nWidget,W-1,19.99\nGadget,G-1,5.00\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(warnings) != 0 {
			t.Errorf("warnings = %v, want none", warnings)
		}
		if len(table.Headers) != 3 || table.Headers[0] != "name" {
			t.Errorf("Headers = %v", table.Headers)
		}
		if len(table.Rows) != 2 {
			t.Fatalf("Rows = %d, want 2", len(table.Rows))
		}
		if table.Rows[0]["sku"] != "W-1" {
			t.Errorf("Rows[0][sku] = %q, want W-1", table.Rows[0]["sku"])
		}
	})

	t.Run("handles crlf line endings", func(t *testing.T) {
		table, _, err := ParseCSV("a,b\r\n1,2\r\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if table.Rows[0]["b"] != "2" {
			t.Errorf("Rows[0][b] = %q, want 2", table.Rows[0]["b"])
		}
	})

	t.Run("discards blank lines", func(t *testing.T) {
		table, _, err := ParseCSV("\n\na,b\n\n1,2\n   \n3,4\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(table.Rows) != 2 {
			t.Errorf("Rows = %d, want 2", len(table.Rows))
		}
	})

	t.Run("empty input fails", func(t *testing.T) {
		for _, input := range []string{"", "\n\n", "  \n \r\n"} {
			_, _, err := ParseCSV(input)
			if !errors.Is(err, domain.ErrEmptyInput) {
				t.Errorf("ParseCSV(%q) error = %v, want ErrEmptyInput", input, err)
			}
		}
	})

	t.Run("quoted field may contain commas", func(t *testing.T) {
		table, _, err := ParseCSV("name,price\n\"Widget, Deluxe\",10\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := table.Rows[0]["name"]; got != "Widget, Deluxe" {
			t.Errorf("name = %q, want %q", got, "Widget, Deluxe")
		}
	})

	t.Run("quoted field may contain newlines", func(t *testing.T) {
		table, _, err := ParseCSV("name,price\n\"Widget\nsecond line\",10\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := table.Rows[0]["name"]; got != "Widget\nsecond line" {
			t.Errorf("name = %q", got)
		}
		if got := table.Rows[0]["price"]; got != "10" {
			t.Errorf("price = %q, want 10", got)
		}
	})

	t.Run("escaped quotes inside quoted field", func(t *testing.T) {
		table, _, err := ParseCSV("name,price\n\"10\"\" Tablet\",299\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := table.Rows[0]["name"]; got != `10" Tablet` {
			t.Errorf("name = %q, want %q", got, `10" Tablet`)
		}
	})

	t.Run("short rows get empty trailing fields", func(t *testing.T) {
		table, _, err := ParseCSV("a,b,c\n1,2\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v, ok := table.Rows[0].Get("c")
		if !ok || v != "" {
			t.Errorf("Get(c) = (%q, %v), want (\"\", true)", v, ok)
		}
	})

	t.Run("extra fields are ignored", func(t *testing.T) {
		table, _, err := ParseCSV("a,b\n1,2,3,4\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(table.Rows[0]) != 2 {
			t.Errorf("row has %d fields, want 2", len(table.Rows[0]))
		}
	})

	t.Run("unbalanced quote skips the row with a warning", func(t *testing.T) {
		table, warnings, err := ParseCSV("name,price\nGood,10\n\"Broken,20\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(table.Rows) != 1 || table.Rows[0]["name"] != "Good" {
			t.Errorf("Rows = %v, want just the good row", table.Rows)
		}
		if len(warnings) != 1 {
			t.Fatalf("warnings = %v, want one", warnings)
		}
		if !strings.Contains(warnings[0].Reason, "unterminated") {
			t.Errorf("warning reason = %q", warnings[0].Reason)
		}
	})
}
