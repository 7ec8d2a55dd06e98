package usecase

import "testing"

func TestNormalize(t *testing.T) {
	t.Run("lowercases and trims", func(t *testing.T) {
		if got := Normalize("  Whole MILK  "); got != "whole milk" {
			t.Errorf("Normalize = %q, want %q", got, "whole milk")
		}
	})

	t.Run("strips diacritics to base letters", func(t *testing.T) {
		if got := Normalize("Café   Noir!!"); got != "cafe noir" {
			t.Errorf("Normalize = %q, want %q", got, "cafe noir")
		}
	})

	t.Run("punctuation becomes a token boundary", func(t *testing.T) {
		if got := Normalize("USB-C Cable"); got != "usb c cable" {
			t.Errorf("Normalize = %q, want %q", got, "usb c cable")
		}
	})

	t.Run("collapses whitespace runs", func(t *testing.T) {
		if got := Normalize("a \t b\n\nc"); got != "a b c" {
			t.Errorf("Normalize = %q, want %q", got, "a b c")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := Normalize(""); got != "" {
			t.Errorf("Normalize(\"\") = %q, want empty", got)
		}
	})

	t.Run("symbols-only input reduces to empty", func(t *testing.T) {
		if got := Normalize("!!! ??? ***"); got != "" {
			t.Errorf("Normalize = %q, want empty", got)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		inputs := []string{
			"Café   Noir!!",
			"USB-C Cable",
			"Großes Bier 0,5L",
			"already canonical",
			"",
		}
		for _, in := range inputs {
			once := Normalize(in)
			twice := Normalize(once)
			if once != twice {
				t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
			}
		}
	})
}
