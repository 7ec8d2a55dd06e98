package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/pricelens/backend/internal/domain"
)

func TestImportCSV(t *testing.T) {
	ctx := context.Background()

	t.Run("imports a clean catalog and persists it", func(t *testing.T) {
		catalog := &fakeCatalog{}
		svc := NewImportService(catalog, ImportConfig{DefaultCurrency: "USD"})

		csv := "Product Name,SKU,Price,Cost,Stock\n" +
			"USB-C Cable,U-1,19.99,8.50,120\n" +
			"Wireless Mouse,M-1,$29.99,14.00,\n"

		result, err := svc.ImportCSV(ctx, csv, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Report.Imported != 2 || result.Report.Skipped != 0 {
			t.Errorf("report = %+v, want 2 imported", result.Report)
		}
		if len(catalog.products) != 2 {
			t.Fatalf("persisted %d products, want 2", len(catalog.products))
		}

		p := result.Products[0]
		if p.Name != "USB-C Cable" || p.SKU != "U-1" || p.CurrentPrice != 19.99 || p.Cost != 8.5 {
			t.Errorf("product = %+v", p)
		}
		if p.Currency != "USD" {
			t.Errorf("Currency = %q, want USD", p.Currency)
		}
		if p.Inventory == nil || *p.Inventory != 120 {
			t.Errorf("Inventory = %v, want 120", p.Inventory)
		}
		wantMargin := (19.99 - 8.5) / 19.99 * 100
		if diff := p.MarginPercent - wantMargin; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("MarginPercent = %v, want %v", p.MarginPercent, wantMargin)
		}

		if result.Products[1].Inventory != nil {
			t.Errorf("Inventory = %v, want absent for empty cell", result.Products[1].Inventory)
		}
	})

	t.Run("a malformed row is skipped, the batch continues", func(t *testing.T) {
		svc := NewImportService(&fakeCatalog{}, ImportConfig{})

		csv := "Name,SKU,Price\n" +
			"Good,G-1,10\n" +
			"Bad,B-1,not-a-price\n" +
			",X-1,5\n" +
			"Fine,F-1,7\n"

		result, err := svc.ImportCSV(ctx, csv, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Report.Imported != 2 || result.Report.Skipped != 2 {
			t.Errorf("report = %+v, want 2 imported / 2 skipped", result.Report)
		}
		if result.Report.WarningCount != 2 || len(result.Report.Warnings) != 2 {
			t.Errorf("warnings = %+v", result.Report)
		}
	})

	t.Run("warning samples are capped, the count is not", func(t *testing.T) {
		svc := NewImportService(&fakeCatalog{}, ImportConfig{MaxWarningSamples: 2})

		csv := "Name,SKU,Price\n" +
			"A,1,x\nB,2,x\nC,3,x\nD,4,x\n"

		result, err := svc.ImportCSV(ctx, csv, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Report.WarningCount != 4 {
			t.Errorf("WarningCount = %d, want 4", result.Report.WarningCount)
		}
		if len(result.Report.Warnings) != 2 {
			t.Errorf("Warnings = %d samples, want 2", len(result.Report.Warnings))
		}
	})

	t.Run("unmappable required column aborts the import", func(t *testing.T) {
		svc := NewImportService(&fakeCatalog{}, ImportConfig{})

		_, err := svc.ImportCSV(ctx, "Name,Price\nWidget,10\n", nil)
		if !errors.Is(err, domain.ErrMissingRequiredField) {
			t.Fatalf("error = %v, want ErrMissingRequiredField", err)
		}
		var missing *domain.MissingFieldsError
		if !errors.As(err, &missing) || len(missing.Fields) != 1 || missing.Fields[0] != FieldSKU {
			t.Errorf("missing = %+v, want [sku]", missing)
		}
	})

	t.Run("manual overrides fill the gaps", func(t *testing.T) {
		svc := NewImportService(&fakeCatalog{}, ImportConfig{})

		csv := "Name,Article,Price\nWidget,W-1,10\n"
		result, err := svc.ImportCSV(ctx, csv, map[string]string{FieldSKU: "Article"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Products[0].SKU != "W-1" {
			t.Errorf("SKU = %q, want W-1", result.Products[0].SKU)
		}
	})

	t.Run("empty upload aborts with ErrEmptyInput", func(t *testing.T) {
		svc := NewImportService(&fakeCatalog{}, ImportConfig{})

		_, err := svc.ImportCSV(ctx, "\n\n", nil)
		if !errors.Is(err, domain.ErrEmptyInput) {
			t.Errorf("error = %v, want ErrEmptyInput", err)
		}
	})

	t.Run("unbalanced quote row lands in the report, not the error", func(t *testing.T) {
		svc := NewImportService(&fakeCatalog{}, ImportConfig{})

		csv := "Name,SKU,Price\nGood,G-1,10\n\"Broken,B-1,20\n"
		result, err := svc.ImportCSV(ctx, csv, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Report.Imported != 1 {
			t.Errorf("Imported = %d, want 1", result.Report.Imported)
		}
		if result.Report.WarningCount != 1 {
			t.Errorf("WarningCount = %d, want 1", result.Report.WarningCount)
		}
	})
}
