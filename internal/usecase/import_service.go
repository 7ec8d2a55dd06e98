package usecase

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pricelens/backend/internal/domain"
)

const defaultMaxWarningSamples = 10

// ImportConfig holds configuration for the import service
type ImportConfig struct {
	MaxWarningSamples  int
	DefaultCurrency    string
	EnableDebugLogging bool
}

// ImportService turns a raw catalog CSV upload into persisted products:
// ingest, auto-map columns (with optional manual overrides), validate, and
// convert rows. Parsing problems in a single row skip that row with a
// warning; only an empty upload or an unmappable required column aborts the
// import call.
type ImportService struct {
	catalog domain.CatalogRepository

	maxWarningSamples  int
	defaultCurrency    string
	enableDebugLogging bool
}

// NewImportService creates a new import service with dependencies
func NewImportService(catalog domain.CatalogRepository, config ImportConfig) *ImportService {
	maxSamples := config.MaxWarningSamples
	if maxSamples <= 0 {
		maxSamples = defaultMaxWarningSamples
	}

	return &ImportService{
		catalog:            catalog,
		maxWarningSamples:  maxSamples,
		defaultCurrency:    config.DefaultCurrency,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// ImportResult is the outcome of one catalog import.
type ImportResult struct {
	Products []domain.Product    `json:"products"`
	Mapping  FieldMapping        `json:"mapping"`
	Report   domain.ImportReport `json:"report"`
}

// ImportCSV parses and converts a catalog CSV, persists the products, and
// returns them with the column mapping and a per-run report. Overrides map
// canonical field names to headers and take precedence over auto-mapping.
func (s *ImportService) ImportCSV(ctx context.Context, csvText string, overrides map[string]string) (*ImportResult, error) {
	result, err := s.Convert(csvText, overrides)
	if err != nil {
		return nil, err
	}

	if err := s.catalog.SaveProducts(ctx, result.Products); err != nil {
		return nil, fmt.Errorf("save products: %w", err)
	}

	if s.enableDebugLogging {
		log.Printf("[IMPORT] %d rows: %d imported, %d skipped, %d warning(s)",
			result.Report.TotalRows, result.Report.Imported, result.Report.Skipped, result.Report.WarningCount)
	}

	return result, nil
}

// Convert runs ingestion and mapping without touching the catalog store.
func (s *ImportService) Convert(csvText string, overrides map[string]string) (*ImportResult, error) {
	table, parseWarnings, err := ParseCSV(csvText)
	if err != nil {
		return nil, err
	}

	mapping := AutoMap(table.Headers)
	for field, header := range overrides {
		if header != "" {
			mapping[field] = header
		}
	}
	if err := ValidateMapping(mapping); err != nil {
		return nil, err
	}

	result := &ImportResult{Mapping: mapping}
	result.Report.TotalRows = len(table.Rows)
	for _, w := range parseWarnings {
		result.Report.AddWarning(w, s.maxWarningSamples)
	}

	for i, row := range table.Rows {
		product, warn := s.convertRow(row, mapping)
		if warn != nil {
			warn.Row = i + 2 // 1-based, after the header row
			result.Report.AddWarning(*warn, s.maxWarningSamples)
			result.Report.Skipped++
			continue
		}
		result.Products = append(result.Products, *product)
		result.Report.Imported++
	}

	return result, nil
}

// convertRow builds one product from a mapped row. A nil warning means the
// row converted cleanly.
func (s *ImportService) convertRow(row Row, mapping FieldMapping) (*domain.Product, *domain.RowParseWarning) {
	name := strings.TrimSpace(row[mapping[FieldName]])
	sku := strings.TrimSpace(row[mapping[FieldSKU]])
	if name == "" || sku == "" {
		return nil, &domain.RowParseWarning{Reason: "missing name or sku"}
	}

	price, err := parsePrice(row[mapping[FieldPrice]])
	if err != nil {
		return nil, &domain.RowParseWarning{
			Reason:  fmt.Sprintf("invalid price %q", row[mapping[FieldPrice]]),
			Snippet: name,
		}
	}

	product := &domain.Product{
		ID:           uuid.NewString(),
		Name:         name,
		SKU:          sku,
		CurrentPrice: price,
		Currency:     s.defaultCurrency,
	}

	if header, ok := mapping[FieldCost]; ok && header != "" {
		if raw, ok := row.Get(header); ok && strings.TrimSpace(raw) != "" {
			cost, err := parsePrice(raw)
			if err != nil {
				return nil, &domain.RowParseWarning{
					Reason:  fmt.Sprintf("invalid cost %q", raw),
					Snippet: name,
				}
			}
			product.Cost = cost
		}
	}

	if header, ok := mapping[FieldInventory]; ok && header != "" {
		if raw, ok := row.Get(header); ok && strings.TrimSpace(raw) != "" {
			// A bad inventory value downgrades to absent rather than
			// skipping the row; inventory is optional data.
			if qty, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
				product.Inventory = &qty
			}
		}
	}

	product.RecomputeMargin()
	return product, nil
}

// parsePrice reads a price cell, tolerating currency symbols and thousands
// separators.
func parsePrice(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimLeft(cleaned, "$€£ ")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty price")
	}

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if price < 0 {
		return 0, fmt.Errorf("negative price")
	}
	return price, nil
}
