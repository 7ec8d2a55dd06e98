package usecase

import (
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// Canonical catalog fields a CSV column can map to.
const (
	FieldName      = "name"
	FieldSKU       = "sku"
	FieldPrice     = "price"
	FieldCost      = "cost"
	FieldInventory = "inventory"
)

// fieldOrder is the total order fields claim headers in. A header claimed by
// an earlier field is never reassigned.
var fieldOrder = []string{FieldName, FieldSKU, FieldPrice, FieldCost, FieldInventory}

// requiredFields must be mapped (by auto-mapping or manual override) before
// an import may proceed.
var requiredFields = []string{FieldName, FieldSKU, FieldPrice}

// fieldAliases lists header spellings per field in priority order. The first
// alias that matches wins the field.
var fieldAliases = map[string][]string{
	FieldName: {
		"name", "product name", "product_name", "product title",
		"title", "item name", "item_name", "product", "description",
	},
	FieldSKU: {
		"sku", "sku code", "product sku", "variant sku", "variant_sku",
		"item number", "item_number", "product code", "product_code",
	},
	FieldPrice: {
		"price", "currentprice", "current_price", "current price",
		"our price", "our_price", "selling price", "selling_price",
		"sale price", "unit price", "retail price",
	},
	FieldCost: {
		"cost", "unit cost", "unit_cost", "cost price", "cost_price",
		"cogs", "wholesale price", "purchase price",
	},
	FieldInventory: {
		"inventory", "stock", "quantity", "qty", "on hand", "on_hand",
		"inventory quantity", "stock level",
	},
}

// FieldMapping maps canonical fields to the CSV header that supplies them.
// Optional fields that could not be mapped are simply absent.
type FieldMapping map[string]string

// AutoMap assigns CSV headers to canonical catalog fields in two passes.
// Pass 1 takes the first alias equal to a header (case-insensitive); pass 2,
// only for still-unmapped fields, takes the first alias that is a substring
// of a header or vice versa. Each header can be claimed once; first claim
// wins, no backtracking.
func AutoMap(headers []string) FieldMapping {
	mapping := make(FieldMapping)
	claimed := make([]bool, len(headers))

	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}

	// Pass 1: exact alias match.
	for _, field := range fieldOrder {
		for _, alias := range fieldAliases[field] {
			if i, ok := findHeader(lowered, claimed, alias, matchExact); ok {
				mapping[field] = headers[i]
				claimed[i] = true
				break
			}
		}
	}

	// Pass 2: substring match for fields still unmapped.
	for _, field := range fieldOrder {
		if _, done := mapping[field]; done {
			continue
		}
		for _, alias := range fieldAliases[field] {
			if i, ok := findHeader(lowered, claimed, alias, matchSubstring); ok {
				mapping[field] = headers[i]
				claimed[i] = true
				break
			}
		}
	}

	return mapping
}

func matchExact(header, alias string) bool {
	return header == alias
}

func matchSubstring(header, alias string) bool {
	return strings.Contains(header, alias) || strings.Contains(alias, header)
}

func findHeader(lowered []string, claimed []bool, alias string, match func(header, alias string) bool) (int, bool) {
	for i, h := range lowered {
		if claimed[i] || h == "" {
			continue
		}
		if match(h, alias) {
			return i, true
		}
	}
	return 0, false
}

// ValidateMapping checks that every required field is mapped. It returns a
// MissingFieldsError naming the gaps, or nil when the mapping is importable.
func ValidateMapping(mapping FieldMapping) error {
	var missing []string
	for _, field := range requiredFields {
		if mapping[field] == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &domain.MissingFieldsError{Fields: missing}
	}
	return nil
}
