package models

import "github.com/shopspring/decimal"

func init() {
	// Prices and totals are JSON numbers; the storefront pages do arithmetic on them.
	decimal.MarshalJSONWithoutQuotes = true
}
