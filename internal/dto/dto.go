package dto

import "github.com/shopspring/decimal"

func init() {
	// Amounts go over the wire as JSON numbers, e.g. 27.0 rather than "27".
	decimal.MarshalJSONWithoutQuotes = true
}

const DateLayout = "2006-01-02"
