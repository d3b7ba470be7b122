package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "CAD"

// lineItemPattern matches "[qty [x]] description amount [flag]". The amount
// has exactly two decimals after a comma or period, may group thousands with
// the other separator and may carry a currency symbol. A trailing tax flag
// such as "A" or "*" is ignored.
var lineItemPattern = regexp.MustCompile(
	`^(?:(\d{1,3})\s*[xX×]?\s+)?(\S.*?)\s+[$€£]?\s*(\d{1,3}(?:[.,]\d{3})+|\d{1,6})\s*[.,]\s*(\d{2})(?:\s+[A-Z*]{1,2})?$`,
)

var thousandsSeparators = strings.NewReplacer(".", "", ",", "")

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ParseLineItems extracts candidate expenses from OCR text, one per matching
// line, in source order. Lines that do not look like an item are skipped.
func ParseLineItems(text, currency string) []LineItem {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !currencyCodePattern.MatchString(currency) {
		currency = DefaultCurrency
	}

	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.ReplaceAll(text, "\r", "")

	var items []LineItem
	for _, line := range strings.Split(text, "\n") {
		item, ok := parseLine(strings.TrimSpace(line))
		if !ok {
			continue
		}
		item.Currency = currency
		items = append(items, item)
	}
	return items
}

func parseLine(line string) (LineItem, bool) {
	if line == "" {
		return LineItem{}, false
	}
	m := lineItemPattern.FindStringSubmatch(line)
	if m == nil {
		return LineItem{}, false
	}

	description := strings.Join(strings.Fields(m[2]), " ")
	if utf8.RuneCountInString(description) < 2 || !strings.ContainsFunc(description, unicode.IsLetter) {
		return LineItem{}, false
	}

	amount, err := decimal.NewFromString(thousandsSeparators.Replace(m[3]) + "." + m[4])
	if err != nil || !amount.IsPositive() {
		return LineItem{}, false
	}

	item := LineItem{Description: description, Amount: amount}
	if m[1] != "" {
		if qty, err := strconv.Atoi(m[1]); err == nil && qty > 0 {
			item.Quantity = &qty
		}
	}
	return item, true
}
