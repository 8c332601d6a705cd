package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

// amount matches a currency amount with optional thousands separators and a
// two-digit decimal part, followed by the euro sign or EUR.
const amount = `(\d{1,3}(?:[ \x{00A0}\x{202F}.]\d{3})+[.,]\d{2}|\d+[.,]\d{2})\s*(?:€|EUR)`

// unspacedAmount is amount without plain-space grouping. Fragments are joined
// with a single space, so "1 250,00 €" in the full text may be a quantity
// column followed by a price.
const unspacedAmount = `(\d{1,3}(?:[\x{00A0}\x{202F}.]\d{3})+[.,]\d{2}|\d+[.,]\d{2})\s*(?:€|EUR)`

var (
	unitPrices = patterns{
		textPattern(`(?i)Prix\s+unitaire(?:\s+(?:HT|TTC))?\s*:\s*`+amount, 1),
		textPattern(`(?i)`+amount+`\s*HT\b`, 1),
		// unlabelled: an amount filling its own fragment, then any amount
		linePattern(`^\s*`+amount+`\s*$`, 1),
		textPattern(unspacedAmount, 1),
	}

	vatAmounts = patterns{
		textPattern(`(?i)TVA\s+FR\s+\(\d+(?:[.,]\d+)?\s*%\)\s*:\s*`+amount, 1),
		textPattern(`(?i)TVA(?:\s+\d+(?:[.,]\d+)?\s*%)?\s*:\s*`+amount, 1),
		textPattern(`(?i)Montant\s+TVA\s*:\s*`+amount, 1),
	}

	shippingCosts = patterns{
		textPattern(`(?i)Frais\s+de\s+(?:port|livraison)\s*:\s*`+amount, 1),
		textPattern(`(?i)Livraison\s*:\s*`+amount, 1),
		textPattern(`(?i)Transport\s*:\s*`+amount, 1),
	}

	totals = patterns{
		textPattern(`(?i)Montant\s+global\s*:\s*`+amount, 1),
		textPattern(`(?i)Total\s+TTC\s*:\s*`+amount, 1),
		textPattern(`(?i)Total\s*:\s*`+amount, 1),
		textPattern(`(?i)Net\s+à\s+payer\s*:\s*`+amount, 1),
	}
)

// ExtractPrice recovers the four amounts independently of each other.
func ExtractPrice(src *Source) Record {
	return Record{
		UnitPrice: findAmount(src, unitPrices),
		VAT:       findAmount(src, vatAmounts),
		Shipping:  findAmount(src, shippingCosts),
		Total:     findAmount(src, totals),
	}
}

func findAmount(src *Source, table patterns) *decimal.Decimal {
	v, ok := table.find(src)
	if !ok {
		return nil
	}
	d, err := parseAmount(v)
	if err != nil {
		return nil
	}
	return &d
}

// parseAmount reads "1 234,56", "1.234,56" or "12.50". The last dot or comma
// is the decimal separator, anything before it is grouping.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)

	i := strings.LastIndexAny(s, ".,")
	if i < 0 {
		return decimal.NewFromString(s)
	}
	whole := strings.NewReplacer(".", "", ",", "").Replace(s[:i])
	return decimal.NewFromString(whole + "." + s[i+1:])
}
