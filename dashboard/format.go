package dashboard

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySymbol prefixes every formatted price.
const CurrencySymbol = "₹"

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders v rounded to whole units with thousands separators,
// e.g. "₹ 1,234,567".
func FormatPrice(v float64) string {
	return CurrencySymbol + " " + pricePrinter.Sprintf("%d", int64(math.Round(v)))
}
