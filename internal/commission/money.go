package commission

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var argentina = language.MustParse("es-AR")

// FormatARS renders an amount as Argentine pesos without decimals, e.g. "$ 15.000".
func FormatARS(amount decimal.Decimal) string {
	p := message.NewPrinter(argentina)
	return p.Sprintf("$ %d", amount.Round(0).IntPart())
}
