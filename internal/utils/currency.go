package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatIDR renders a whole-rupiah amount the way the storefront displays it,
// e.g. 70000 -> "Rp70.000". Zero decimal places; IDR has no minor unit here.
func FormatIDR(amount int64) string {
	return idPrinter.Sprintf("Rp%v", number.Decimal(amount, number.MaxFractionDigits(0)))
}
