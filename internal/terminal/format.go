package terminal

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Japanese)

// FormatYen renders n with thousands separators, e.g. 1234 -> "1,234".
func FormatYen(n int64) string {
	return printer.Sprintf("%d", n)
}
