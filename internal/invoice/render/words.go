package render

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	onesWords = [...]string{
		"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
		"Seventeen", "Eighteen", "Nineteen",
	}
	tensWords = [...]string{
		"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
	}
)

// AmountInWords spells a rupee amount using Indian grouping (Thousand, Lakh, Crore),
// e.g. 896.80 -> "Eight Hundred Ninety Six Rupees and Eighty Paise Only".
// The amount is rounded to 2 places first; negative amounts are spelled by absolute value.
func AmountInWords(amount decimal.Decimal) string {
	amount = amount.Round(2).Abs()
	rupees := amount.IntPart()
	paise := amount.Sub(decimal.NewFromInt(rupees)).Mul(decimal.NewFromInt(100)).IntPart()

	var b strings.Builder
	switch rupees {
	case 0:
		b.WriteString("Zero Rupees")
	case 1:
		b.WriteString("One Rupee")
	default:
		b.WriteString(spellIndian(rupees))
		b.WriteString(" Rupees")
	}
	if paise > 0 {
		b.WriteString(" and ")
		b.WriteString(spellIndian(paise))
		if paise == 1 {
			b.WriteString(" Paisa")
		} else {
			b.WriteString(" Paise")
		}
	}
	b.WriteString(" Only")
	return b.String()
}

// spellIndian spells n > 0. Amounts of 100 crore and above repeat the crore group.
func spellIndian(n int64) string {
	var parts []string
	if crore := n / 10_000_000; crore > 0 {
		parts = append(parts, spellIndian(crore), "Crore")
		n %= 10_000_000
	}
	if lakh := n / 100_000; lakh > 0 {
		parts = append(parts, spellBelowHundred(lakh), "Lakh")
		n %= 100_000
	}
	if thousand := n / 1000; thousand > 0 {
		parts = append(parts, spellBelowHundred(thousand), "Thousand")
		n %= 1000
	}
	if hundred := n / 100; hundred > 0 {
		parts = append(parts, onesWords[hundred], "Hundred")
		n %= 100
	}
	if n > 0 {
		parts = append(parts, spellBelowHundred(n))
	}
	return strings.Join(parts, " ")
}

func spellBelowHundred(n int64) string {
	if n < 20 {
		return onesWords[n]
	}
	if n%10 == 0 {
		return tensWords[n/10]
	}
	return tensWords[n/10] + " " + onesWords[n%10]
}
