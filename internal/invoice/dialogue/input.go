package dialogue

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
)

var (
	greetings   = map[string]bool{"hi": true, "hello": true, "start": true}
	affirmative = map[string]bool{"yes": true, "y": true, "yeah": true, "yep": true, "ok": true, "okay": true, "sure": true, "confirm": true}
	negative    = map[string]bool{"no": true, "n": true, "nope": true}
)

func normalized(text string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(text), ".!"))
}

func isGreeting(text string) bool {
	return greetings[normalized(text)]
}

func isAffirmative(text string) bool {
	return affirmative[normalized(text)]
}

func isNegative(text string) bool {
	return negative[normalized(text)]
}

func is(text, word string) bool {
	return normalized(text) == word
}

var hundred = decimal.NewFromInt(100)

// parseAmount reads a plain number, tolerating a currency prefix, a trailing
// percent sign and thousands separators.
func parseAmount(text string) (decimal.Decimal, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	for _, prefix := range []string{"₹", "rs.", "rs", "inr"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", errx.ErrUnparsableNumber, text)
	}
	return d, nil
}

// parseDiscount maps any unparsable input to 0 and clamps the result to [0, 100].
func parseDiscount(text string) (decimal.Decimal, error) {
	d, err := parseAmount(text)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, nil
	}
	if d.GreaterThan(hundred) {
		return hundred, nil
	}
	return d, nil
}
