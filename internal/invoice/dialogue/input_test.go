package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
)

func TestKeywords(t *testing.T) {
	assert.True(t, isGreeting(" Start "))
	assert.True(t, isGreeting("hello!"))
	assert.False(t, isGreeting("hello there"))
	assert.True(t, isAffirmative("Yes"))
	assert.True(t, isAffirmative("confirm"))
	assert.True(t, isNegative("N"))
	assert.False(t, isNegative("cancel"), "cancel only means something at final confirm")
	assert.False(t, isNegative("edit"))
}

func TestParseAmount(t *testing.T) {
	for in, want := range map[string]string{
		"10":        "10",
		"₹1,250.50": "1250.5",
		"Rs. 99":    "99",
		"12.5%":     "12.5",
		" 0 ":       "0",
	} {
		d, err := parseAmount(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, d.String(), in)
	}

	_, err := parseAmount("abc")
	assert.ErrorIs(t, err, errx.ErrUnparsableNumber)
}

func TestParseDiscountClamps(t *testing.T) {
	d, err := parseDiscount("abc")
	assert.Error(t, err)
	assert.True(t, d.IsZero())

	d, _ = parseDiscount("-5")
	assert.True(t, d.IsZero())

	d, _ = parseDiscount("150")
	assert.Equal(t, "100", d.String())
}
