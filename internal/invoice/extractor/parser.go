package extractor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

// basic safety limits to avoid pathological model output
const (
	maxContentLen  = 64 * 1024
	maxItems       = 100
	maxDescription = 200
	maxQuantity    = 1_000_000
	maxErrSnippet  = 200
)

type rawItem struct {
	Description string `json:"description"`
	Qty         any    `json:"qty"`
	Rate        any    `json:"rate"`
	HSN         any    `json:"hsn"`
}

type rawResult struct {
	Items []rawItem `json:"items"`
}

// ParseItems decodes model output into line items. Prose around the JSON
// object is ignored. Items without a description are dropped; a missing or
// invalid quantity becomes 1 and a missing or invalid rate becomes nil.
// Serials are assigned 1..n in output order.
func ParseItems(content string) (items []model.LineItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "item_parser").Msgf("panic recovered: %v", r)
			items, err = nil, fmt.Errorf("%w: parser panic", errx.ErrExtractionFailure)
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "item_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no json object in %q", errx.ErrExtractionFailure, safeSnippet(content))
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errx.ErrExtractionFailure, err)
	}

	items = make([]model.LineItem, 0, len(raw.Items))
	for _, ri := range raw.Items {
		if len(items) >= maxItems {
			logx.Warn().Str("component", "item_parser").Int("max_items", maxItems).Msg("item list capped")
			break
		}
		desc := strings.Join(strings.Fields(ri.Description), " ")
		if desc == "" || !utf8.ValidString(desc) {
			continue
		}
		desc = truncateUTF8(desc, maxDescription)
		items = append(items, model.LineItem{
			Serial:          len(items) + 1,
			Description:     desc,
			Quantity:        parseQuantity(ri.Qty),
			UnitRate:        parseRate(ri.Rate),
			TaxCode:         parseCode(ri.HSN),
			DiscountPercent: decimal.Zero,
		})
	}
	return items, nil
}

// --- helpers ---

// truncateUTF8 cuts s to at most limit bytes without splitting a character.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func parseQuantity(v any) int {
	var n float64
	switch vv := v.(type) {
	case float64:
		n = vv
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(vv), 64)
		if err != nil {
			return 1
		}
		n = f
	default:
		return 1
	}
	if n < 1 || n > maxQuantity {
		return 1
	}
	return int(n)
}

func parseRate(v any) *decimal.Decimal {
	var d decimal.Decimal
	switch vv := v.(type) {
	case float64:
		d = decimal.NewFromFloat(vv)
	case string:
		s := strings.TrimSpace(vv)
		s = strings.TrimLeft(s, "₹$Rs. ")
		s = strings.ReplaceAll(s, ",", "")
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		d = parsed
	default:
		return nil
	}
	if d.IsNegative() {
		return nil
	}
	return &d
}

func parseCode(v any) string {
	switch vv := v.(type) {
	case string:
		s := strings.TrimSpace(vv)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	}
	return ""
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
