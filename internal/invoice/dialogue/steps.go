package dialogue

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/clients"
	"github.com/invoice-bot-poc/server/internal/invoice/items"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	"github.com/invoice-bot-poc/server/internal/invoice/tax"
)

func (m *Machine) onClientName(ctx context.Context, s *model.Session, text string) turn {
	name := clients.NormalizeName(text)
	if name == "" {
		return say(msgAskName)
	}
	s.ClientName = name

	rec, found, err := m.deps.Clients.Lookup(ctx, name)
	if err != nil {
		// an unreachable directory only costs the shortcut
		zerolog.Ctx(ctx).Warn().Err(err).Str("client", name).Msg("client lookup failed")
	}
	if found {
		s.ClientAddress = rec.Address
		s.GSTNumber = rec.GSTNumber
		s.TaxMode = rec.TaxMode
		s.Stage = model.StageConfirmSavedClient
		return say(msgSavedClient(s))
	}

	s.Stage = model.StageAwaitAddress
	return say(msgAskAddress)
}

func (m *Machine) onConfirmSavedClient(s *model.Session, text string) turn {
	switch {
	case isAffirmative(text):
		if s.TaxMode == "" {
			s.Stage = model.StageAwaitTaxMode
			return say(msgAskTaxMode)
		}
		s.Stage = model.StageAwaitInvoiceNumber
		return say(msgAskInvoiceNo)
	case is(text, "change"):
		s.ClientAddress = ""
		s.GSTNumber = ""
		s.TaxMode = ""
		s.Stage = model.StageAwaitAddress
		return say(msgAskAddress)
	}
	return say(msgSavedAgain)
}

func (m *Machine) onAddress(s *model.Session, text string) turn {
	if text == "" {
		return say(msgAddressMissing)
	}
	s.ClientAddress = text
	s.Stage = model.StageAwaitGST
	return say(msgAskGST)
}

func (m *Machine) onGST(s *model.Session, text string) turn {
	if is(text, "skip") {
		s.GSTNumber = ""
	} else {
		s.GSTNumber = text
	}
	s.Stage = model.StageAwaitTaxMode
	return say(msgAskTaxMode)
}

func (m *Machine) onTaxMode(s *model.Session, text string) turn {
	if isAffirmative(text) {
		s.TaxMode = model.TaxModeSplit
	} else {
		s.TaxMode = model.TaxModeUnified
	}
	s.Stage = model.StageAwaitInvoiceNumber
	return say(msgAskInvoiceNo)
}

func (m *Machine) onInvoiceNumber(s *model.Session, text string) turn {
	number := strings.ToUpper(text)
	if number == "" || is(text, "auto") || is(text, "skip") {
		number = m.invoiceNumber()
	}
	s.InvoiceNumber = number
	s.Stage = model.StageAwaitItemInput
	return say("🧾 Invoice number: *"+number+"*", msgAskItems)
}

func (m *Machine) onItemInput(ctx context.Context, s *model.Session, text string) turn {
	found, err := m.deps.Extractor.ExtractItems(ctx, text)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("extraction failed, re-prompting")
		return say(msgNoItems)
	}
	if len(found) == 0 {
		zerolog.Ctx(ctx).Info().Err(errx.ErrEmptyExtraction).Msg("no items in message, re-prompting")
		return say(msgNoItems)
	}

	before := len(s.PendingItems)
	s.PendingItems = items.Append(s.PendingItems, found)
	s.Stage = model.StageAwaitItemDiscount
	return say(msgFoundItems(s.PendingItems[before:]))
}

func (m *Machine) onItemDiscount(ctx context.Context, s *model.Session, text string) turn {
	pct, err := parseDiscount(text)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("discount defaults to 0")
	}
	s.PendingItems = items.ApplyDiscountToLast(s.PendingItems, pct)
	s.Stage = model.StageConfirmAddMore
	return say(msgAskAddMore)
}

func (m *Machine) onConfirmAddMore(s *model.Session, text string) turn {
	switch {
	case isAffirmative(text):
		s.Stage = model.StageAwaitItemInput
		return say(msgAskMoreItems)
	case isNegative(text):
		return m.review(s)
	}
	return say(msgAddMoreAgain)
}

// review moves to FINAL_CONFIRM, or asks for missing rates first.
func (m *Machine) review(s *model.Session) turn {
	if missing := items.Unpriced(s.PendingItems); len(missing) > 0 {
		s.Stage = model.StageAwaitItemRate
		return say(msgAskRate(s.PendingItems[missing[0]]))
	}
	s.Stage = model.StageFinalConfirm
	return say(msgReview(s, tax.Preview(s.PendingItems)))
}

func (m *Machine) onItemRate(s *model.Session, text string) turn {
	missing := items.Unpriced(s.PendingItems)
	if len(missing) == 0 {
		return m.review(s)
	}
	current := s.PendingItems[missing[0]]

	rate, err := parseAmount(text)
	if err != nil || rate.IsNegative() {
		return say(msgRateAgain(current))
	}
	s.PendingItems = items.SetRate(s.PendingItems, missing[0], rate)
	return m.review(s)
}

func (m *Machine) onFinalConfirm(ctx context.Context, s *model.Session, text string) (turn, error) {
	switch {
	case isAffirmative(text):
		if len(items.Unpriced(s.PendingItems)) > 0 {
			zerolog.Ctx(ctx).Info().Err(errx.ErrMissingUnitRate).Msg("asking for rates before finalizing")
			return m.review(s), nil
		}
		return m.finalize(ctx, s)
	case is(text, "edit"):
		s.PendingItems = items.Reset()
		s.Stage = model.StageAwaitItemInput
		return say(msgEdit), nil
	case isNegative(text), is(text, "cancel"):
		return turn{messages: []string{msgCancelled}, clear: true}, nil
	}
	return say(msgFinalAgain), nil
}
