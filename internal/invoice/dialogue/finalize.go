package dialogue

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/items"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	"github.com/invoice-bot-poc/server/internal/invoice/render"
	"github.com/invoice-bot-poc/server/internal/invoice/storage"
	"github.com/invoice-bot-poc/server/internal/invoice/tax"
)

// finalize locks the items, computes totals, renders and stores the document,
// remembers the client and clears the session. Render and store failures are
// returned wrapped by errx.WrapRender; the caller then leaves the stored
// session untouched so "confirm" can be retried.
func (m *Machine) finalize(ctx context.Context, s *model.Session) (turn, error) {
	lg := zerolog.Ctx(ctx).With().Str("invoice", s.InvoiceNumber).Logger()

	confirmed := items.Renumber(s.PendingItems)
	totals, err := tax.ComputeTotals(tax.EffectiveItems(confirmed), decimal.Zero, s.TaxMode, m.cfg.TaxRatePercent)
	if err != nil {
		return turn{}, fmt.Errorf("compute totals: %w", err)
	}
	s.ConfirmedItems = confirmed
	s.Totals = &totals

	inv := render.Invoice{
		Number:        s.InvoiceNumber,
		Date:          m.now(),
		ClientName:    s.ClientName,
		ClientAddress: s.ClientAddress,
		GSTNumber:     s.GSTNumber,
		State:         m.cfg.State,
		ReverseCharge: m.cfg.ReverseCharge,
		Items:         confirmed,
		Totals:        totals,
	}
	fields := render.BuildFields(inv)

	doc, err := m.deps.Renderer.Render(ctx, model.RenderRequest{
		Template:   m.cfg.Template,
		Fields:     fields,
		ClientName: s.ClientName,
		Address:    s.ClientAddress,
		Items:      confirmed,
		Totals:     totals,
	})
	if err != nil {
		lg.Error().Err(err).Msg("render failed")
		return turn{}, errx.WrapRender(err)
	}

	name := storage.FileName(s.InvoiceNumber, m.documentSuffix(), m.deps.Renderer.Extension())
	ref, err := m.deps.Documents.Save(ctx, name, doc)
	if err != nil {
		lg.Error().Err(err).Str("document", name).Msg("storing document failed")
		return turn{}, errx.WrapRender(err)
	}

	// the invoice exists at this point; a directory failure only loses the shortcut next time
	if err := m.deps.Clients.Upsert(ctx, s.ClientName, model.ClientRecord{
		Address:   s.ClientAddress,
		GSTNumber: s.GSTNumber,
		TaxMode:   s.TaxMode,
	}); err != nil {
		lg.Warn().Err(err).Str("client", s.ClientName).Msg("saving client failed")
	}

	delivery := &model.Delivery{
		InvoiceNumber: s.InvoiceNumber,
		FileName:      name,
		DownloadRef:   ref,
		Totals:        totals,
	}
	lg.Info().Str("document", name).Str("total", totals.GrandTotal.StringFixed(2)).Msg("invoice generated")

	s.Stage = model.StageIdle
	return turn{
		messages: []string{msgGenerated(delivery, fields[render.FieldAmountInWords])},
		clear:    true,
		delivery: delivery,
	}, nil
}
