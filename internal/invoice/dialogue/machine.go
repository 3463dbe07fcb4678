// Package dialogue runs the per-sender invoice conversation.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/invoice-bot-poc/server/internal/invoice/clients"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	"github.com/invoice-bot-poc/server/internal/invoice/repo"
	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

// Reply is what one turn sends back to the sender.
type Reply struct {
	Messages []string
	// Delivery is set only on the turn that produced an invoice.
	Delivery *model.Delivery
}

// Config carries the invoice-wide settings the machine stamps on every invoice.
type Config struct {
	TaxRatePercent decimal.Decimal
	State          string
	ReverseCharge  string
	Template       string
}

// Deps are the collaborators of the machine. Locker may be nil when turns of
// the same sender are already serialized by the caller.
type Deps struct {
	Sessions  model.SessionRepository
	Clients   *clients.Directory
	Locker    model.Locker
	Extractor model.Extractor
	Renderer  model.Renderer
	Documents model.DocumentStore
}

// Machine interprets one inbound message against the sender's stored stage.
type Machine struct {
	deps           Deps
	cfg            Config
	now            func() time.Time
	invoiceNumber  func() string
	documentSuffix func() string // keeps documents with the same invoice number apart
}

func NewMachine(deps Deps, cfg Config) (*Machine, error) {
	if deps.Sessions == nil || deps.Clients == nil || deps.Extractor == nil || deps.Renderer == nil || deps.Documents == nil {
		return nil, fmt.Errorf("dialogue: missing dependency")
	}
	if cfg.ReverseCharge == "" {
		cfg.ReverseCharge = "NO"
	}
	return &Machine{
		deps:           deps,
		cfg:            cfg,
		now:            time.Now,
		invoiceNumber:  generateInvoiceNumber,
		documentSuffix: generateDocumentSuffix,
	}, nil
}

// turn is the outcome of one stage handler.
type turn struct {
	messages []string
	// clear deletes the session instead of saving it.
	clear    bool
	delivery *model.Delivery
}

func say(msgs ...string) turn {
	return turn{messages: msgs}
}

// Handle processes one message of senderID. Recoverable input problems become
// re-prompts; the returned error is non-nil only when the turn could not be
// completed (session store down, render failure). On error the stored session
// is left as it was before the turn.
func (m *Machine) Handle(ctx context.Context, senderID, text string) (Reply, error) {
	lg := logx.Sender(ctx, senderID)
	ctx = lg.WithContext(ctx)

	if m.deps.Locker != nil {
		unlock, err := m.deps.Locker.Lock(ctx, senderID)
		if errors.Is(err, repo.ErrSenderBusy) {
			return Reply{Messages: []string{msgBusy}}, nil
		}
		if err != nil {
			return Reply{}, err
		}
		defer unlock()
	}

	s, err := m.deps.Sessions.Get(ctx, senderID)
	if err != nil {
		return Reply{}, err
	}
	if s == nil || s.Finalized() {
		s = model.NewSession(senderID)
	}

	text = strings.TrimSpace(text)
	from := s.Stage

	var t turn
	if isGreeting(text) {
		s = model.NewSession(senderID)
		s.Stage = model.StageAwaitClientName
		t = say(msgWelcome)
	} else {
		t, err = m.step(ctx, s, text)
		if err != nil {
			lg.Error().Err(err).Str("stage", string(from)).Msg("turn failed")
			return Reply{}, err
		}
	}

	if t.clear {
		err = m.deps.Sessions.Delete(ctx, senderID)
	} else {
		err = m.deps.Sessions.Put(ctx, s)
	}
	if err != nil {
		return Reply{}, err
	}

	lg.Debug().Str("from", string(from)).Str("to", string(s.Stage)).Bool("cleared", t.clear).Msg("turn done")
	return Reply{Messages: t.messages, Delivery: t.delivery}, nil
}

func (m *Machine) step(ctx context.Context, s *model.Session, text string) (turn, error) {
	switch s.Stage {
	case model.StageIdle:
		return turn{messages: []string{msgTypeStart}, clear: true}, nil
	case model.StageAwaitClientName:
		return m.onClientName(ctx, s, text), nil
	case model.StageConfirmSavedClient:
		return m.onConfirmSavedClient(s, text), nil
	case model.StageAwaitAddress:
		return m.onAddress(s, text), nil
	case model.StageAwaitGST:
		return m.onGST(s, text), nil
	case model.StageAwaitTaxMode:
		return m.onTaxMode(s, text), nil
	case model.StageAwaitInvoiceNumber:
		return m.onInvoiceNumber(s, text), nil
	case model.StageAwaitItemInput:
		return m.onItemInput(ctx, s, text), nil
	case model.StageAwaitItemDiscount:
		return m.onItemDiscount(ctx, s, text), nil
	case model.StageConfirmAddMore:
		return m.onConfirmAddMore(s, text), nil
	case model.StageAwaitItemRate:
		return m.onItemRate(s, text), nil
	case model.StageFinalConfirm:
		return m.onFinalConfirm(ctx, s, text)
	}
	zerolog.Ctx(ctx).Warn().Str("stage", string(s.Stage)).Msg("unknown stage, restarting")
	return turn{messages: []string{msgTypeStart}, clear: true}, nil
}

func generateInvoiceNumber() string {
	return "INV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

func generateDocumentSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
