package dialogue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/clients"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	"github.com/invoice-bot-poc/server/internal/invoice/repo"
)

// ---- fakes ----

type fakeExtractor struct {
	mu    sync.Mutex
	items map[string][]model.LineItem
	err   error
	calls int
}

func (f *fakeExtractor) ExtractItems(_ context.Context, text string) ([]model.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.items[text], nil
}

type fakeRenderer struct {
	mu       sync.Mutex
	failures int
	requests []model.RenderRequest
}

func (f *fakeRenderer) Render(_ context.Context, req model.RenderRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("template missing")
	}
	f.requests = append(f.requests, req)
	return []byte("%PDF-fake " + req.Fields["[INVOICE_NO]"]), nil
}

func (f *fakeRenderer) Extension() string { return ".pdf" }

func (f *fakeRenderer) rendered() []model.RenderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.RenderRequest(nil), f.requests...)
}

type memStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func (s *memStore) Save(_ context.Context, name string, content []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[name] = content
	return "https://bot.example.com/invoices/" + name, nil
}

func (s *memStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.docs[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(string(b))), nil
}

// ---- harness ----

type harness struct {
	mr        *miniredis.Miniredis
	machine   *Machine
	sessions  *repo.RedisSessionRepository
	directory *clients.Directory
	extractor *fakeExtractor
	renderer  *fakeRenderer
	docs      *memStore
	locker    *repo.RedisLocker
}

func price(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		mr:        mr,
		sessions:  repo.NewRedisSessionRepository(rdb, time.Hour),
		directory: clients.NewDirectory(repo.NewRedisClientRepository(rdb)),
		extractor: &fakeExtractor{items: map[string][]model.LineItem{
			"3 pens at 10 each": {{Description: "Pen", Quantity: 3, UnitRate: price("10")}},
			"2 books at 100 and 1 bag at 500": {
				{Description: "Book", Quantity: 2, UnitRate: price("100")},
				{Description: "Bag", Quantity: 1, UnitRate: price("500")},
			},
			"4 mugs": {{Description: "Mug", Quantity: 4}},
		}},
		renderer: &fakeRenderer{},
		docs:     &memStore{docs: map[string][]byte{}},
		locker:   repo.NewRedisLocker(redislock.New(rdb), 5*time.Second, 200*time.Millisecond),
	}

	m, err := NewMachine(Deps{
		Sessions:  h.sessions,
		Clients:   h.directory,
		Locker:    h.locker,
		Extractor: h.extractor,
		Renderer:  h.renderer,
		Documents: h.docs,
	}, Config{
		TaxRatePercent: decimal.NewFromInt(18),
		State:          "Karnataka",
		Template:       "tax-invoice",
	})
	require.NoError(t, err)
	m.now = func() time.Time { return time.Date(2026, 3, 7, 9, 30, 0, 0, time.UTC) }
	m.invoiceNumber = func() string { return "INV-ABC123" }
	m.documentSuffix = func() string { return "d0c1" }
	h.machine = m
	return h
}

func (h *harness) send(t *testing.T, sender string, texts ...string) Reply {
	t.Helper()
	var last Reply
	for _, text := range texts {
		r, err := h.machine.Handle(context.Background(), sender, text)
		require.NoError(t, err, "message %q", text)
		require.NotEmpty(t, r.Messages, "message %q", text)
		last = r
	}
	return last
}

func (h *harness) session(t *testing.T, sender string) *model.Session {
	t.Helper()
	s, err := h.sessions.Get(context.Background(), sender)
	require.NoError(t, err)
	return s
}

const sender = "whatsapp:+911234567890"

var toItemInput = []string{"start", "Acme Co", "123 Main St", "skip", "yes", "INV-1"}

// ---- tests ----

func TestFullScenarioProducesOneInvoice(t *testing.T) {
	h := newHarness(t)

	last := h.send(t, sender, "start", "Acme Co", "123 Main St", "skip", "yes", "INV-1", "3 pens at 10 each", "0", "no", "confirm")

	reqs := h.renderer.rendered()
	require.Len(t, reqs, 1)
	req := reqs[0]
	require.Len(t, req.Items, 1)
	assert.Equal(t, 1, req.Items[0].Serial)
	assert.Equal(t, 3, req.Items[0].Quantity)
	assert.True(t, req.Items[0].UnitRate.Equal(decimal.NewFromInt(10)))
	assert.True(t, req.Items[0].DiscountPercent.IsZero())
	assert.Equal(t, model.TaxModeSplit, req.Totals.Mode)
	assert.Equal(t, "30.00", req.Totals.TaxableValue.StringFixed(2))
	assert.Equal(t, "2.70", req.Totals.TaxAmountA.StringFixed(2))
	assert.Equal(t, "2.70", req.Totals.TaxAmountB.StringFixed(2))
	assert.Equal(t, "35.40", req.Totals.GrandTotal.StringFixed(2))
	assert.Equal(t, "INV-1", req.Fields["[INVOICE_NO]"])
	assert.Equal(t, "07-03-2026", req.Fields["[DATE]"])
	assert.Equal(t, "Karnataka", req.Fields["[STATE]"])
	assert.Equal(t, "3", req.Fields["[TOTAL_QTY]"])
	assert.Equal(t, "Acme Co", req.ClientName)
	assert.Equal(t, "123 Main St", req.Address)

	require.NotNil(t, last.Delivery)
	assert.Equal(t, "Invoice_INV-1_d0c1.pdf", last.Delivery.FileName)
	assert.Equal(t, "https://bot.example.com/invoices/Invoice_INV-1_d0c1.pdf", last.Delivery.DownloadRef)
	assert.Contains(t, last.Messages[0], "Invoice generated successfully")
	assert.Contains(t, last.Messages[0], "Thirty Five Rupees and Forty Paise Only")
	assert.Contains(t, h.docs.docs, "Invoice_INV-1_d0c1.pdf")

	rec, found, err := h.directory.Lookup(context.Background(), "acme co")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Acme Co", rec.Name)
	assert.Equal(t, "123 Main St", rec.Address)
	assert.Empty(t, rec.GSTNumber)
	assert.Equal(t, model.TaxModeSplit, rec.TaxMode)

	assert.Nil(t, h.session(t, sender), "session cleared after finalization")
}

func TestStagesFollowHappyPath(t *testing.T) {
	h := newHarness(t)
	steps := []struct {
		text  string
		stage model.Stage
	}{
		{"hello", model.StageAwaitClientName},
		{"  acme   co ", model.StageAwaitAddress},
		{"123 Main St", model.StageAwaitGST},
		{"29ABCDE1234F1Z5", model.StageAwaitTaxMode},
		{"no", model.StageAwaitInvoiceNumber},
		{"inv-7", model.StageAwaitItemInput},
		{"3 pens at 10 each", model.StageAwaitItemDiscount},
		{"5", model.StageConfirmAddMore},
		{"maybe", model.StageConfirmAddMore},
		{"no", model.StageFinalConfirm},
		{"what?", model.StageFinalConfirm},
	}
	for _, st := range steps {
		h.send(t, sender, st.text)
		assert.Equal(t, st.stage, h.session(t, sender).Stage, "after %q", st.text)
	}

	s := h.session(t, sender)
	assert.Equal(t, "Acme Co", s.ClientName)
	assert.Equal(t, "29ABCDE1234F1Z5", s.GSTNumber)
	assert.Equal(t, model.TaxModeUnified, s.TaxMode)
	assert.Equal(t, "INV-7", s.InvoiceNumber)
	assert.Nil(t, s.ConfirmedItems)
	assert.Nil(t, s.Totals)
}

func TestEmptyExtractionReprompts(t *testing.T) {
	h := newHarness(t)
	h.send(t, sender, toItemInput...)
	h.send(t, sender, "3 pens at 10 each", "0", "yes")
	before := h.session(t, sender).PendingItems

	r := h.send(t, sender, "blah blah")
	assert.Equal(t, []string{msgNoItems}, r.Messages)
	s := h.session(t, sender)
	assert.Equal(t, model.StageAwaitItemInput, s.Stage)
	assert.Equal(t, before, s.PendingItems)
}

func TestExtractorFailureReprompts(t *testing.T) {
	h := newHarness(t)
	h.send(t, sender, toItemInput...)
	h.extractor.err = fmt.Errorf("%w: timeout", errx.ErrExtractionFailure)

	r := h.send(t, sender, "3 pens at 10 each")
	assert.Equal(t, []string{msgNoItems}, r.Messages)
	s := h.session(t, sender)
	assert.Equal(t, model.StageAwaitItemInput, s.Stage)
	assert.Empty(t, s.PendingItems)
}

func TestUnparsableDiscountIsZero(t *testing.T) {
	h := newHarness(t)
	h.send(t, sender, toItemInput...)
	h.send(t, sender, "3 pens at 10 each", "abc")

	s := h.session(t, sender)
	assert.Equal(t, model.StageConfirmAddMore, s.Stage)
	require.Len(t, s.PendingItems, 1)
	assert.True(t, s.PendingItems[0].DiscountPercent.IsZero())
}

func TestDiscountAppliesToLastItemOnly(t *testing.T) {
	h := newHarness(t)
	h.send(t, sender, toItemInput...)
	h.send(t, sender, "2 books at 100 and 1 bag at 500", "10%")

	s := h.session(t, sender)
	require.Len(t, s.PendingItems, 2)
	assert.True(t, s.PendingItems[0].DiscountPercent.IsZero())
	assert.Equal(t, "10", s.PendingItems[1].DiscountPercent.String())

	// 200 + 450 preview, tax discarded
	r := h.send(t, sender, "no")
	assert.Contains(t, r.Messages[0], "Preview total (before tax): ₹650.00")
}

func TestSameInvoiceNumberFromTwoSendersKeepsBothDocuments(t *testing.T) {
	h := newHarness(t)
	n := 0
	h.machine.documentSuffix = func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
	script := func(client string) []string {
		return []string{"start", client, "123 Main St", "skip", "yes", "INV-1", "3 pens at 10 each", "0", "no", "confirm"}
	}

	a := h.send(t, "whatsapp:+911", script("Acme Co")...)
	b := h.send(t, "whatsapp:+912", script("Beta Ltd")...)

	require.NotNil(t, a.Delivery)
	require.NotNil(t, b.Delivery)
	assert.NotEqual(t, a.Delivery.FileName, b.Delivery.FileName)
	assert.Len(t, h.docs.docs, 2)
}

func TestBusySenderGetsReplyWithoutWaiting(t *testing.T) {
	h := newHarness(t)
	h.send(t, sender, "start")

	unlock, err := h.locker.Lock(context.Background(), sender)
	require.NoError(t, err)

	start := time.Now()
	r, err := h.machine.Handle(context.Background(), sender, "Acme Co")
	require.NoError(t, err)
	assert.Equal(t, []string{msgBusy}, r.Messages)
	assert.Less(t, time.Since(start), 2*time.Second, "busy reply comes after the wait budget, not the lock ttl")
	assert.Equal(t, model.StageAwaitClientName, h.session(t, sender).Stage, "busy turn leaves the session alone")

	unlock()
	h.send(t, sender, "Acme Co")
	assert.Equal(t, model.StageAwaitAddress, h.session(t, sender).Stage)
}

func TestCancelOutsideFinalConfirmRepromptsAddMore(t *testing.T) {
	h := newHarness(t)
	h.send(t, sender, toItemInput...)
	r := h.send(t, sender, "3 pens at 10 each", "0", "cancel")

	assert.Equal(t, []string{msgAddMoreAgain}, r.Messages)
	s := h.session(t, sender)
	require.NotNil(t, s)
	assert.Equal(t, model.StageConfirmAddMore, s.Stage)
	assert.Len(t, s.PendingItems, 1)
}

func TestItemsAccumulateAcrossTurns(t *testing.T) {
	h := newHarness(t)
	h.send(t, sender, toItemInput...)
	h.send(t, sender, "3 pens at 10 each", "0", "yes", "2 books at 100 and 1 bag at 500", "0")

	s := h.session(t, sender)
	require.Len(t, s.PendingItems, 3)
	for i, it := range s.PendingItems {
		assert.Equal(t, i+1, it.Serial)
	}
	assert.Equal(t, "Pen", s.PendingItems[0].Description)
}

func TestCancelClearsSessionAndKeepsDirectory(t *testing.T) {
	h := newHarness(t)
	h.send(t, sender, toItemInput...)
	r := h.send(t, sender, "3 pens at 10 each", "0", "no", "cancel")

	assert.Equal(t, []string{msgCancelled}, r.Messages)
	assert.Nil(t, h.session(t, sender))
	assert.Empty(t, h.renderer.rendered())

	_, found, err := h.directory.Lookup(context.Background(), "Acme Co")
	require.NoError(t, err)
	assert.False(t, found)

	h.send(t, sender, "start")
	assert.Equal(t, model.StageAwaitClientName, h.session(t, sender).Stage)
}

func TestEditDiscardsPendingItems(t *testing.T) {
	h := newHarness(t)
	h.send(t, sender, toItemInput...)
	h.send(t, sender, "3 pens at 10 each", "0", "no", "edit")

	s := h.session(t, sender)
	assert.Equal(t, model.StageAwaitItemInput, s.Stage)
	assert.Empty(t, s.PendingItems)

	// "confirm" is just more item text now
	h.send(t, sender, "confirm")
	assert.Equal(t, model.StageAwaitItemInput, h.session(t, sender).Stage)
	assert.Empty(t, h.renderer.rendered())

	h.send(t, sender, "2 books at 100 and 1 bag at 500", "0", "no", "confirm")
	reqs := h.renderer.rendered()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Items, 2)
	assert.Equal(t, "Book", reqs[0].Items[0].Description)
	assert.Equal(t, 1, reqs[0].Items[0].Serial)
}

func TestRenderFailureKeepsSessionForRetry(t *testing.T) {
	h := newHarness(t)
	h.renderer.failures = 1
	h.send(t, sender, toItemInput...)
	h.send(t, sender, "3 pens at 10 each", "0", "no")

	_, err := h.machine.Handle(context.Background(), sender, "confirm")
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrRenderFailure)
	assert.Equal(t, 502, errx.StatusOf(err))

	s := h.session(t, sender)
	require.NotNil(t, s)
	assert.Equal(t, model.StageFinalConfirm, s.Stage)
	assert.Nil(t, s.ConfirmedItems)
	assert.Len(t, s.PendingItems, 1)

	_, found, _ := h.directory.Lookup(context.Background(), "Acme Co")
	assert.False(t, found)

	r := h.send(t, sender, "confirm")
	require.NotNil(t, r.Delivery)
	assert.Len(t, h.renderer.rendered(), 1)
	assert.Nil(t, h.session(t, sender))
}

func TestSavedClientShortcut(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.directory.Upsert(context.Background(), "Acme Co", model.ClientRecord{
		Address: "9 Ring Rd", GSTNumber: "29ABCDE1234F1Z5", TaxMode: model.TaxModeUnified,
	}))

	r := h.send(t, sender, "start", "ACME CO")
	assert.Contains(t, r.Messages[0], "Found saved client: *Acme Co*")
	assert.Contains(t, r.Messages[0], "9 Ring Rd")
	assert.Equal(t, model.StageConfirmSavedClient, h.session(t, sender).Stage)

	h.send(t, sender, "hmm")
	assert.Equal(t, model.StageConfirmSavedClient, h.session(t, sender).Stage)

	h.send(t, sender, "yes")
	s := h.session(t, sender)
	assert.Equal(t, model.StageAwaitInvoiceNumber, s.Stage)
	assert.Equal(t, "9 Ring Rd", s.ClientAddress)
	assert.Equal(t, model.TaxModeUnified, s.TaxMode)

	h.send(t, sender, "auto", "3 pens at 10 each", "0", "no", "confirm")
	reqs := h.renderer.rendered()
	require.Len(t, reqs, 1)
	assert.Equal(t, "INV-ABC123", reqs[0].Fields["[INVOICE_NO]"])
	assert.Equal(t, model.TaxModeUnified, reqs[0].Totals.Mode)
	assert.True(t, reqs[0].Totals.TaxAmountA.IsZero())
	assert.Equal(t, "5.40", reqs[0].Totals.TaxAmountUnified.StringFixed(2))
}

func TestSavedClientChange(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.directory.Upsert(context.Background(), "Acme Co", model.ClientRecord{
		Address: "9 Ring Rd", TaxMode: model.TaxModeSplit,
	}))

	h.send(t, sender, "start", "Acme Co", "change")
	s := h.session(t, sender)
	assert.Equal(t, model.StageAwaitAddress, s.Stage)
	assert.Empty(t, s.ClientAddress)
}

func TestMissingRateIsAskedBeforeConfirm(t *testing.T) {
	h := newHarness(t)
	h.send(t, sender, toItemInput...)

	r := h.send(t, sender, "4 mugs")
	assert.Contains(t, r.Messages[0], "4 × ₹?")

	r = h.send(t, sender, "0", "no")
	assert.Equal(t, model.StageAwaitItemRate, h.session(t, sender).Stage)
	assert.Contains(t, r.Messages[0], "Mug")

	h.send(t, sender, "abc")
	assert.Equal(t, model.StageAwaitItemRate, h.session(t, sender).Stage)

	h.send(t, sender, "₹25")
	s := h.session(t, sender)
	assert.Equal(t, model.StageFinalConfirm, s.Stage)
	assert.True(t, s.PendingItems[0].UnitRate.Equal(decimal.NewFromInt(25)))

	h.send(t, sender, "confirm")
	reqs := h.renderer.rendered()
	require.Len(t, reqs, 1)
	assert.Equal(t, "100.00", reqs[0].Totals.Subtotal.StringFixed(2))
}

func TestIdleFallback(t *testing.T) {
	h := newHarness(t)
	r := h.send(t, sender, "invoice please")
	assert.Equal(t, []string{msgTypeStart}, r.Messages)
	assert.Nil(t, h.session(t, sender))
}

func TestGreetingRestartsAnywhere(t *testing.T) {
	h := newHarness(t)
	h.send(t, sender, toItemInput...)
	h.send(t, sender, "3 pens at 10 each")

	r := h.send(t, sender, "Hi")
	assert.Equal(t, []string{msgWelcome}, r.Messages)
	s := h.session(t, sender)
	assert.Equal(t, model.StageAwaitClientName, s.Stage)
	assert.Empty(t, s.PendingItems)
	assert.Empty(t, s.ClientName)
}

func TestCorruptSessionStartsOver(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.mr.Set("invoice:session:"+sender, "{not json"))

	r := h.send(t, sender, "Acme Co")
	assert.Equal(t, []string{msgTypeStart}, r.Messages)
}

func TestSessionSurvivesMachineRestart(t *testing.T) {
	h := newHarness(t)
	h.send(t, sender, "start", "Acme Co")

	restarted, err := NewMachine(h.machine.deps, h.machine.cfg)
	require.NoError(t, err)
	_, err = restarted.Handle(context.Background(), sender, "123 Main St")
	require.NoError(t, err)
	assert.Equal(t, model.StageAwaitGST, h.session(t, sender).Stage)
}

func TestSessionStoreDownFailsTurn(t *testing.T) {
	h := newHarness(t)
	h.mr.Close()

	_, err := h.machine.Handle(context.Background(), sender, "start")
	assert.Error(t, err)
}

func TestSendersAreIndependent(t *testing.T) {
	h := newHarness(t)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from := fmt.Sprintf("whatsapp:+91000000000%d", i)
			for _, text := range []string{"start", fmt.Sprintf("Client %d", i), "Addr", "skip", "yes", fmt.Sprintf("INV-%d", i), "3 pens at 10 each", "0", "no", "confirm"} {
				_, err := h.machine.Handle(context.Background(), from, text)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, h.renderer.rendered(), 4)
	for i := 0; i < 4; i++ {
		_, found, err := h.directory.Lookup(context.Background(), fmt.Sprintf("client %d", i))
		require.NoError(t, err)
		assert.True(t, found)
	}
}

func TestNewMachineRequiresDeps(t *testing.T) {
	_, err := NewMachine(Deps{}, Config{})
	assert.Error(t, err)
}
