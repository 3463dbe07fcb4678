// Package webhook exposes the invoice bot over HTTP.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/dialogue"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	"github.com/invoice-bot-poc/server/internal/invoice/storage"
	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

const (
	msgApology = "😔 Sorry, something went wrong while generating your invoice. Please reply *confirm* to try again."
	msgFailure = "😔 Sorry, something went wrong. Please try again in a moment."

	maxBodyBytes = 64 * 1024
)

// Bot is the conversation entry point.
type Bot interface {
	Handle(ctx context.Context, senderID, text string) (dialogue.Reply, error)
}

// Options configures the Twilio side of the webhook.
type Options struct {
	// TwilioAuthToken verifies X-Twilio-Signature. Empty disables the check.
	TwilioAuthToken string
	// PublicBaseURL is the URL Twilio is configured to call, without a trailing slash.
	PublicBaseURL string
}

type Handler struct {
	bot       Bot
	docs      model.DocumentStore
	validator *signatureValidator
}

func NewHandler(bot Bot, docs model.DocumentStore, opts Options) *Handler {
	return &Handler{
		bot:       bot,
		docs:      docs,
		validator: newSignatureValidator(opts.TwilioAuthToken, strings.TrimRight(opts.PublicBaseURL, "/")),
	}
}

// Router wires all routes with request logging and panic recovery.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(
		hlog.NewHandler(logx.Logger()),
		hlog.RequestIDHandler("request_id", requestIDHeader),
		hlog.AccessHandler(logAccess),
		withRecover,
	)

	r.HandleFunc("/whatsapp", h.whatsapp).Methods(http.MethodPost)
	r.HandleFunc("/api/messages", h.messages).Methods(http.MethodPost)
	r.HandleFunc("/invoices/{name}", h.download).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	return r
}

// turn runs one message and maps failures to a user-facing apology.
func (h *Handler) turn(ctx context.Context, sender, text string) (dialogue.Reply, error) {
	reply, err := h.bot.Handle(ctx, sender, text)
	if err == nil {
		return reply, nil
	}
	lg := logx.FromContext(ctx)
	if errors.Is(err, errx.ErrRenderFailure) {
		lg.Error().Err(err).Str("sender", sender).Msg("invoice render failed")
		return dialogue.Reply{Messages: []string{msgApology}}, err
	}
	lg.Error().Err(err).Str("sender", sender).Msg("turn failed")
	return dialogue.Reply{Messages: []string{msgFailure}}, err
}

// whatsapp handles the Twilio messaging webhook. Twilio retries non-2xx
// answers, so failures are reported inside the TwiML body with status 200.
func (h *Handler) whatsapp(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if !h.validator.valid(r) {
		logx.FromContext(r.Context()).Warn().Str("path", r.URL.Path).Msg("rejected webhook with bad signature")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}
	sender := strings.TrimSpace(r.PostForm.Get("From"))
	if sender == "" {
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}

	reply, _ := h.turn(r.Context(), sender, r.PostForm.Get("Body"))

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if err := writeTwiML(w, reply.Messages); err != nil {
		logx.FromContext(r.Context()).Warn().Err(err).Msg("failed to write twiml")
	}
}

type messageRequest struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type invoiceView struct {
	Number      string `json:"number"`
	FileName    string `json:"file_name"`
	DownloadURL string `json:"download_url"`
	GrandTotal  string `json:"grand_total"`
}

type messageResponse struct {
	Messages []string     `json:"messages"`
	Invoice  *invoiceView `json:"invoice,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// messages is a plain JSON transport for other chat front-ends and testing.
func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Error: "invalid json body"})
		return
	}
	if strings.TrimSpace(req.Sender) == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Error: "sender is required"})
		return
	}

	reply, err := h.turn(r.Context(), req.Sender, req.Text)
	if err != nil {
		writeJSON(w, errx.StatusOf(err), messageResponse{Messages: reply.Messages, Error: errorMessage(err)})
		return
	}

	resp := messageResponse{Messages: reply.Messages}
	if d := reply.Delivery; d != nil {
		resp.Invoice = &invoiceView{
			Number:      d.InvoiceNumber,
			FileName:    d.FileName,
			DownloadURL: d.DownloadRef,
			GrandTotal:  d.Totals.GrandTotal.StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	rc, err := h.docs.Open(r.Context(), name)
	if errors.Is(err, storage.ErrDocumentNotFound) || errors.Is(err, storage.ErrInvalidName) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logx.FromContext(r.Context()).Error().Err(err).Str("document", name).Msg("open document failed")
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	if _, err := io.Copy(w, rc); err != nil {
		logx.FromContext(r.Context()).Warn().Err(err).Str("document", name).Msg("document download interrupted")
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorMessage(err error) string {
	var appErr *errx.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return errx.SystemErrorMessage
}

func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(name, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}
