package model

import (
	"time"
)

// Stage is the dialogue position of a sender. Every "awaiting X" condition is a
// stage value, so two awaiting flags can never be set at once.
type Stage string

const (
	StageIdle               Stage = "IDLE"
	StageAwaitClientName    Stage = "AWAIT_CLIENT_NAME"
	StageConfirmSavedClient Stage = "CONFIRM_SAVED_CLIENT"
	StageAwaitAddress       Stage = "AWAIT_ADDRESS"
	StageAwaitGST           Stage = "AWAIT_GST"
	StageAwaitTaxMode       Stage = "AWAIT_TAX_MODE"
	StageAwaitInvoiceNumber Stage = "AWAIT_INVOICE_NUMBER"
	StageAwaitItemInput     Stage = "AWAIT_ITEM_INPUT"
	StageAwaitItemDiscount  Stage = "AWAIT_ITEM_DISCOUNT"
	StageConfirmAddMore     Stage = "CONFIRM_ADD_MORE"
	StageAwaitItemRate      Stage = "AWAIT_ITEM_RATE"
	StageFinalConfirm       Stage = "FINAL_CONFIRM"
)

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageIdle, StageAwaitClientName, StageConfirmSavedClient, StageAwaitAddress,
		StageAwaitGST, StageAwaitTaxMode, StageAwaitInvoiceNumber, StageAwaitItemInput,
		StageAwaitItemDiscount, StageConfirmAddMore, StageAwaitItemRate, StageFinalConfirm:
		return true
	}
	return false
}

// TaxMode selects the tax computation branch.
type TaxMode string

const (
	// TaxModeSplit is intra-state: two equal components (CGST + SGST).
	TaxModeSplit TaxMode = "SPLIT"
	// TaxModeUnified is inter-state: one component (IGST).
	TaxModeUnified TaxMode = "UNIFIED"
)

// Session is the persisted conversation state of one sender.
type Session struct {
	SenderID       string     `json:"sender_id"`
	Stage          Stage      `json:"stage"`
	ClientName     string     `json:"client_name,omitempty"`
	ClientAddress  string     `json:"client_address,omitempty"`
	GSTNumber      string     `json:"gst_number,omitempty"`
	TaxMode        TaxMode    `json:"tax_mode,omitempty"`
	InvoiceNumber  string     `json:"invoice_number,omitempty"`
	PendingItems   []LineItem `json:"pending_items,omitempty"`
	ConfirmedItems []LineItem `json:"confirmed_items,omitempty"`
	Totals         *Totals    `json:"totals,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewSession returns an IDLE session for the sender.
func NewSession(senderID string) *Session {
	return &Session{SenderID: senderID, Stage: StageIdle}
}

// Finalized reports whether the invoice items are locked.
func (s *Session) Finalized() bool {
	return s.ConfirmedItems != nil
}

// RenderRequest is everything a renderer needs to produce one invoice document.
type RenderRequest struct {
	Template   string
	Fields     map[string]string
	ClientName string
	Address    string
	Items      []LineItem
	Totals     Totals
}

// Delivery is the outcome of a finalized invoice handed back to the sender.
type Delivery struct {
	InvoiceNumber string
	FileName      string
	DownloadRef   string
	Totals        Totals
}
