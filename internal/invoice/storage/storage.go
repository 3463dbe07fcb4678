// Package storage keeps rendered invoices and hands out download references.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/invoice-bot-poc/server/internal/invoice/model"
)

const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidName      = errors.New("invalid document name")
)

// FileName is the stored name of an invoice document. The suffix keeps two
// invoices with the same number apart; an empty suffix is left out.
func FileName(invoiceNumber, suffix, ext string) string {
	clean := cleanSegment(invoiceNumber)
	if clean == "" {
		clean = "UNNUMBERED"
	}
	if s := cleanSegment(suffix); s != "" {
		clean += "_" + s
	}
	return "Invoice_" + clean + ext
}

func cleanSegment(v string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '/' || r == '\\' || r == '.':
			return '-'
		}
		return -1
	}, v)
}

// ValidName rejects names that could escape the store.
func ValidName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// New builds the configured document store and a closer for its client.
// publicBaseURL is where the service itself is reachable; the local store
// links downloads through it.
func New(ctx context.Context, cfg model.StorageConfig, publicBaseURL string) (model.DocumentStore, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendLocal, "":
		s, err := NewLocalStore(cfg.Dir, publicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	case BackendGCS:
		s, err := NewGCSStore(ctx, cfg.Bucket, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown document store %q", cfg.Backend)
	}
}
