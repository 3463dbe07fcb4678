// Package clients remembers client addresses and tax profiles between invoices.
package clients

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/invoice-bot-poc/server/internal/invoice/model"
)

// Directory maps normalized client names to saved records. Matching is exact on
// the case-folded name; anything else is a new client.
type Directory struct {
	repo model.ClientRepository
	now  func() time.Time
}

func NewDirectory(repo model.ClientRepository) *Directory {
	return &Directory{repo: repo, now: time.Now}
}

// NormalizeName trims the name, collapses inner whitespace and title-cases it.
func NormalizeName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return cases.Title(language.Und).String(strings.Join(fields, " "))
}

// Key is the storage key for a client name.
func Key(name string) string {
	return cases.Fold().String(NormalizeName(name))
}

// Lookup returns the saved record for name. ok is false for unknown clients.
func (d *Directory) Lookup(ctx context.Context, name string) (*model.ClientRecord, bool, error) {
	key := Key(name)
	if key == "" {
		return nil, false, nil
	}
	rec, err := d.repo.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}
	return rec, true, nil
}

// Upsert stores record under name, replacing any previous record.
func (d *Directory) Upsert(ctx context.Context, name string, record model.ClientRecord) error {
	record.Name = NormalizeName(name)
	record.UpdatedAt = d.now().UTC()
	return d.repo.Put(ctx, Key(name), record)
}
