package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoice-bot-poc/server/internal/invoice/model"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "Invoice_INV-1.pdf", FileName("INV-1", "", ".pdf"))
	assert.Equal(t, "Invoice_INV-2026-07.pdf", FileName("INV/2026/07", "", ".pdf"))
	assert.Equal(t, "Invoice_UNNUMBERED.pdf", FileName("", "", ".pdf"))
	assert.Equal(t, "Invoice_---etc-passwd.pdf", FileName("../etc/passwd", "", ".pdf"))
	assert.Equal(t, "Invoice_INV-1_3f9a1c0b.pdf", FileName("INV-1", "3f9a1c0b", ".pdf"))
	assert.Equal(t, "Invoice_INV-1_-x.pdf", FileName("INV-1", "/x!", ".pdf"))
	assert.NotEqual(t, FileName("INV-1", "aaaa", ".pdf"), FileName("INV-1", "bbbb", ".pdf"))
	assert.NoError(t, ValidName(FileName("INV-1", "../a", ".pdf")))
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir(), "https://bot.example.com/")
	require.NoError(t, err)

	ref, err := s.Save(ctx, "Invoice_INV-1.pdf", []byte("%PDF-1.3 test"))
	require.NoError(t, err)
	assert.Equal(t, "https://bot.example.com/invoices/Invoice_INV-1.pdf", ref)

	rc, err := s.Open(ctx, "Invoice_INV-1.pdf")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 test", string(b))
}

func TestLocalStoreRejectsBadNames(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	for _, name := range []string{"", "../x.pdf", "a/b.pdf", ".hidden"} {
		_, err := s.Save(ctx, name, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
		_, err = s.Open(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}

	_, err = s.Open(ctx, "Invoice_MISSING.pdf")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestNewUnknownBackend(t *testing.T) {
	_, _, err := New(context.Background(), model.StorageConfig{Backend: "ftp"}, "")
	assert.Error(t, err)

	_, _, err = New(context.Background(), model.StorageConfig{Backend: BackendGCS}, "")
	assert.Error(t, err)
}

func TestNewLocalReturnsCloser(t *testing.T) {
	store, closeStore, err := New(context.Background(), model.StorageConfig{Backend: BackendLocal, Dir: t.TempDir()}, "http://bot.test")
	require.NoError(t, err)
	require.NotNil(t, store)
	require.NotNil(t, closeStore)
	assert.NoError(t, closeStore())
}
