package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

// LocalStore writes documents to a directory served back by the webhook under /invoices/.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	if dir == "" {
		dir = "invoices"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Save implements model.DocumentStore.
func (s *LocalStore) Save(_ context.Context, name string, content []byte) (string, error) {
	if err := ValidName(name); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		logx.Error().Err(err).Str("document", name).Msg("write document failed")
		return "", fmt.Errorf("write document %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("store document %s: %w", name, err)
	}
	return s.baseURL + "/invoices/" + name, nil
}

// Open implements model.DocumentStore.
func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
