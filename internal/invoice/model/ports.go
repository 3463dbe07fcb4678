package model

import (
	"context"
	"io"
)

type SessionRepository interface {
	// Get returns the stored session, or nil when the sender has none.
	Get(ctx context.Context, senderID string) (*Session, error)

	// Put stores the session under its SenderID, replacing any previous value.
	Put(ctx context.Context, session *Session) error

	// Delete removes the sender's session. Deleting a missing session is not an error.
	Delete(ctx context.Context, senderID string) error
}

type ClientRepository interface {
	// Get returns the record stored under key, or nil when absent.
	Get(ctx context.Context, key string) (*ClientRecord, error)

	// Put stores the record under key, last write wins.
	Put(ctx context.Context, key string, record ClientRecord) error
}

// Locker serializes turns of the same sender.
type Locker interface {
	Lock(ctx context.Context, senderID string) (unlock func(), err error)
}

// Extractor turns free text into best-effort line items.
type Extractor interface {
	ExtractItems(ctx context.Context, text string) ([]LineItem, error)
}

// Renderer produces the bytes of a filled invoice document.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) ([]byte, error)
	// Extension is the file extension of rendered documents, including the dot.
	Extension() string
}

// DocumentStore persists rendered invoices and hands out download references.
type DocumentStore interface {
	Save(ctx context.Context, name string, content []byte) (ref string, err error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}
