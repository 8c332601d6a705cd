package layout

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyDocument is returned when the payload has no bytes at all.
	ErrEmptyDocument = errors.New("empty document")
	// ErrUnsupportedLoader is returned by NewLoader for an unknown backend name.
	ErrUnsupportedLoader = errors.New("unsupported loader")
)

// Loader defines the interface for turning a document payload into positioned text
type Loader interface {
	// Load decodes the payload into pages of fragments
	Load(ctx context.Context, data []byte) (*Document, error)
	// Close releases resources held by the loader
	Close() error
}

// LoaderConfig configures the document loaders
type LoaderConfig struct {
	MaxPages int // 0 = no limit

	// RowTolerance is the vertical distance under which glyphs share a row.
	RowTolerance float64
	// WordGap and ColumnGap are multiples of the font size. A horizontal gap
	// above WordGap inserts a space, above ColumnGap it starts a new fragment.
	WordGap   float64
	ColumnGap float64
}

func (c LoaderConfig) withDefaults() LoaderConfig {
	if c.RowTolerance <= 0 {
		c.RowTolerance = 2.0
	}
	if c.WordGap <= 0 {
		c.WordGap = 0.2
	}
	if c.ColumnGap <= 0 {
		c.ColumnGap = 2.5
	}
	return c
}

// NewLoader creates a Loader by backend name: "pdf" (pure Go) or "fitz" (MuPDF).
func NewLoader(kind string, cfg LoaderConfig) (Loader, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "pdf":
		return NewPDFLoader(cfg), nil
	case "fitz", "mupdf":
		return NewFitzLoader(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLoader, kind)
	}
}
