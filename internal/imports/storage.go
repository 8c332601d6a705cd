package imports

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// pdfHeaderWindow is how far into the file the %PDF- marker may start.
const pdfHeaderWindow = 1024

// ErrNotPDF is returned when the bytes do not carry a PDF header, whatever
// content type the upload declared.
var ErrNotPDF = fmt.Errorf("%w: missing %%PDF- header", ErrUnsupportedContentType)

// Storage keeps the uploaded invoice files
type Storage interface {
	// Save files an invoice received at the given time and returns the
	// name to read it back with
	Save(filename string, received time.Time, data []byte) (string, error)

	Get(name string) ([]byte, error)

	Delete(name string) error
}

// LocalStorage files invoices in one directory per reception month
// (2025-01/<id>_<name>.pdf)
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates basePath if needed
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func hasPDFHeader(data []byte) bool {
	head := data
	if len(head) > pdfHeaderWindow {
		head = head[:pdfHeaderWindow]
	}
	return bytes.Contains(head, []byte("%PDF-"))
}

// invoiceName returns month/base.pdf for a received invoice.
func invoiceName(filename string, received time.Time) string {
	base := filepath.Base(filename)
	if !strings.EqualFold(filepath.Ext(base), ".pdf") {
		base += ".pdf"
	}
	return filepath.ToSlash(filepath.Join(received.UTC().Format("2006-01"), base))
}

// path keeps names inside the storage directory.
func (l *LocalStorage) path(name string) string {
	return filepath.Join(l.basePath, filepath.Clean("/"+filepath.FromSlash(name)))
}

func (l *LocalStorage) Save(filename string, received time.Time, data []byte) (string, error) {
	if !hasPDFHeader(data) {
		return "", ErrNotPDF
	}

	name := invoiceName(filename, received)
	full := l.path(name)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("creating month directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("writing invoice file: %w", err)
	}
	return name, nil
}

func (l *LocalStorage) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(l.path(name))
	if err != nil {
		return nil, fmt.Errorf("reading invoice file: %w", err)
	}
	return data, nil
}

func (l *LocalStorage) Delete(name string) error {
	if err := os.Remove(l.path(name)); err != nil {
		return fmt.Errorf("deleting invoice file: %w", err)
	}
	return nil
}
