package imports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/savstores/sav-invoices/internal/invoice"
)

// DefaultExtractTimeout bounds one extraction.
const DefaultExtractTimeout = 30 * time.Second

// ErrUnsupportedContentType is returned for uploads that are not PDF documents.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Extractor turns invoice bytes into a record
type Extractor interface {
	Analyze(ctx context.Context, data []byte) invoice.Analysis
}

// IDGenerator generates unique IDs for imports
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles invoice imports
type Service struct {
	db             DB
	extractor      Extractor
	storage        Storage
	idGenerator    IDGenerator
	timeSource     TimeSource
	warrantyYears  int
	extractTimeout time.Duration
}

type ServiceOption func(*Service)

func WithWarrantyYears(years int) ServiceOption {
	return func(s *Service) {
		if years > 0 {
			s.warrantyYears = years
		}
	}
}

func WithExtractTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.extractTimeout = d
		}
	}
}

// NewService creates a new Service with uuid IDs and the system clock
func NewService(db DB, extractor Extractor, storage Storage, opts ...ServiceOption) *Service {
	return NewServiceWithDeps(db, extractor, storage, &uuidGenerator{}, &defaultTimeSource{}, opts...)
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor Extractor, storage Storage, idGen IDGenerator, timeSrc TimeSource, opts ...ServiceOption) *Service {
	s := &Service{
		db:             db,
		extractor:      extractor,
		storage:        storage,
		idGenerator:    idGen,
		timeSource:     timeSrc,
		warrantyYears:  DefaultWarrantyYears,
		extractTimeout: DefaultExtractTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename keeps letters, digits, spaces, hyphens and underscores and
// truncates long names.
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(spaces.ReplaceAllString(base, " "))

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "invoice"
	}
	return base + ext
}

// IsPDF reports whether contentType names a PDF document.
func IsPDF(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "application/pdf" || ct == "application/x-pdf"
}

func (s *Service) analyze(ctx context.Context, data []byte) invoice.Analysis {
	ctx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()
	return s.extractor.Analyze(ctx, data)
}

// ProcessInvoice stores an uploaded invoice, extracts its record and saves
// the import.
func (s *Service) ProcessInvoice(ctx context.Context, filename string, data []byte, contentType string) (*Import, error) {
	if !IsPDF(contentType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), now, data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	analysis := s.analyze(ctx, data)
	if analysis.Fallback {
		slog.Warn("No customer found in invoice",
			"filename", filename,
			"file_size", len(data),
			"template", analysis.Template,
			"error", analysis.Error,
		)
	}

	imp := &Import{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		Template:    analysis.Template,
		Fallback:    analysis.Fallback,
		Record:      analysis.Record,
		WarrantyEnd: warrantyEnd(analysis.Record.PurchaseDate, s.warrantyYears),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveImport(imp); err != nil {
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to delete file", "filename", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("saving import to database: %w", err)
	}

	slog.Info("Invoice imported", "id", id, "template", imp.Template, "fallback", imp.Fallback)
	return imp, nil
}

// Preview extracts a record without storing anything.
func (s *Service) Preview(ctx context.Context, data []byte) invoice.Analysis {
	return s.analyze(ctx, data)
}

func (s *Service) GetImport(id string) (*Import, error) {
	imp, err := s.db.GetImport(id)
	if err != nil {
		return nil, fmt.Errorf("getting import: %w", err)
	}
	return imp, nil
}

// ListImports returns every import, newest first
func (s *Service) ListImports() ([]*Import, error) {
	imps, err := s.db.ListImports()
	if err != nil {
		return nil, fmt.Errorf("listing imports: %w", err)
	}
	sort.SliceStable(imps, func(i, j int) bool {
		return imps[i].CreatedAt.After(imps[j].CreatedAt)
	})
	return imps, nil
}

// DeleteImport removes an import and its file
func (s *Service) DeleteImport(id string) error {
	imp, err := s.db.GetImport(id)
	if err != nil {
		return fmt.Errorf("getting import for deletion: %w", err)
	}

	if err := s.storage.Delete(imp.Filename); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", imp.Filename, "error", err)
	}

	if err := s.db.DeleteImport(id); err != nil {
		return fmt.Errorf("deleting import from database: %w", err)
	}
	return nil
}

// GetImportFile returns the original invoice and its content type
func (s *Service) GetImportFile(id string) ([]byte, string, error) {
	imp, err := s.db.GetImport(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting import: %w", err)
	}

	data, err := s.storage.Get(imp.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting import file: %w", err)
	}
	return data, imp.ContentType, nil
}
