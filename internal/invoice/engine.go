package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/savstores/sav-invoices/internal/layout"
)

const (
	DefaultMaxTextLength = 1 << 20
	DefaultMaxFragments  = 50000
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Placeholders are the values of the fallback record returned when no
// customer could be identified.
type Placeholders struct {
	LastName        string
	FirstName       string
	Address         string
	ReferencePrefix string
	Model           string
	Brand           string
	FrameColor      string
	FabricColor     string
	Motor           string
}

// DefaultPlaceholders returns the French placeholder values.
func DefaultPlaceholders() Placeholders {
	return Placeholders{
		LastName:        "Client",
		FirstName:       "Nouveau",
		Address:         "Adresse non détectée",
		ReferencePrefix: "REF-",
		Model:           "Store banne",
		Brand:           "Non détectée",
		FrameColor:      "Non détectée",
		FabricColor:     "Non détectée",
		Motor:           "Non détecté",
	}
}

// Record builds the fallback record. The product reference is derived from
// now so that two fallbacks created at different times differ.
func (p Placeholders) Record(now time.Time) Record {
	return Record{
		LastName:         p.LastName,
		FirstName:        p.FirstName,
		Address:          p.Address,
		ProductReference: fmt.Sprintf("%s%d", p.ReferencePrefix, now.UnixMilli()),
		ProductModel:     p.Model,
		ProductBrand:     p.Brand,
		FrameColor:       p.FrameColor,
		FabricColor:      p.FabricColor,
		Motor:            p.Motor,
		WindSensor:       boolPtr(false),
		PurchaseDate:     timePtr(now),
	}
}

// Analysis is the result of one extraction with the details of how it was
// obtained.
type Analysis struct {
	Record    Record `json:"record"`
	Template  string `json:"template"`
	Fallback  bool   `json:"fallback"`
	Pages     int    `json:"pages"`
	Fragments int    `json:"fragments"`
	Error     string `json:"error,omitempty"`
}

// Engine turns invoice documents into records. It holds no per-call state and
// is safe for concurrent use.
type Engine struct {
	loader          layout.Loader
	registry        Registry
	clock           TimeSource
	placeholders    Placeholders
	retailerDomains []string
	maxTextLength   int
	maxFragments    int
	logger          *slog.Logger
}

type Option func(*Engine)

func WithRegistry(r Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

func WithTimeSource(ts TimeSource) Option {
	return func(e *Engine) {
		if ts != nil {
			e.clock = ts
		}
	}
}

func WithPlaceholders(p Placeholders) Option {
	return func(e *Engine) {
		e.placeholders = p
	}
}

// WithRetailerDomains sets the e-mail domains ignored when looking for the
// customer's address.
func WithRetailerDomains(domains ...string) Option {
	return func(e *Engine) {
		e.retailerDomains = domains
	}
}

func WithMaxTextLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTextLength = n
		}
	}
}

func WithMaxFragments(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxFragments = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine reading documents with loader.
func NewEngine(loader layout.Loader, opts ...Option) *Engine {
	e := &Engine{
		loader:          loader,
		registry:        DefaultRegistry(),
		clock:           systemClock{},
		placeholders:    DefaultPlaceholders(),
		retailerDomains: []string{"ici-store.com"},
		maxTextLength:   DefaultMaxTextLength,
		maxFragments:    DefaultMaxFragments,
		logger:          slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract returns the record found in data. It never fails: unreadable
// documents and documents without a customer name yield the fallback record.
func (e *Engine) Extract(ctx context.Context, data []byte) Record {
	return e.Analyze(ctx, data).Record
}

// Analyze runs the same pipeline as Extract and reports how the record was
// obtained.
func (e *Engine) Analyze(ctx context.Context, data []byte) Analysis {
	now := e.clock.Now()

	doc, err := e.loader.Load(ctx, data)
	if err != nil {
		e.logger.Error("Failed to load invoice", "size", len(data), "error", err)
		return Analysis{
			Record:   e.placeholders.Record(now),
			Template: Generic.Name,
			Fallback: true,
			Error:    err.Error(),
		}
	}
	return e.analyze(ctx, doc, now)
}

// AnalyzeDocument runs detection and extraction on an already loaded document.
func (e *Engine) AnalyzeDocument(ctx context.Context, doc *layout.Document) Analysis {
	return e.analyze(ctx, doc, e.clock.Now())
}

func (e *Engine) analyze(ctx context.Context, doc *layout.Document, now time.Time) Analysis {
	fragments := doc.Fragments()
	if len(fragments) > e.maxFragments {
		fragments = fragments[:e.maxFragments]
	}

	a := Analysis{
		Template:  Generic.Name,
		Fragments: len(fragments),
	}
	if doc != nil {
		a.Pages = len(doc.Pages)
	}

	if err := ctx.Err(); err != nil {
		e.logger.Warn("Extraction cancelled", "error", err)
		a.Record = e.placeholders.Record(now)
		a.Fallback = true
		a.Error = err.Error()
		return a
	}

	src := &Source{
		Fragments:       fragments,
		Text:            truncate(doc.Text(), e.maxTextLength),
		Now:             now,
		RetailerDomains: e.retailerDomains,
	}

	tpl, ok := e.registry.Detect(src.Text)
	if !ok {
		tpl = Generic
	}
	a.Template = tpl.Name

	rec := tpl.extract(src)
	if !rec.HasName() {
		e.logger.Warn("No customer found, using fallback record",
			"template", tpl.Name,
			"fragments", len(fragments),
		)
		a.Record = e.placeholders.Record(now)
		a.Fallback = true
		return a
	}

	e.logger.Debug("Invoice extracted", "template", tpl.Name, "fragments", len(fragments))
	a.Record = rec
	return a
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
