package layout

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
)

// FitzLoader implements Loader using MuPDF through go-fitz
type FitzLoader struct {
	cfg LoaderConfig
}

// NewFitzLoader creates a new FitzLoader instance
func NewFitzLoader(cfg LoaderConfig) *FitzLoader {
	return &FitzLoader{cfg: cfg.withDefaults()}
}

var (
	// MuPDF writes one absolutely positioned <p> per text line.
	fitzParagraph = regexp.MustCompile(`(?s)<p style="top:([\d.]+)pt;left:([\d.]+)pt;line-height:([\d.]+)pt">(.*?)</p>`)
	fitzFontSize  = regexp.MustCompile(`font-size:([\d.]+)pt`)
	fitzTag       = regexp.MustCompile(`<[^>]*>`)
)

// Load reads the structured text of every page.
func (l *FitzLoader) Load(ctx context.Context, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if l.cfg.MaxPages > 0 && total > l.cfg.MaxPages {
		total = l.cfg.MaxPages
	}

	out := &Document{Pages: make([]Page, 0, total)}
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("loading page %d: %w", i+1, err)
		}
		bounds, err := doc.Bound(i)
		if err != nil {
			return nil, fmt.Errorf("reading page %d bounds: %w", i+1, err)
		}
		markup, err := doc.HTML(i, false)
		if err != nil {
			return nil, fmt.Errorf("reading page %d text: %w", i+1, err)
		}
		height := float64(bounds.Dy())
		out.Pages = append(out.Pages, Page{
			Number:    i + 1,
			Width:     float64(bounds.Dx()),
			Height:    height,
			Fragments: parseFitzHTML(markup, height),
		})
	}
	return out, nil
}

// Close is a no-op, documents are closed after each Load
func (l *FitzLoader) Close() error {
	return nil
}

// parseFitzHTML turns MuPDF page HTML into fragments, flipping the top-based
// coordinates into PDF space with the page height.
func parseFitzHTML(markup string, pageHeight float64) []Fragment {
	var out []Fragment
	for _, m := range fitzParagraph.FindAllStringSubmatch(markup, -1) {
		text := strings.TrimSpace(html.UnescapeString(fitzTag.ReplaceAllString(m[4], "")))
		if text == "" {
			continue
		}
		top, _ := strconv.ParseFloat(m[1], 64)
		left, _ := strconv.ParseFloat(m[2], 64)
		lineHeight, _ := strconv.ParseFloat(m[3], 64)

		size := lineHeight
		if fm := fitzFontSize.FindStringSubmatch(m[4]); fm != nil {
			if v, err := strconv.ParseFloat(fm[1], 64); err == nil {
				size = v
			}
		}

		out = append(out, Fragment{
			Text:   text,
			X:      left,
			Y:      pageHeight - top - lineHeight,
			Width:  0.5 * size * float64(utf8.RuneCountInString(text)),
			Height: size,
		})
	}
	return out
}
