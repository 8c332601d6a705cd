package layout

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// PDFLoader implements Loader with the pure Go ledongthuc/pdf reader
type PDFLoader struct {
	cfg LoaderConfig
}

// NewPDFLoader creates a new PDFLoader instance
func NewPDFLoader(cfg LoaderConfig) *PDFLoader {
	return &PDFLoader{cfg: cfg.withDefaults()}
}

// Load reads the text layer of every page.
func (l *PDFLoader) Load(ctx context.Context, data []byte) (doc *Document, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	// The reader panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("reading pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	total := r.NumPage()
	if l.cfg.MaxPages > 0 && total > l.cfg.MaxPages {
		total = l.cfg.MaxPages
	}

	doc = &Document{Pages: make([]Page, 0, total)}
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("loading page %d: %w", i, err)
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		width, height := mediaBox(p)
		doc.Pages = append(doc.Pages, Page{
			Number:    i,
			Width:     width,
			Height:    height,
			Fragments: buildFragments(p.Content().Text, l.cfg),
		})
	}
	return doc, nil
}

// Close is a no-op
func (l *PDFLoader) Close() error {
	return nil
}

func mediaBox(p pdf.Page) (float64, float64) {
	box := p.V.Key("MediaBox")
	if box.Len() < 4 {
		return 0, 0
	}
	return box.Index(2).Float64() - box.Index(0).Float64(), box.Index(3).Float64() - box.Index(1).Float64()
}

type glyphRow struct {
	yMin, yMax float64
	glyphs     []pdf.Text
}

// groupRows buckets glyphs whose baselines are within the row tolerance and
// returns the rows top to bottom.
func groupRows(texts []pdf.Text, tolerance float64) []glyphRow {
	var rows []glyphRow
	for _, t := range texts {
		placed := false
		for i := range rows {
			if t.Y >= rows[i].yMin-tolerance && t.Y <= rows[i].yMax+tolerance {
				rows[i].glyphs = append(rows[i].glyphs, t)
				rows[i].yMin = min(rows[i].yMin, t.Y)
				rows[i].yMax = max(rows[i].yMax, t.Y)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, glyphRow{yMin: t.Y, yMax: t.Y, glyphs: []pdf.Text{t}})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].yMax > rows[j].yMax
	})
	return rows
}

// buildFragments merges glyphs into fragments, one per contiguous run of a row.
func buildFragments(texts []pdf.Text, cfg LoaderConfig) []Fragment {
	cfg = cfg.withDefaults()

	var out []Fragment
	for _, row := range groupRows(texts, cfg.RowTolerance) {
		glyphs := row.glyphs
		sort.SliceStable(glyphs, func(i, j int) bool {
			return glyphs[i].X < glyphs[j].X
		})

		var cur *Fragment
		var text strings.Builder
		flush := func() {
			if cur == nil {
				return
			}
			cur.Text = strings.TrimSpace(text.String())
			if cur.Text != "" {
				out = append(out, *cur)
			}
			cur = nil
			text.Reset()
		}

		for _, g := range glyphs {
			size := g.FontSize
			if size <= 0 {
				size = 1
			}
			w := g.W
			if w <= 0 {
				w = 0.5 * size * float64(utf8.RuneCountInString(g.S))
			}

			if cur != nil {
				gap := g.X - (cur.X + cur.Width)
				switch {
				case gap > cfg.ColumnGap*size:
					flush()
				case gap > cfg.WordGap*size && !strings.HasSuffix(text.String(), " "):
					text.WriteByte(' ')
				}
			}

			if cur == nil {
				cur = &Fragment{X: g.X, Y: g.Y, Height: size}
			}
			text.WriteString(g.S)
			cur.Width = max(cur.Width, g.X+w-cur.X)
			cur.Height = max(cur.Height, size)
		}
		flush()
	}
	return out
}
