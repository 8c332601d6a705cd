package layout

import "strings"

// Fragment is one run of text on a page with its position.
//
// Coordinates are PDF user space: the origin is the bottom-left corner of the
// page and Y grows upward, so a fragment "below" another has a smaller Y.
type Fragment struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Page is one page of a document in reading order
type Page struct {
	Number    int        `json:"number"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	Fragments []Fragment `json:"fragments"`
}

// Document is the output of a Loader
type Document struct {
	Pages []Page `json:"pages"`
}

// Fragments flattens all pages into one sequence, page after page.
func (d *Document) Fragments() []Fragment {
	if d == nil {
		return nil
	}
	n := 0
	for _, p := range d.Pages {
		n += len(p.Fragments)
	}
	out := make([]Fragment, 0, n)
	for _, p := range d.Pages {
		out = append(out, p.Fragments...)
	}
	return out
}

// Text joins the fragments of each page with a space and terminates every
// page with a space.
func (d *Document) Text() string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range d.Pages {
		for i, f := range p.Fragments {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(f.Text)
		}
		b.WriteByte(' ')
	}
	return b.String()
}
