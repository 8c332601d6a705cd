package invoice

import (
	"regexp"
	"sort"
	"strings"

	"github.com/savstores/sav-invoices/internal/layout"
)

// pattern is one entry of an ordered lookup table. group selects the
// submatch to return: 0 is the whole match, -1 the first non-empty group.
// Line patterns are matched fragment by fragment, so the capture cannot run
// past the end of a visual line; the others are matched on the full text.
type pattern struct {
	re    *regexp.Regexp
	group int
	line  bool
}

func textPattern(expr string, group int) pattern {
	return pattern{re: regexp.MustCompile(expr), group: group}
}

func linePattern(expr string, group int) pattern {
	return pattern{re: regexp.MustCompile(expr), group: group, line: true}
}

// capture applies the pattern to s.
func (p pattern) capture(s string) (string, bool) {
	m := p.re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	if p.group < 0 {
		for _, g := range m[1:] {
			if g != "" {
				return strings.TrimSpace(g), true
			}
		}
		return "", false
	}
	v := strings.TrimSpace(m[p.group])
	return v, v != ""
}

type patterns []pattern

// find returns the capture of the first pattern that matches, in table order.
func (ps patterns) find(src *Source) (string, bool) {
	for _, p := range ps {
		if !p.line {
			if v, ok := p.capture(src.Text); ok {
				return v, true
			}
			continue
		}
		if v, ok := p.firstLine(src.Fragments); ok {
			return v, true
		}
	}
	return "", false
}

// findLine returns the capture from the first fragment any pattern matches.
func (ps patterns) findLine(fragments []layout.Fragment) (string, bool) {
	for _, f := range fragments {
		for _, p := range ps {
			if v, ok := p.capture(f.Text); ok {
				return v, true
			}
		}
	}
	return "", false
}

func (p pattern) firstLine(fragments []layout.Fragment) (string, bool) {
	for _, f := range fragments {
		if v, ok := p.capture(f.Text); ok {
			return v, true
		}
	}
	return "", false
}

// section locates the fragments laid out below a start header and above the
// next header.
type section struct {
	start *regexp.Regexp
	next  *regexp.Regexp
}

// collect returns the section's non-blank fragments sorted top to bottom.
// The next header is searched after the start header in reading order; when
// there is none the section runs to the bottom of the document.
func (s section) collect(fragments []layout.Fragment) []layout.Fragment {
	start := -1
	for i, f := range fragments {
		if s.start.MatchString(f.Text) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	startY := fragments[start].Y
	endY, bounded := 0.0, false
	for _, f := range fragments[start+1:] {
		if s.next.MatchString(f.Text) {
			endY, bounded = f.Y, true
			break
		}
	}

	var out []layout.Fragment
	for _, f := range fragments {
		if strings.TrimSpace(f.Text) == "" || s.start.MatchString(f.Text) {
			continue
		}
		if f.Y >= startY || (bounded && f.Y <= endY) {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Y > out[j].Y
	})
	return out
}
