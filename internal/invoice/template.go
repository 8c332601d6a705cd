package invoice

import (
	"strings"
	"time"

	"github.com/savstores/sav-invoices/internal/layout"
)

// Source is the input shared by all extractors of one extraction call.
type Source struct {
	Fragments []layout.Fragment
	Text      string
	// Now is the extraction time, used when no purchase date is printed.
	Now time.Time
	// RetailerDomains lists e-mail domains that belong to the seller.
	RetailerDomains []string
}

// ExtractFunc recovers one family of fields. Implementations must not modify
// the Source.
type ExtractFunc func(src *Source) Record

// Template bundles the detection marker and the extractors of one invoice layout
type Template struct {
	Name    string
	Detect  func(text string) bool
	Client  ExtractFunc
	Product ExtractFunc
	Price   ExtractFunc
	Date    ExtractFunc
}

// extract runs the four extractors and merges their results.
func (t Template) extract(src *Source) Record {
	var rec Record
	for _, fn := range []ExtractFunc{t.Client, t.Product, t.Price, t.Date} {
		if fn != nil {
			rec.Fill(fn(src))
		}
	}
	return rec
}

// Generic is used when no registered template matches.
var Generic = Template{
	Name:    "generic",
	Detect:  func(string) bool { return true },
	Client:  ExtractClient,
	Product: ExtractProduct,
	Price:   ExtractPrice,
	Date:    ExtractDate,
}

// Registry is an ordered list of templates. Earlier templates win when
// several markers appear in the same document.
type Registry []Template

// Detect returns the first template whose markers appear in text.
func (r Registry) Detect(text string) (Template, bool) {
	for _, t := range r {
		if t.Detect != nil && t.Detect(text) {
			return t, true
		}
	}
	return Template{}, false
}

// containsAny builds a case-sensitive marker predicate.
func containsAny(markers ...string) func(string) bool {
	return func(text string) bool {
		for _, m := range markers {
			if strings.Contains(text, m) {
				return true
			}
		}
		return false
	}
}

// DefaultRegistry returns the known retailer layouts.
func DefaultRegistry() Registry {
	return Registry{
		{
			Name:    "ICI-Store",
			Detect:  containsAny("STORBOX", "Rentollage de store"),
			Client:  ExtractClient,
			Product: ExtractProduct,
			Price:   ExtractPrice,
			Date:    ExtractDate,
		},
		{
			Name:    "Leroy Merlin",
			Detect:  containsAny("LEROY MERLIN", "LM FRANCE"),
			Client:  extractLeroyMerlinClient,
			Product: extractLeroyMerlinProduct,
			Price:   extractLeroyMerlinPrice,
			Date:    extractLeroyMerlinDate,
		},
		{
			Name:    "Castorama",
			Detect:  containsAny("CASTORAMA", "CASTO"),
			Client:  ExtractClient,
			Product: ExtractProduct,
			Price:   ExtractPrice,
			Date:    ExtractDate,
		},
	}
}
