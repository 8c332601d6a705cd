package invoice

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/savstores/sav-invoices/internal/layout"
)

// keywordWindow is the vertical distance within which a fragment counts as
// next to a date keyword.
const keywordWindow = 20.0

var (
	// Matched against folded text: lower case, accents removed.
	namedDates = []*regexp.Regexp{
		regexp.MustCompile(`date\s+de\s+commande\s*:\s*(\d{1,2})(?:er)?\s*([a-z]+)\.?\s*(\d{4})`),
		regexp.MustCompile(`date\s+de\s+facture\s*:\s*(\d{1,2})(?:er)?\s*([a-z]+)\.?\s*(\d{4})`),
		regexp.MustCompile(`(?:order|invoice)\s+date\s*:\s*(\d{1,2})\s*([a-z]+)\.?\s*(\d{4})`),
		regexp.MustCompile(`date\s*:\s*(\d{1,2})(?:er)?\s*([a-z]+)\.?\s*(\d{4})`),
	}

	numericDate = regexp.MustCompile(`(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})`)

	dateKeywords = []string{"date", "commande", "facture", "achat", "livraison"}

	months = map[string]time.Month{
		"janv": time.January, "janvier": time.January, "jan": time.January, "january": time.January,
		"fevr": time.February, "fev": time.February, "fevrier": time.February, "feb": time.February, "february": time.February,
		"mars": time.March, "mar": time.March, "march": time.March,
		"avr": time.April, "avril": time.April, "apr": time.April, "april": time.April,
		"mai": time.May, "may": time.May,
		"juin": time.June, "jun": time.June, "june": time.June,
		"juil": time.July, "juillet": time.July, "jul": time.July, "july": time.July,
		"aout": time.August, "aug": time.August, "august": time.August,
		"sept": time.September, "sep": time.September, "septembre": time.September, "september": time.September,
		"oct": time.October, "octobre": time.October, "october": time.October,
		"nov": time.November, "novembre": time.November, "november": time.November,
		"dec": time.December, "decembre": time.December, "december": time.December,
	}
)

// fold lower-cases s and strips combining marks, so "Févr." becomes "fevr.".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// ExtractDate recovers the purchase date. It never leaves the date empty:
// when no date is printed it returns the extraction time.
func ExtractDate(src *Source) Record {
	if d, ok := findNamedDate(src.Text); ok {
		return Record{PurchaseDate: timePtr(d)}
	}
	if d, ok := findKeywordDate(src.Fragments); ok {
		return Record{PurchaseDate: timePtr(d)}
	}
	if d, ok := findNumericDate(src.Text); ok {
		return Record{PurchaseDate: timePtr(d)}
	}
	return Record{PurchaseDate: timePtr(src.Now)}
}

func findNamedDate(text string) (time.Time, bool) {
	folded := fold(text)
	for _, re := range namedDates {
		for _, m := range re.FindAllStringSubmatch(folded, -1) {
			month, ok := months[m[2]]
			if !ok {
				continue
			}
			if d, ok := calendarDate(atoi(m[3]), month, atoi(m[1])); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// findKeywordDate looks for a D/M/YYYY date in fragments carrying a date
// keyword, then in the fragments vertically nearest to one.
func findKeywordDate(fragments []layout.Fragment) (time.Time, bool) {
	folded := make([]string, len(fragments))
	for i, f := range fragments {
		folded[i] = fold(f.Text)
	}

	for _, kw := range dateKeywords {
		var anchors []int
		for i, text := range folded {
			if strings.Contains(text, kw) {
				anchors = append(anchors, i)
			}
		}

		for _, i := range anchors {
			if d, ok := findNumericDate(fragments[i].Text); ok {
				return d, true
			}
		}

		for _, i := range anchors {
			var near []int
			for j, f := range fragments {
				if j != i && math.Abs(f.Y-fragments[i].Y) < keywordWindow {
					near = append(near, j)
				}
			}
			// nearest first, reading order between equals
			sort.SliceStable(near, func(a, b int) bool {
				return math.Abs(fragments[near[a]].Y-fragments[i].Y) < math.Abs(fragments[near[b]].Y-fragments[i].Y)
			})
			for _, j := range near {
				if d, ok := findNumericDate(fragments[j].Text); ok {
					return d, true
				}
			}
		}
	}
	return time.Time{}, false
}

// findNumericDate returns the first valid D/M/YYYY date in s.
func findNumericDate(s string) (time.Time, bool) {
	for _, m := range numericDate.FindAllStringSubmatch(s, -1) {
		if d, ok := calendarDate(atoi(m[3]), time.Month(atoi(m[2])), atoi(m[1])); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// atoi parses a regexp digit group, which is always a valid number.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// calendarDate rejects dates time.Date would normalise, such as 31/02.
func calendarDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}
