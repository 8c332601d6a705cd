package invoice

import (
	"regexp"
	"strings"

	"github.com/savstores/sav-invoices/internal/layout"
)

const (
	civility  = `(?:(?:M\.|Mme|Mlle|Mr|Mrs|Monsieur|Madame)\s+)?`
	givenName = `\p{Lu}\p{Ll}+(?:[-'’]\p{Lu}?\p{Ll}+)*`
	surname   = `\p{Lu}[\p{Lu}'’]*\p{Lu}(?:[- ]\p{Lu}[\p{Lu}'’]*\p{Lu})*`

	// Label bounds for accented text, \b only knows ASCII letters.
	labelStart = `(?:^|[^\p{L}])`
	labelEnd   = `(?:[^\p{L}]|$)`
)

var (
	clientSection = section{
		start: regexp.MustCompile(`(?i)vendu\s+à|factur[ée]\s+à|\bclient\s*:|^\s*client\s*$|\bsold\s+to\b|\bbilled\s+to\b|\bcustomer\s*:`),
		next:  regexp.MustCompile(`(?i)mode\s+de\s+paiement|expédié\s+à|méthode\s+de\s+livraison|livraison|paiement|payment\s+method|shipped\s+to|ship\s+to`),
	}

	// "Jean DUPONT" then "DUPONT Jean"
	givenSurnameLine = regexp.MustCompile(`^` + civility + `(` + givenName + `)\s+(` + surname + `)$`)
	surnameGivenLine = regexp.MustCompile(`^` + civility + `(` + surname + `)\s+(` + givenName + `)$`)
	civilityPrefix   = regexp.MustCompile(`^` + civility)

	addressLine = regexp.MustCompile(`\d+\s+\p{L}+|\p{L}+,|\b\d{5}\b`)
	phoneLabel  = regexp.MustCompile(`(?i)` + labelStart + `(?:T\s*:\s*\d|(?:t[ée]l(?:[ée]phone)?|mobile|portable)` + labelEnd + `)`)
	emailAddr   = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneChars  = regexp.MustCompile(`[^\d+]`)

	sectionPhones = patterns{
		textPattern(`(?i)`+labelStart+`T\s*:\s*(\+?\d[\d .-]{5,}\d)`, 1),
		textPattern(`(?i)`+labelStart+`t[ée]l(?:[ée]phone)?\.?\s*:\s*(\+?\d[\d .-]{5,}\d)`, 1),
		textPattern(`(?i)`+labelStart+`(?:mobile|portable|phone)\s*:\s*(\+?\d[\d .-]{5,}\d)`, 1),
	}

	documentPhones = patterns{
		textPattern(`(?i)`+labelStart+`(?:T|t[ée]l(?:[ée]phone)?|mobile|portable)\s*:\s*(\d{10})\b`, 1),
		textPattern(`\b(0[1-9](?:[\s.-]?\d{2}){4})\b`, 1),
	}

	documentAddresses = []struct {
		re     *regexp.Regexp
		format string
	}{
		{
			re:     regexp.MustCompile(`(?i)(\d+(?:\s*(?:bis|ter))?,?\s+(?:rue|avenue|av\.|boulevard|bd|chemin|impasse|allée|place|route|lotissement|lieu-dit|quai|cours|résidence)\s+[\p{L}'’ -]+?)\s*,?\s*(\d{5})\s+(\p{L}[\p{L}'’-]*)`),
			format: "$1, $2 $3",
		},
		{
			re:     regexp.MustCompile(`(\d+\s+[\p{L}'’ -]+?),\s*(\d{5})\s+(\p{L}[\p{L}'’-]+)`),
			format: "$1, $2 $3",
		},
	}

	orderNumbers = patterns{
		textPattern(`(?i)commande\s*(?:n°|no\.?|#)?\s*:?\s*#?\s*(\d{3,})`, 1),
		textPattern(`(?i)n°\s*(?:de\s+)?commande\s*:?\s*(\d+)`, 1),
		textPattern(`(?i)\border\s*(?:#|number\s*:?|no\.?\s*:?)\s*#?\s*(\d+)`, 1),
		textPattern(`(?i)r[ée]f[ée]rence\s*:\s*(\d+)`, 1),
	}
)

// Words that look like names on invoices but never are.
var nameStopWords = map[string]bool{
	"TTC": true, "HT": true, "TVA": true, "EUR": true, "SAS": true, "SARL": true,
	"FR": true, "RAL": true, "ORC": true, "CSI": true, "SIRET": true, "IBAN": true,
	"Total": true, "Prix": true, "Montant": true, "Store": true, "Facture": true,
	"Date": true, "Commande": true, "Toile": true, "Moteur": true, "Blanc": true,
}

type namePattern struct {
	re          *regexp.Regexp
	first, last int
}

var documentNames = []namePattern{
	{re: regexp.MustCompile(`(?:M\.|Mme|Mlle|Monsieur|Madame)\s+(` + givenName + `)\s+(` + surname + `)`), first: 1, last: 2},
	{re: regexp.MustCompile(`(?i:nom)\s*:\s*(` + surname + `)\s+(?i:pr[ée]nom)\s*:\s*(` + givenName + `)`), first: 2, last: 1},
	{re: regexp.MustCompile(`(` + givenName + `)\s+(` + surname + `)\b`), first: 1, last: 2},
	{re: regexp.MustCompile(`(` + surname + `)\s+(` + givenName + `)\b`), first: 2, last: 1},
}

// ExtractClient recovers the customer identity. It reads the "sold to"
// section first and falls back to whole-document patterns when the section
// yields no name.
func ExtractClient(src *Source) Record {
	var rec Record

	items := clientSection.collect(src.Fragments)
	if len(items) > 0 {
		rec.FirstName, rec.LastName = sectionName(items)
		rec.Address = sectionAddress(items, rec.FirstName, true)
		rec.Phone = sectionPhone(items, sectionPhones)
		rec.Email = firstEmail(items, src.RetailerDomains)
	}

	if !rec.HasName() {
		rec.Fill(documentClient(src))
	}

	if v, ok := orderNumbers.find(src); ok {
		rec.OrderNumber = v
	}
	return rec
}

// sectionName applies the two name layouts to each line, then falls back to
// the first line of at least two words.
func sectionName(items []layout.Fragment) (first, last string) {
	for _, f := range items {
		text := strings.TrimSpace(f.Text)
		if m := givenSurnameLine.FindStringSubmatch(text); m != nil {
			return m[1], m[2]
		}
		if m := surnameGivenLine.FindStringSubmatch(text); m != nil {
			return m[2], m[1]
		}
	}

	for _, f := range items {
		words := strings.Fields(civilityPrefix.ReplaceAllString(strings.TrimSpace(f.Text), ""))
		if len(words) >= 2 {
			return words[0], strings.Join(words[1:], " ")
		}
	}
	return "", ""
}

// sectionAddress joins address-like lines. With stopAtGap it keeps only the
// first run of consecutive address lines.
func sectionAddress(items []layout.Fragment, firstName string, stopAtGap bool) string {
	var lines []string
	for _, f := range items {
		if strings.Contains(f.Text, "@") || phoneLabel.MatchString(f.Text) ||
			(firstName != "" && strings.Contains(f.Text, firstName)) {
			continue
		}
		if addressLine.MatchString(f.Text) {
			lines = append(lines, strings.TrimSpace(f.Text))
		} else if stopAtGap && len(lines) > 0 {
			break
		}
	}
	return strings.Join(lines, ", ")
}

func sectionPhone(items []layout.Fragment, table patterns) string {
	if v, ok := table.findLine(items); ok {
		return normalizePhone(v)
	}
	return ""
}

func normalizePhone(v string) string {
	return phoneChars.ReplaceAllString(v, "")
}

func firstEmail(items []layout.Fragment, retailerDomains []string) string {
	for _, f := range items {
		for _, email := range emailAddr.FindAllString(f.Text, -1) {
			if !isRetailerEmail(email, retailerDomains) {
				return email
			}
		}
	}
	return ""
}

func isRetailerEmail(email string, domains []string) bool {
	email = strings.ToLower(email)
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(d, "@"))
		if d != "" && (strings.HasSuffix(email, "@"+d) || strings.HasSuffix(email, "."+d)) {
			return true
		}
	}
	return false
}

// documentClient is the second-chance pass over the whole text, used when a
// layout has no recognisable customer header.
func documentClient(src *Source) Record {
	var rec Record

	for _, np := range documentNames {
		for _, m := range np.re.FindAllStringSubmatch(src.Text, -1) {
			first, last := m[np.first], m[np.last]
			if nameStopWords[first] || nameStopWords[last] {
				continue
			}
			rec.FirstName, rec.LastName = first, last
			break
		}
		if rec.HasName() {
			break
		}
	}

	for _, a := range documentAddresses {
		if m := a.re.FindStringSubmatchIndex(src.Text); m != nil {
			rec.Address = string(a.re.ExpandString(nil, a.format, src.Text, m))
			break
		}
	}

	if v, ok := documentPhones.find(src); ok {
		rec.Phone = normalizePhone(v)
	}

	for _, email := range emailAddr.FindAllString(src.Text, -1) {
		if !isRetailerEmail(email, src.RetailerDomains) {
			rec.Email = email
			break
		}
	}
	return rec
}
