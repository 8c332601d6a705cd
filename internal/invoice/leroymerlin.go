package invoice

import (
	"regexp"
	"strings"
	"time"
)

var (
	lmClientSection = section{
		start: regexp.MustCompile(`(?i)client\s*:|factur[ée]\s+à\s*:`),
		next:  regexp.MustCompile(`(?i)livraison|paiement|articles|produits`),
	}
	lmArticlesSection = section{
		start: regexp.MustCompile(`(?i)articles|produits|désignation`),
		next:  regexp.MustCompile(`(?i)total|paiement|livraison`),
	}

	lmName = regexp.MustCompile(`(?:M\.|Mme)\s+(` + givenName + `)\s+(` + surname + `)`)

	lmPhones = patterns{
		textPattern(`(?i)`+labelStart+`t[ée]l(?:[ée]phone)?\.?\s*:\s*(\+?\d[\d .-]{5,}\d)`, 1),
		textPattern(`(?i)`+labelStart+`mobile\s*:\s*(\+?\d[\d .-]{5,}\d)`, 1),
	}

	lmReference = regexp.MustCompile(`(?i)Réf\s*:\s*([A-Za-z0-9]+)`)
	lmModel     = regexp.MustCompile(`(?i)Store\s+banne|Brise\s+soleil|Pergola|Parasol|Voile\s+d['’]ombrage`)
	lmColor     = regexp.MustCompile(`(?i)Couleur(?:\s+(?:de\s+l['’]|d['’]|de\s+la\s+)?(?:armature|toile))?\s*:\s*([^,]+)`)
	lmMotor     = regexp.MustCompile(`(?i)Motorisation\s*:\s*([^,]+)`)

	lmUnitPrices = patterns{
		textPattern(`(?i)Prix\s+unitaire\s*:\s*`+amount+`|`+amount+`\s*HT\b`, -1),
	}
	lmVATAmounts = patterns{
		textPattern(`(?i)TVA\s*:\s*`+amount+`|Montant\s+TVA\s*:\s*`+amount, -1),
	}
	lmShippingCosts = patterns{
		textPattern(`(?i)Livraison\s*:\s*`+amount+`|Frais\s+de\s+livraison\s*:\s*`+amount, -1),
	}
	lmTotals = patterns{
		textPattern(`(?i)Total\s+TTC\s*:\s*`+amount+`|Total\s*:\s*`+amount, -1),
	}

	lmOrderDate = regexp.MustCompile(`(?i)Date\s+de\s+commande\s*:\s*(\d{2})/(\d{2})/(\d{4})`)
)

// extractLeroyMerlinClient reads the "Client :" block. The generic extractor
// fills whatever it leaves empty when no full name is found.
func extractLeroyMerlinClient(src *Source) Record {
	var rec Record

	items := lmClientSection.collect(src.Fragments)
	for _, f := range items {
		if m := lmName.FindStringSubmatch(f.Text); m != nil {
			rec.FirstName, rec.LastName = m[1], m[2]
			break
		}
	}
	if len(items) > 0 {
		rec.Address = sectionAddress(items, rec.FirstName, false)
		rec.Phone = sectionPhone(items, lmPhones)
		rec.Email = firstEmail(items, nil)
	}

	if rec.FirstName == "" || rec.LastName == "" {
		rec.Fill(ExtractClient(src))
	}
	if v, ok := orderNumbers.find(src); ok {
		rec.OrderNumber = v
	}
	return rec
}

func extractLeroyMerlinProduct(src *Source) Record {
	var rec Record

	for _, f := range lmArticlesSection.collect(src.Fragments) {
		if rec.ProductReference == "" {
			if m := lmReference.FindStringSubmatch(f.Text); m != nil {
				rec.ProductReference = m[1]
			}
		}
		if rec.ProductModel == "" {
			if m := lmModel.FindString(f.Text); m != "" {
				rec.ProductModel = m
				rec.ProductBrand = "Leroy Merlin"
			}
		}
		if m := lmColor.FindStringSubmatch(f.Text); m != nil {
			color := strings.TrimSpace(m[1])
			if strings.Contains(strings.ToLower(f.Text), "toile") {
				fillString(&rec.FabricColor, color)
			} else {
				fillString(&rec.FrameColor, color)
			}
		}
		if m := lmMotor.FindStringSubmatch(f.Text); m != nil {
			fillString(&rec.Motor, strings.TrimSpace(m[1]))
		}
	}

	if rec.ProductReference == "" || rec.ProductModel == "" {
		rec.Fill(ExtractProduct(src))
	}
	rec.WindSensor = hasWindSensor(src.Text)
	return rec
}

func extractLeroyMerlinPrice(src *Source) Record {
	rec := Record{
		UnitPrice: findAmount(src, lmUnitPrices),
		VAT:       findAmount(src, lmVATAmounts),
		Shipping:  findAmount(src, lmShippingCosts),
		Total:     findAmount(src, lmTotals),
	}
	if rec.UnitPrice == nil && rec.Total == nil {
		rec.Fill(ExtractPrice(src))
	}
	return rec
}

func extractLeroyMerlinDate(src *Source) Record {
	for _, m := range lmOrderDate.FindAllStringSubmatch(src.Text, -1) {
		day, month, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if d, ok := calendarDate(year, time.Month(month), day); ok {
			return Record{PurchaseDate: timePtr(d)}
		}
	}
	return ExtractDate(src)
}
