package invoice

import "regexp"

// productPattern ties a reference pattern to the model pattern and brand
// label used once the reference is found.
type productPattern struct {
	reference pattern
	model     pattern
	brand     string
}

var (
	products = []productPattern{
		{
			reference: textPattern(`(?i)STORBOX\s+\d+`, 0),
			model:     textPattern(`(?i)Store\s+banne\s+Coffre\s+Intégral\s+sur\s+mesure`, 0),
			brand:     "STORBOX",
		},
		{
			reference: textPattern(`(?i)Rentollage\s+de\s+store\s+sur\s+mesure`, 0),
			model:     textPattern(`(?i)Rentollage\s+de\s+store\s+sur\s+mesure`, 0),
			brand:     "Store sur mesure",
		},
		{
			reference: textPattern(`(?i)Store\s+banne\s+[A-Za-z0-9]+`, 0),
			model:     linePattern(`(?i)Store\s+banne\s+[A-Za-z0-9]+\s+[^,]+`, 0),
			brand:     "Store banne",
		},
		{
			reference: textPattern(`(?i)Référence\s*:\s*([A-Za-z0-9-]+)`, 1),
			model:     linePattern(`(?i)Désignation\s*:\s*([^,]+)`, 1),
			brand:     "Générique",
		},
	}

	frameColors = patterns{
		linePattern(`(?i)Couleur\s+d['’]armature\s*:\s*([^,]+)`, 1),
		linePattern(`(?i)Couleur\s+(?:de\s+l['’])?armature\s*:\s*([^,]+)`, 1),
		linePattern(`(?i)Armature\s*:\s*([^,]+)`, 1),
		textPattern(`(?i)Blanc\s+RAL\s+9016`, 0),
	}

	fabricColors = patterns{
		linePattern(`(?i)Couleur\s+de\s+(?:la\s+)?toile\s*:\s*([^,]+)`, 1),
		linePattern(`(?i)Toile\s*:\s*([^,]+)`, 1),
		linePattern(`(?i)Toile\s+Dickson\s+([^,]+)`, 1),
		textPattern(`(?i)Toile\s+Dickson\s+Carbone\s+ORC\s+U171`, 0),
		textPattern(`(?i)Toile\s+Dickson\s+Blanc/Gris\s+ORC\s+8907`, 0),
	}

	motors = patterns{
		linePattern(`(?i)Moteur\s*:\s*([^,]+)`, 1),
		linePattern(`(?i)Motorisation\s*:\s*([^,]+)`, 1),
		textPattern(`(?i)Moteur\s+Somfy\s+Sunea\s+50\s+CSI\s+iO\s+50/12\s+\(avec\s+manivelle\)`, 0),
	}

	windSensor = regexp.MustCompile(`(?i)capteur\s+(?:de\s+)?vent|an[ée]mom[èe]tre|anemometer|wind\s+sensor`)
)

// ExtractProduct recovers the product identity and its warranty attributes.
// The wind sensor flag is always set.
func ExtractProduct(src *Source) Record {
	var rec Record

	for _, p := range products {
		ref, ok := p.reference.capture(src.Text)
		if !ok {
			continue
		}
		rec.ProductReference = ref
		rec.ProductBrand = p.brand
		if model, ok := (patterns{p.model}).find(src); ok {
			rec.ProductModel = model
		}
		break
	}

	rec.FrameColor, _ = frameColors.find(src)
	rec.FabricColor, _ = fabricColors.find(src)
	rec.Motor, _ = motors.find(src)
	rec.WindSensor = hasWindSensor(src.Text)
	return rec
}

func hasWindSensor(text string) *bool {
	return boolPtr(windSensor.MatchString(text))
}
