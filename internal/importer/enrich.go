package importer

import (
	"math"
	"sort"
	"strings"
)

const (
	minDescriptionLen = 20
	maxSEOTitleLen    = 60
	minConfidence     = 0.6
)

// EnrichedRow is a row after heuristic enrichment
type EnrichedRow struct {
	ProductRow
	TagList      []string `json:"tags"`
	AIGenerated  bool     `json:"ai_generated"`
	AIConfidence float64  `json:"ai_confidence"`
	// Generated names the fields filled in by Enrich.
	Generated []string `json:"generated,omitempty"`
}

type categoryTemplate struct {
	prefix    string
	noun      string
	features  [2]string
	occasions [2]string
	tags      []string
}

var categoryTemplates = map[string]categoryTemplate{
	"sarees": {
		prefix:    "Elegant",
		noun:      "saree",
		features:  [2]string{"a graceful drape", "intricate border work"},
		occasions: [2]string{"weddings", "festive celebrations"},
		tags:      []string{"wedding", "festive", "party wear"},
	},
	"suits": {
		prefix:    "Stylish",
		noun:      "salwar suit",
		features:  [2]string{"a comfortable fit", "fine detailing"},
		occasions: [2]string{"festive gatherings", "family functions"},
		tags:      []string{"festive", "casual", "office wear"},
	},
	"kurtis": {
		prefix:    "Trendy",
		noun:      "kurti",
		features:  [2]string{"easy everyday comfort", "a contemporary silhouette"},
		occasions: [2]string{"casual outings", "office wear"},
		tags:      []string{"casual", "office wear", "daily wear"},
	},
	"lehengas": {
		prefix:    "Stunning",
		noun:      "lehenga",
		features:  [2]string{"a voluminous flare", "rich embellishments"},
		occasions: [2]string{"weddings", "sangeet nights"},
		tags:      []string{"wedding", "bridal", "party wear"},
	},
	"sets": {
		prefix:    "Coordinated",
		noun:      "ethnic set",
		features:  [2]string{"perfectly matched pieces", "effortless styling"},
		occasions: [2]string{"festive occasions", "get-togethers"},
		tags:      []string{"festive", "casual"},
	},
}

const defaultCategory = "suits"

// careFabrics keeps lookup order stable for substring matches.
var careFabrics = []string{
	"banarasi", "chanderi", "georgette", "chiffon", "velvet",
	"crepe", "rayon", "linen", "cotton", "silk",
}

var careInstructions = map[string]string{
	"silk":      "Dry clean only. Store wrapped in muslin away from direct sunlight. Iron on low heat.",
	"cotton":    "Machine wash cold with similar colours. Tumble dry low. Iron on medium heat.",
	"georgette": "Dry clean recommended. Hand wash gently in cold water if needed. Do not wring.",
	"chiffon":   "Hand wash gently in cold water. Do not wring or twist. Dry flat in shade.",
	"crepe":     "Dry clean recommended. Iron on low heat on the reverse side.",
	"rayon":     "Hand wash in cold water with mild detergent. Do not tumble dry. Iron on low heat.",
	"linen":     "Machine wash gentle in cold water. Line dry. Iron while slightly damp.",
	"velvet":    "Dry clean only. Steam to remove creases, do not iron directly.",
	"chanderi":  "Dry clean only. Store folded in a cotton bag.",
	"banarasi":  "Dry clean only. Refold periodically to protect the zari work.",
}

const genericCare = "Dry clean recommended. Follow the care label for best results."

var premiumFabrics = map[string]bool{
	"silk":     true,
	"velvet":   true,
	"chanderi": true,
	"banarasi": true,
}

// colorNames keeps lookup order stable for substring matches.
var colorNames = []string{
	"maroon", "mustard", "olive", "navy", "cream", "peach",
	"red", "pink", "yellow", "orange", "green", "blue",
	"black", "white", "gold", "purple",
}

var colorFamilies = map[string][]string{
	"red":     {"red", "warm tones"},
	"maroon":  {"red", "warm tones"},
	"pink":    {"pink", "pastel"},
	"peach":   {"pastel", "warm tones"},
	"yellow":  {"yellow", "bright"},
	"mustard": {"yellow", "earthy"},
	"orange":  {"orange", "bright"},
	"green":   {"green", "earthy"},
	"olive":   {"green", "earthy"},
	"blue":    {"blue", "cool tones"},
	"navy":    {"blue", "dark"},
	"black":   {"black", "dark"},
	"white":   {"white", "classic"},
	"cream":   {"white", "classic"},
	"gold":    {"gold", "festive"},
	"purple":  {"purple", "royal"},
}

var baseTags = []string{"indian wear", "ethnic", "women"}

// Enrich fills a missing description, care instructions, SEO title and tags
// from the row's category, fabric and colour. It has no hidden state: equal
// input gives equal output.
func Enrich(row ProductRow) EnrichedRow {
	out := EnrichedRow{ProductRow: row}
	missing := 0

	if len(strings.TrimSpace(row.Description)) <= minDescriptionLen {
		missing++
		out.Description = GenerateDescription(row)
		out.AIGenerated = true
		out.Generated = append(out.Generated, "description")
	}

	if row.CareInstructions == "" {
		missing++
		if row.Fabric != "" {
			out.CareInstructions = CareInstructions(row.Fabric)
			out.Generated = append(out.Generated, "care_instructions")
		}
	}

	if row.SEOTitle == "" {
		missing++
		out.SEOTitle = SEOTitle(row.Name, row.Category, row.Fabric)
		out.Generated = append(out.Generated, "seo_title")
	}

	if row.Tags == "" {
		missing++
		out.TagList = GenerateTags(row)
		out.Generated = append(out.Generated, "tags")
	} else {
		out.TagList = normalizeTags(splitList(row.Tags))
	}

	out.AIConfidence = Confidence(missing)
	return out
}

// Passthrough wraps a row without generating anything.
func Passthrough(row ProductRow) EnrichedRow {
	return EnrichedRow{
		ProductRow:   row,
		TagList:      normalizeTags(splitList(row.Tags)),
		AIConfidence: 1,
	}
}

// Confidence is 1 minus 0.1 per missing field, floored at 0.6.
func Confidence(missing int) float64 {
	return math.Max(minConfidence, float64(10-missing)/10)
}

// GenerateDescription builds a category-specific description.
func GenerateDescription(row ProductRow) string {
	tpl := lookupCategory(row.Category)

	var b strings.Builder
	b.WriteString(tpl.prefix)
	b.WriteString(" ")
	if row.Color != "" {
		b.WriteString(row.Color)
		b.WriteString(" ")
	}
	if row.Fabric != "" {
		b.WriteString(row.Fabric)
		b.WriteString(" ")
	}
	b.WriteString(tpl.noun)
	b.WriteString(" featuring ")
	b.WriteString(tpl.features[0])
	b.WriteString(" and ")
	b.WriteString(tpl.features[1])
	b.WriteString(". Perfect for ")
	b.WriteString(tpl.occasions[0])
	b.WriteString(" and ")
	b.WriteString(tpl.occasions[1])
	b.WriteString(".")

	if sizes := strings.TrimSpace(row.Sizes); sizes != "" && sizes != FreeSize {
		b.WriteString(" Available in sizes ")
		b.WriteString(strings.Join(splitList(sizes), ", "))
		b.WriteString(".")
	}

	return b.String()
}

// CareInstructions returns washing guidance for a fabric.
func CareInstructions(fabric string) string {
	key := strings.ToLower(strings.TrimSpace(fabric))
	if care, ok := careInstructions[key]; ok {
		return care
	}
	for _, name := range careFabrics {
		if strings.Contains(key, name) {
			return careInstructions[name]
		}
	}
	return genericCare
}

// SEOTitle builds a search title of at most 60 characters.
func SEOTitle(name, category, fabric string) string {
	title := name
	if category != "" && !strings.Contains(name, category) {
		title += " - " + category
	}
	if premiumFabrics[strings.ToLower(fabric)] && !strings.Contains(name, fabric) {
		title += " in " + fabric
	}
	title += " for Women"

	runes := []rune(title)
	if len(runes) > maxSEOTitleLen {
		title = string(runes[:maxSEOTitleLen-3]) + "..."
	}
	return title
}

// GenerateTags returns a sorted, de-duplicated tag set.
func GenerateTags(row ProductRow) []string {
	set := map[string]bool{}
	add := func(tags ...string) {
		for _, t := range tags {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				set[t] = true
			}
		}
	}

	add(row.Category, row.Subcategory)

	fabric := strings.ToLower(row.Fabric)
	add(fabric)
	if strings.Contains(fabric, "silk") {
		add("silk", "luxury")
	}
	if strings.Contains(fabric, "cotton") {
		add("cotton", "breathable")
	}

	color := strings.ToLower(strings.TrimSpace(row.Color))
	add(color)
	if family, ok := colorFamilies[color]; ok {
		add(family...)
	} else {
		for _, name := range colorNames {
			if color != "" && strings.Contains(color, name) {
				add(colorFamilies[name]...)
				break
			}
		}
	}

	if tpl, ok := categoryTemplates[strings.ToLower(strings.TrimSpace(row.Category))]; ok {
		add(tpl.tags...)
	}

	add(baseTags...)

	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func lookupCategory(category string) categoryTemplate {
	if tpl, ok := categoryTemplates[strings.ToLower(strings.TrimSpace(category))]; ok {
		return tpl
	}
	return categoryTemplates[defaultCategory]
}

func normalizeTags(tags []string) []string {
	set := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(t)
		if !set[t] {
			set[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
