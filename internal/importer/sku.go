package importer

import "strings"

// VariantSKU derives the SKU of one size of a product. Free Size keeps the
// base SKU; a colour adds the first three letters of its name.
//
// Two colours sharing a three-letter prefix collide (e.g. "Blue"/"Blush").
func VariantSKU(base, size, color string) string {
	sku := base
	if size != "" && size != FreeSize {
		sku += "-" + strings.ToUpper(size)
	}
	if color = strings.TrimSpace(color); color != "" {
		prefix := []rune(color)
		if len(prefix) > 3 {
			prefix = prefix[:3]
		}
		sku += "-" + strings.ToUpper(string(prefix))
	}
	return sku
}
