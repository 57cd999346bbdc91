package importer

import (
	"fmt"
	"strconv"
	"strings"
)

// FreeSize is the size name for single-size products
const FreeSize = "Free Size"

// SizeVariant is one size and its stock, derived from the compact row encoding
type SizeVariant struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

// ExpandSizes turns a size list ("S,M,L" or "Free Size") and a stock string
// ("S:5,M:10,L:0" or "15") into ordered variants. Sizes missing from the stock
// string, and pairs that do not parse, get zero stock. The only error is a size
// declared twice: unlike the rest of the parsing this is not tolerated, since
// both variants would share one variant SKU.
func ExpandSizes(sizes, stockBySize string) ([]SizeVariant, error) {
	sizes = strings.TrimSpace(sizes)

	if sizes == FreeSize || !strings.Contains(sizes, ",") {
		name := sizes
		if name == "" {
			name = FreeSize
		}
		return []SizeVariant{{Size: name, Stock: parseSingleStock(stockBySize)}}, nil
	}

	names := splitList(sizes)
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("size %q is declared more than once", name)
		}
		seen[key] = true
	}

	lookup := parseStockPairs(stockBySize)

	variants := make([]SizeVariant, 0, len(names))
	for _, name := range names {
		variants = append(variants, SizeVariant{Size: name, Stock: lookup.get(name)})
	}
	return variants, nil
}

// TotalStock sums the stock of all variants
func TotalStock(variants []SizeVariant) int {
	total := 0
	for _, v := range variants {
		total += v.Stock
	}
	return total
}

type stockLookup struct {
	exact  map[string]int
	folded map[string]int
}

func (l stockLookup) get(size string) int {
	if qty, ok := l.exact[size]; ok {
		return qty
	}
	return l.folded[strings.ToLower(size)]
}

func parseStockPairs(s string) stockLookup {
	l := stockLookup{exact: map[string]int{}, folded: map[string]int{}}
	for _, pair := range strings.Split(s, ",") {
		size, qty, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		size = strings.TrimSpace(size)
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if size == "" || err != nil {
			continue
		}
		if n < 0 {
			n = 0
		}
		l.exact[size] = n
		if _, dup := l.folded[strings.ToLower(size)]; !dup {
			l.folded[strings.ToLower(size)] = n
		}
	}
	return l
}

// parseSingleStock reads "15" or "Free Size:15" leniently: leading digits
// are used, anything unparsable is zero.
func parseSingleStock(s string) int {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = strings.TrimSpace(s[i+1:])
	}
	n := leadingInt(s)
	if n < 0 {
		return 0
	}
	return n
}

func leadingInt(s string) int {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
