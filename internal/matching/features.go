package matching

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"finderguard/internal/models"
)

var colorPattern = regexp.MustCompile(`(?i)\b(red|blue|green|black|white|yellow|orange|purple|pink|brown|gray|grey|silver|gold|beige|navy|maroon|teal|cyan|magenta)\b`)

var brandPattern = regexp.MustCompile(`(?i)\b(apple|iphone|samsung|galaxy|google|pixel|huawei|xiaomi|oppo|vivo|oneplus|sony|lg|nokia|motorola|dell|hp|lenovo|asus|acer|microsoft|surface|macbook|ipad|airpods|kindle|fitbit|garmin|rolex|casio|seiko|nike|adidas|puma|gucci|louis vuitton|chanel|prada|coach|fossil|rayban|oakley)\b`)

// minKeywordLength is the shortest word kept as a keyword is one rune longer.
const minKeywordLength = 3

// Features are the comparable attributes of an item.
type Features struct {
	Colors    map[string]struct{}
	Brand     string
	Keywords  map[string]struct{}
	Category  string
	CreatedAt time.Time
}

// ColorList returns the colour tokens in sorted order.
func (f Features) ColorList() []string {
	return sortedKeys(f.Colors)
}

// Extract derives features from the public fields of an item.
func Extract(item models.Item) Features {
	f := Features{
		Colors:    make(map[string]struct{}),
		Keywords:  ExtractKeywords(item.Description),
		Category:  strings.ToLower(strings.TrimSpace(item.Category)),
		CreatedAt: item.CreatedAt,
	}
	for _, c := range item.ColorTokens {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			f.Colors[c] = struct{}{}
		}
	}
	for _, c := range ExtractColors(item.Description) {
		f.Colors[c] = struct{}{}
	}
	f.Brand = strings.ToLower(strings.TrimSpace(item.BrandToken))
	if f.Brand == "" {
		f.Brand = ExtractBrand(item.Description)
	}
	return f
}

// ExtractColors returns the distinct colour names mentioned in text, lower-cased,
// in order of first appearance.
func ExtractColors(text string) []string {
	found := colorPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(found))
	colors := make([]string, 0, len(found))
	for _, c := range found {
		c = strings.ToLower(c)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		colors = append(colors, c)
	}
	return colors
}

// ExtractBrand returns the leftmost brand or model name in text, or "".
func ExtractBrand(text string) string {
	return strings.ToLower(brandPattern.FindString(text))
}

// ExtractKeywords returns the case-folded words of text longer than three characters.
func ExtractKeywords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		w = strings.TrimFunc(strings.ToLower(w), func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if utf8.RuneCountInString(w) > minKeywordLength {
			words[w] = struct{}{}
		}
	}
	return words
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
