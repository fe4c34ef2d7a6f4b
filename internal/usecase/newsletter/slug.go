package newsletter

import (
	"regexp"
	"strings"
)

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify приводит строку к виду для URL: нижний регистр, серии прочих символов
// заменяются одним дефисом, дефисы по краям отбрасываются.
func Slugify(s string) string {
	slug := slugRegex.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(slug, "-")
}
