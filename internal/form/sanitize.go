// internal/form/sanitize.go
//
// Field sanitizer.
//
// Every raw value typed into the contact form passes through Sanitize
// before it reaches a Snapshot.  The function trims surrounding whitespace,
// drops whole <script> blocks, and then removes any remaining angle
// brackets one by one.  Text between brackets survives, so "a <b> c"
// becomes "a b c".
package form

import (
	"regexp"
	"strings"
)

// scriptBlock matches an opening script tag through the first closing tag,
// case-insensitive and across newlines.
var scriptBlock = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// Sanitize returns raw with markup hazards removed.  It never fails.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)
	s = scriptBlock.ReplaceAllString(s, "")
	return angleBrackets.Replace(s)
}
