package layout

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DefaultLayoutName labels layouts saved without an explicit name.
const DefaultLayoutName = "Custom Layout"

// Slugify derives a layout id from a name: trimmed, lower case, with every
// run of inner whitespace replaced by a single "-". A blank name yields "".
func Slugify(name string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// GeneratedID returns the timestamp-derived id for an unnamed layout.
func GeneratedID(t time.Time) string {
	return "custom-" + strconv.FormatInt(t.UnixMilli(), 10)
}
