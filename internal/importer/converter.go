package importer

import "strings"

// maxSlugLen bounds the name part of per-dungeon file names.
const maxSlugLen = 64

// Slug converts a dungeon display name to the name part of a per-dungeon
// file. Whitespace and the separators - . / : become a single _, other
// punctuation is dropped, and leading or trailing _ are trimmed.
//
// Postcondition: result matches ^([a-z0-9]+(_[a-z0-9]+)*)?$, is at most
// maxSlugLen bytes, and Slug(Slug(s)) == Slug(s). Names with no ASCII
// letters or digits yield "".
func Slug(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.' || r == '/' || r == ':' || r == ' ' || r == '\t':
			pendingSep = true
		}
	}
	s := b.String()
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "_")
	}
	return s
}
