package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NameKey clave de comparación de nombres: sin tildes, sin mayúsculas y con
// espacios colapsados. "  Café   CENTRAL " y "cafe central" comparten clave.
func NameKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)
	return strings.Join(strings.Fields(folded), " ")
}

// DisplayName recorta y colapsa espacios sin alterar mayúsculas ni tildes.
func DisplayName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
