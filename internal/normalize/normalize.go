// Package normalize implements the case-normalization rule used as the
// dedup key for entity and relation names: NFKC fold, lowercase, trim.
// Grounded on the NFKC/width-fold pipeline used elsewhere in the
// retrieval pack for multilingual text normalization.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Name applies NFKC normalization, lowercases, and trims surrounding
// whitespace. It is the single identity function used at every write path
// that stores a name and every read path that looks one up — callers must
// never compare raw user-supplied casing directly.
func Name(s string) string {
	folded := norm.NFKC.String(s)
	return strings.TrimSpace(strings.ToLower(folded))
}

// RelationKey returns the composite key used to dedup relations within a
// project: normalized source, normalized target.
func RelationKey(source, target string) (string, string) {
	return Name(source), Name(target)
}
