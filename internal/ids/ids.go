// Package ids generates the identifiers used for every row in the store:
// time-ordered UUIDv7 for new rows, and a deterministic UUIDv5 variant for
// content-addressed ids. Every row id the stores allocate, including
// export/import re-keying, comes from New (v7); Deterministic (v5) has no
// caller inside this module and stays available for callers that want a
// stable id derived from content.
package ids

import (
	"github.com/google/uuid"
)

// New returns a time-ordered UUIDv7 identifier in canonical string form.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if crypto/rand is broken; fall back to a
		// random v4 rather than panic mid-transaction.
		return uuid.NewString()
	}
	return id.String()
}

// Namespace is the fixed namespace UUID used for deterministic v5 ids
// minted by this module. Changing it would change every content-addressed
// id already stored, so it is never derived from configuration.
var Namespace = uuid.MustParse("6f2c9b0e-2d2a-4f7f-9a8a-2c3a7e9c5f31")

// Deterministic returns a UUIDv5 derived from Namespace and input. Equal
// inputs always produce the same id, independent of insertion order.
func Deterministic(input string) string {
	return uuid.NewSHA1(Namespace, []byte(input)).String()
}

// Valid reports whether s parses as a canonical UUID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
