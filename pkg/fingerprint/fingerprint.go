// Package fingerprint computes the canonical event fingerprints used by
// the deduplication gate. Fingerprints must be stable under whitespace
// and case variation so syndicated near-duplicates of the same story
// collapse onto one hash. The engine itself treats the resulting strings
// as opaque; only producers call into this package.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// dateBucketLayout buckets publication timestamps to the UTC day, so the
// same story republished hours apart still dedupes.
const dateBucketLayout = "2006-01-02"

// DedupHash returns the canonical fingerprint of an event: sha256 over
// normalized title, publisher, and the UTC day bucket of publishedAt.
func DedupHash(title, publisher string, publishedAt time.Time) string {
	payload := Normalize(title) + "\x1f" + Normalize(publisher) + "\x1f" +
		publishedAt.UTC().Format(dateBucketLayout)
	return hash(payload)
}

// ContentHash returns the fallback fingerprint over the full text of an
// event, for items whose title/publisher metadata is unreliable.
func ContentHash(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return hash(Normalize(text))
}

// Normalize produces the canonical form of a text fragment: NFKC
// normalization, lower-casing, and whitespace runs collapsed to single
// spaces. Exported so producers can pre-normalize before comparison.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

func hash(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return "sha256:" + hex.EncodeToString(sum[:])
}
