// Package slug derives safe, stable file names from image names, which
// arrive from LIF metadata with arbitrary unicode, spaces and path
// separators.
package slug

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented characters and drops the combining
// marks, so "Sér1é" slugs to "ser1e" instead of losing letters.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

const maxSlugLen = 50

// Make converts an image name into a lowercase dash-separated slug.
// Everything that is not a letter or digit collapses into a single
// dash; an empty result falls back to "image".
func Make(name string) string {
	s, _, err := transform.String(stripMarks, name)
	if err != nil {
		s = name
	}
	s = strings.ToLower(s)

	var result strings.Builder
	lastWasDash := false
	length := 0

	for _, r := range s {
		if length >= maxSlugLen {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			lastWasDash = false
			length++
		} else if !lastWasDash {
			result.WriteRune('-')
			lastWasDash = true
			length++
		}
	}

	out := strings.Trim(result.String(), "-")
	if out == "" {
		return "image"
	}
	return out
}

// WithHash appends a short content hash of key to the slug, keeping
// names readable while images with equal names in different folders
// stay distinct.
func WithHash(name, key string) string {
	sum := sha1.Sum([]byte(key))
	return Make(name) + "-" + hex.EncodeToString(sum[:])[:6]
}
