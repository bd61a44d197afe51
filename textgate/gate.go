// Package textgate classifies a blob as indexable text or binary/invalid,
// per spec §4.3.
package textgate

import (
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// SniffWindow is the number of leading bytes inspected for a NUL byte
// when deciding whether a blob is binary (spec §4.3, K=8192).
const SniffWindow = 8192

// Classify decides whether blob should be indexed.
//
// If blob is valid UTF-8 and has no NUL byte in its first SniffWindow
// bytes, it is returned unchanged with ok=true.
//
// If blob contains invalid UTF-8 and ignoreUTF8Error is true, invalid
// sequences are replaced with the Unicode replacement character and the
// (possibly rewritten) blob is still indexed. If ignoreUTF8Error is
// false, or the blob looks binary (NUL byte in the sniff window)
// regardless of the flag, ok is false and blob should be skipped.
func Classify(blob []byte, ignoreUTF8Error bool) (out []byte, ok bool) {
	window := blob
	if len(window) > SniffWindow {
		window = window[:SniffWindow]
	}
	for _, b := range window {
		if b == 0 {
			return nil, false
		}
	}

	if utf8.Valid(blob) {
		return blob, true
	}
	if !ignoreUTF8Error {
		return nil, false
	}

	repaired, err := repairUTF8(blob)
	if err != nil {
		return nil, false
	}
	return repaired, true
}

// repairUTF8 substitutes ill-formed UTF-8 sequences with the replacement
// character, using golang.org/x/text's decoder/transform pipeline rather
// than a hand-rolled byte-repair loop. golang.org/x/text is already a
// direct dependency of the teacher (go-git), just exercised here for a
// new concern.
func repairUTF8(blob []byte) ([]byte, error) {
	out, _, err := transform.Bytes(runes.ReplaceIllFormed(), blob)
	if err != nil {
		return nil, err
	}
	return out, nil
}
