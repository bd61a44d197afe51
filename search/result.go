package search

import (
	"github.com/kev0960/crep/bitset"
	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/tokenize"
)

// RawPerFileResult is a single file's raw search outcome (spec §4.9 step
// 4): the commits at which every query token was simultaneously present,
// and the tokens that produced that intersection. Files whose commit
// bitmap would be empty are never emitted.
type RawPerFileResult struct {
	FileID       plumbing.FileID
	CommitBitmap *bitset.Bitmap
	QueryTokens  []tokenize.Token
}

// Result bundles a search's raw per-file results with whether the
// deadline cut the scan short (spec §5, §7: "a cancelled query returns
// whatever hits were finalised before the deadline and marks the
// response as truncated").
type Result struct {
	Files     []RawPerFileResult
	Truncated bool
}
