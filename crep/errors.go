package crep

import (
	"errors"

	"github.com/kev0960/crep/index"
	"github.com/kev0960/crep/search"
)

// Sentinel errors for the query- and index-level failure kinds spec §7
// names, in go-git's own "var Err... = errors.New(...)" style. Most are
// thin aliases of a lower package's own sentinel so callers can
// errors.Is against either this package or the package that actually
// detected the condition.
var (
	// ErrInvalidQuery is returned for an empty or otherwise malformed query.
	ErrInvalidQuery = search.ErrInvalidQuery

	// ErrInvalidRegex is returned when a regex query fails to parse.
	ErrInvalidRegex = search.ErrInvalidRegex

	// ErrIndexFormatUnsupported is returned by Load for an unrecognized
	// magic or version.
	ErrIndexFormatUnsupported = index.ErrIndexFormatUnsupported

	// ErrIndexCorrupt is returned by Load for a well-formed header with a
	// malformed or truncated body.
	ErrIndexCorrupt = index.ErrIndexCorrupt

	// ErrIndexUnavailable is returned by Search when called against a nil
	// or not-yet-built Index.
	ErrIndexUnavailable = errors.New("crep: index unavailable")
)
