package search

import "errors"

// Sentinel errors for the query-level failure kinds spec §7 names.
// Callers use errors.Is against these.
var (
	// ErrInvalidQuery is returned for an empty or otherwise malformed query.
	ErrInvalidQuery = errors.New("search: invalid query")
	// ErrInvalidRegex is returned when a regex query fails to parse.
	ErrInvalidRegex = errors.New("search: invalid regex")
)
