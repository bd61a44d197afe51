package index

import "errors"

// Sentinel errors for the conditions spec §7 says must fail a Load
// outright: ErrIndexFormatUnsupported (unrecognized magic/version) and
// ErrIndexCorrupt (well-formed header but malformed/truncated/overlong
// body). Callers use errors.Is against these.
var (
	ErrIndexFormatUnsupported = errors.New("index: unsupported format")
	ErrIndexCorrupt           = errors.New("index: corrupt")
)
