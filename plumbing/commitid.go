// Package plumbing holds the low-level identifiers shared by every other
// package in this module: dense commit ordinals, dense file ids, and the
// opaque commit id the repository accessor hands back for each commit.
package plumbing

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
)

// maxCommitIDSize bounds CommitID so it can be stored inline instead of as
// a heap-allocated slice. 32 bytes covers SHA-1 (20) and SHA-256 (32)
// commit ids; accessors backed by something else just use fewer bytes.
const maxCommitIDSize = 32

// CommitID is an opaque, comparable identifier for a commit as reported by
// a repository.Accessor. It purposefully carries no assumptions about the
// hash function in use.
type CommitID struct {
	data [maxCommitIDSize]byte
	size uint8
}

// ZeroCommitID is the zero value of CommitID; IsZero reports true for it.
var ZeroCommitID CommitID

// NewCommitID wraps raw commit-id bytes. It panics if b is longer than the
// module supports (32 bytes); callers control what their accessor emits.
func NewCommitID(b []byte) CommitID {
	if len(b) > maxCommitIDSize {
		panic(fmt.Sprintf("plumbing: commit id of %d bytes exceeds the %d-byte limit", len(b), maxCommitIDSize))
	}
	var id CommitID
	copy(id.data[:], b)
	id.size = uint8(len(b))
	return id
}

// CommitIDFromHex decodes a hex string into a CommitID.
func CommitIDFromHex(s string) (CommitID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ZeroCommitID, fmt.Errorf("plumbing: decode commit id %q: %w", s, err)
	}
	return NewCommitID(b), nil
}

// Bytes returns the raw identifier bytes.
func (id CommitID) Bytes() []byte {
	return id.data[:id.size]
}

// String returns the hexadecimal representation of the identifier.
func (id CommitID) String() string {
	return hex.EncodeToString(id.Bytes())
}

// IsZero reports whether id is the zero-value CommitID.
func (id CommitID) IsZero() bool {
	return id.size == 0 || bytes.Equal(id.Bytes(), make([]byte, id.size))
}

// Compare orders two CommitIDs by their byte representation.
func (id CommitID) Compare(other CommitID) int {
	return bytes.Compare(id.Bytes(), other.Bytes())
}

// Equal reports whether id and other carry the same bytes.
func (id CommitID) Equal(other CommitID) bool {
	return bytes.Equal(id.Bytes(), other.Bytes())
}

// WriteTo appends the length-prefixed identifier to w (a single byte
// length prefix is enough given maxCommitIDSize).
func (id CommitID) WriteTo(w *bytes.Buffer) {
	w.WriteByte(id.size)
	w.Write(id.Bytes())
}

// ReadCommitID reads back a value written by WriteTo.
func ReadCommitID(r *bytes.Reader) (CommitID, error) {
	size, err := r.ReadByte()
	if err != nil {
		return ZeroCommitID, fmt.Errorf("plumbing: read commit id size: %w", err)
	}
	if int(size) > maxCommitIDSize {
		return ZeroCommitID, fmt.Errorf("plumbing: commit id size %d exceeds limit", size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return ZeroCommitID, fmt.Errorf("plumbing: read commit id bytes: %w", err)
	}
	return NewCommitID(buf), nil
}
