// Package bitset wraps github.com/RoaringBitmap/roaring/v2 with the
// specific set-algebra operations spec §4.1 names: sorted-by-cardinality
// N-way intersection with short-circuiting, union, membership, iteration
// and bit set/clear, plus the (de)serialization hooks the persisted index
// format needs.
package bitset

import (
	"bytes"
	"io"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Bitmap is a compressed set of uint32 (spec's CommitOrdinal/FileID
// values fit comfortably).
type Bitmap struct {
	r *roaring.Bitmap
}

// New returns an empty bitmap.
func New() *Bitmap {
	return &Bitmap{r: roaring.New()}
}

// Of returns a bitmap containing exactly the given values.
func Of(values ...uint32) *Bitmap {
	return &Bitmap{r: roaring.BitmapOf(values...)}
}

// Set adds x to the bitmap.
func (b *Bitmap) Set(x uint32) {
	b.r.Add(x)
}

// Clear removes x from the bitmap.
func (b *Bitmap) Clear(x uint32) {
	b.r.Remove(x)
}

// Contains reports whether x is a member of the bitmap.
func (b *Bitmap) Contains(x uint32) bool {
	return b.r.Contains(x)
}

// IsEmpty reports whether the bitmap has no members.
func (b *Bitmap) IsEmpty() bool {
	return b.r.IsEmpty()
}

// Cardinality returns the number of members.
func (b *Bitmap) Cardinality() uint64 {
	return b.r.GetCardinality()
}

// Min returns the smallest member. It panics if the bitmap is empty.
func (b *Bitmap) Min() uint32 {
	return b.r.Minimum()
}

// Max returns the largest member. It panics if the bitmap is empty.
func (b *Bitmap) Max() uint32 {
	return b.r.Maximum()
}

// ToSlice returns the sorted members as a plain slice.
func (b *Bitmap) ToSlice() []uint32 {
	return b.r.ToArray()
}

// Clone returns an independent copy of b.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{r: b.r.Clone()}
}

// Iterate calls fn for every member in ascending order, stopping early if
// fn returns false.
func (b *Bitmap) Iterate(fn func(x uint32) bool) {
	it := b.r.Iterator()
	for it.HasNext() {
		if !fn(it.Next()) {
			return
		}
	}
}

// Union returns the union of all given bitmaps (nil/empty input yields
// an empty bitmap).
func Union(bitmaps ...*Bitmap) *Bitmap {
	if len(bitmaps) == 0 {
		return New()
	}
	rs := make([]*roaring.Bitmap, len(bitmaps))
	for i, b := range bitmaps {
		rs[i] = b.r
	}
	return &Bitmap{r: roaring.FastOr(rs...)}
}

// Intersect computes the intersection of all given bitmaps. Per spec
// §4.1, inputs are sorted ascending by cardinality first and folded left,
// short-circuiting as soon as the running intersection is empty — an
// empty-cardinality input anywhere makes the whole intersection empty
// without touching the rest.
func Intersect(bitmaps ...*Bitmap) *Bitmap {
	if len(bitmaps) == 0 {
		return New()
	}
	sorted := make([]*Bitmap, len(bitmaps))
	copy(sorted, bitmaps)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Cardinality() < sorted[j].Cardinality()
	})

	acc := sorted[0].Clone()
	for _, b := range sorted[1:] {
		if acc.IsEmpty() {
			break
		}
		acc.r.And(b.r)
	}
	return acc
}

// WriteTo appends a length-prefixed serialized form of b to w, for use by
// the persisted index's length-prefixed sections (spec §4.7/§6).
func (b *Bitmap) WriteTo(w *bytes.Buffer) error {
	payload, err := b.r.ToBytes()
	if err != nil {
		return err
	}
	writeUint32(w, uint32(len(payload)))
	w.Write(payload)
	return nil
}

// ReadBitmap reads back a value written by WriteTo.
func ReadBitmap(r *bytes.Reader) (*Bitmap, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	rb := roaring.New()
	if _, err := rb.FromBuffer(payload); err != nil {
		return nil, err
	}
	return &Bitmap{r: rb}, nil
}

func writeUint32(w *bytes.Buffer, v uint32) {
	w.WriteByte(byte(v))
	w.WriteByte(byte(v >> 8))
	w.WriteByte(byte(v >> 16))
	w.WriteByte(byte(v >> 24))
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}
