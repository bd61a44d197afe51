// Package fst wraps github.com/blevesearch/vellum to provide the ordered,
// immutable byte-key set spec §4.1 calls for: membership, iteration,
// prefix iteration, and evaluation against a regex-style automaton via
// vellum's own regexp automaton adapter.
package fst

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/blevesearch/vellum"
	vregexp "github.com/blevesearch/vellum/regexp"
)

// Set is an immutable ordered set of byte-string keys.
type Set struct {
	fst *vellum.FST
	raw []byte
	n   int
}

// Build constructs a Set from keys, which MUST already be sorted and
// duplicate-free (vellum.Builder requires strictly increasing insertion
// order). The associated value for every key is its index in keys; no
// component of this module needs anything richer than membership.
func Build(keys []string) (*Set, error) {
	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, fmt.Errorf("fst: new builder: %w", err)
	}
	for i, k := range keys {
		if err := builder.Insert([]byte(k), uint64(i)); err != nil {
			return nil, fmt.Errorf("fst: insert %q: %w", k, err)
		}
	}
	if err := builder.Close(); err != nil {
		return nil, fmt.Errorf("fst: close builder: %w", err)
	}

	raw := buf.Bytes()
	f, err := vellum.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("fst: load: %w", err)
	}
	return &Set{fst: f, raw: raw, n: len(keys)}, nil
}

// Contains reports whether key is a member of the set.
func (s *Set) Contains(key string) bool {
	_, found, err := s.fst.Get([]byte(key))
	return err == nil && found
}

// Len returns the number of keys the set was built from. vellum's FST
// doesn't expose key cardinality directly, so Set tracks it itself at
// Build time (Load restores a Set with n=0 since the count isn't part of
// the serialized form; callers that need it after a reload should keep
// it alongside the raw bytes).
func (s *Set) Len() int {
	return s.n
}

// Iterate calls fn for every key in the set in ascending order, stopping
// early if fn returns false.
func (s *Set) Iterate(fn func(key string) bool) error {
	it, err := s.fst.Iterator(nil, nil)
	if errors.Is(err, vellum.ErrIteratorDone) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fst: iterator: %w", err)
	}
	for err == nil {
		k, _ := it.Current()
		if !fn(string(k)) {
			return nil
		}
		err = it.Next()
	}
	if !errors.Is(err, vellum.ErrIteratorDone) {
		return fmt.Errorf("fst: iterate: %w", err)
	}
	return nil
}

// PrefixIterate calls fn for every key that starts with prefix, in
// ascending order, stopping early if fn returns false.
func (s *Set) PrefixIterate(prefix string, fn func(key string) bool) error {
	start := []byte(prefix)
	end := prefixUpperBound(start)
	it, err := s.fst.Iterator(start, end)
	if errors.Is(err, vellum.ErrIteratorDone) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fst: prefix iterator: %w", err)
	}
	for err == nil {
		k, _ := it.Current()
		if !fn(string(k)) {
			return nil
		}
		err = it.Next()
	}
	if !errors.Is(err, vellum.ErrIteratorDone) {
		return fmt.Errorf("fst: prefix iterate: %w", err)
	}
	return nil
}

// prefixUpperBound returns the exclusive end key for a prefix scan: the
// smallest key that is lexicographically greater than every key with the
// given prefix. A nil result means "no upper bound" (prefix is all 0xff).
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// SearchRegexp calls fn for every key accepted by the regex pattern, in
// ascending order, using vellum's regexp automaton adapter directly
// against the FST rather than enumerating every key — this is the
// "regex-style automaton" evaluation spec §4.1 asks for.
func (s *Set) SearchRegexp(pattern string, fn func(key string) bool) error {
	aut, err := vregexp.New(pattern)
	if err != nil {
		return fmt.Errorf("fst: compile regexp automaton %q: %w", pattern, err)
	}
	it, err := s.fst.Search(aut, nil, nil)
	if errors.Is(err, vellum.ErrIteratorDone) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fst: search: %w", err)
	}
	for err == nil {
		k, _ := it.Current()
		if !fn(string(k)) {
			return nil
		}
		err = it.Next()
	}
	if !errors.Is(err, vellum.ErrIteratorDone) {
		return fmt.Errorf("fst: search iterate: %w", err)
	}
	return nil
}

// Bytes returns the serialized FST, for embedding in the persisted index
// format (spec §4.7/§6 length-prefixed sections).
func (s *Set) Bytes() []byte {
	return s.raw
}

// Load restores a Set from bytes previously returned by Bytes.
func Load(raw []byte) (*Set, error) {
	f, err := vellum.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("fst: load: %w", err)
	}
	return &Set{fst: f, raw: raw}, nil
}
