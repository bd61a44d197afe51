package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/kev0960/crep/bitset"
	"github.com/kev0960/crep/document"
	"github.com/kev0960/crep/fst"
	"github.com/kev0960/crep/internal/trace"
	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/tokenize"
)

var magic = [8]byte{'C', 'R', 'E', 'P', 'I', 'D', 'X', 0}

const formatVersion uint32 = 1

const (
	flagTrigramMode    uint32 = 1 << 0
	flagUTF8Permissive uint32 = 1 << 1
)

// Save writes gi's binary representation to w: magic, version, flags, then
// length-prefixed sections in the order spec §4.7 lists them. All
// integers are little-endian (spec §6).
func Save(w io.Writer, gi *GitIndex) error {
	var buf bytes.Buffer
	buf.Write(magic[:])
	writeU32(&buf, formatVersion)

	var flags uint32
	if gi.Mode == tokenize.Trigram {
		flags |= flagTrigramMode
	}
	if gi.UTF8Permissive {
		flags |= flagUTF8Permissive
	}
	writeU32(&buf, flags)

	if err := writeCommitTable(&buf, gi); err != nil {
		return err
	}
	if err := writeFileTable(&buf, gi); err != nil {
		return err
	}
	if err := writeDocuments(&buf, gi); err != nil {
		return err
	}
	if err := writeWordEverContained(&buf, gi); err != nil {
		return err
	}
	if err := writeGlobalFST(&buf, gi); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Load restores a GitIndex previously written by Save. The format is
// self-delimited: any unconsumed trailing bytes are rejected as index
// corruption (spec §4.7).
func Load(r io.Reader) (*GitIndex, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("index: read: %w", err)
	}
	br := bytes.NewReader(raw)

	var gotMagic [8]byte
	if _, err := io.ReadFull(br, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("index: read magic: %w", err)
	}
	if gotMagic != magic {
		trace.Persist.Printf("index: load rejected: bad magic %x (recovered)", gotMagic)
		return nil, fmt.Errorf("index: bad magic %x: %w", gotMagic, ErrIndexFormatUnsupported)
	}

	version, err := readU32(br)
	if err != nil {
		return nil, fmt.Errorf("index: read version: %w", err)
	}
	if version != formatVersion {
		trace.Persist.Printf("index: load rejected: unsupported format version %d (recovered)", version)
		return nil, fmt.Errorf("index: unsupported format version %d: %w", version, ErrIndexFormatUnsupported)
	}

	flags, err := readU32(br)
	if err != nil {
		return nil, fmt.Errorf("index: read flags: %w", err)
	}
	mode := tokenize.Word
	if flags&flagTrigramMode != 0 {
		mode = tokenize.Trigram
	}
	gi := newGitIndex(mode, flags&flagUTF8Permissive != 0)

	if err := readCommitTable(br, gi); err != nil {
		return nil, fmt.Errorf("index: commit table: %w", err)
	}
	if err := readFileTable(br, gi); err != nil {
		return nil, fmt.Errorf("index: file table: %w", err)
	}
	if err := readDocuments(br, gi); err != nil {
		return nil, fmt.Errorf("index: documents: %w", err)
	}
	if err := readWordEverContained(br, gi); err != nil {
		return nil, fmt.Errorf("index: word_ever_contained: %w", err)
	}
	if err := readGlobalFST(br, gi); err != nil {
		return nil, fmt.Errorf("index: global_fst: %w", err)
	}

	if br.Len() != 0 {
		trace.Persist.Printf("index: load rejected: %d unconsumed trailing bytes (recovered)", br.Len())
		return nil, fmt.Errorf("index: %d unconsumed trailing bytes: %w", br.Len(), ErrIndexCorrupt)
	}
	return gi, nil
}

func writeCommitTable(buf *bytes.Buffer, gi *GitIndex) error {
	writeU32(buf, uint32(len(gi.Commits)))
	for _, rec := range gi.Commits {
		writeBytes(buf, rec.ID.Bytes())
		if rec.HasParent {
			buf.WriteByte(1)
			writeU32(buf, uint32(rec.ParentOrdinal))
		} else {
			buf.WriteByte(0)
		}
		writeString(buf, rec.Summary)
		writeU64(buf, uint64(rec.When))
	}
	return nil
}

func readCommitTable(r *bytes.Reader, gi *GitIndex) error {
	n, err := readU32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		idBytes, err := readBytes(r)
		if err != nil {
			return err
		}
		id := plumbing.NewCommitID(idBytes)
		gi.Ordinals.Append(id)

		hasParentByte, err := r.ReadByte()
		if err != nil {
			return err
		}
		rec := CommitRecord{ID: id}
		if hasParentByte == 1 {
			parentOrd, err := readU32(r)
			if err != nil {
				return err
			}
			rec.HasParent = true
			rec.ParentOrdinal = plumbing.CommitOrdinal(parentOrd)
		}
		summary, err := readString(r)
		if err != nil {
			return err
		}
		rec.Summary = summary
		when, err := readU64(r)
		if err != nil {
			return err
		}
		rec.When = int64(when)
		gi.Commits = append(gi.Commits, rec)
	}
	return nil
}

func writeFileTable(buf *bytes.Buffer, gi *GitIndex) error {
	writeU32(buf, uint32(gi.Files.Len()))
	for id := 0; id < gi.Files.Len(); id++ {
		path, _ := gi.Files.Path(plumbing.FileID(id))
		writeString(buf, path)
	}
	return nil
}

func readFileTable(r *bytes.Reader, gi *GitIndex) error {
	n, err := readU32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		path, err := readString(r)
		if err != nil {
			return err
		}
		gi.Files.IDFor(path)
	}
	return nil
}

func writeDocuments(buf *bytes.Buffer, gi *GitIndex) error {
	ids := sortedFileIDs(gi.Documents)
	writeU32(buf, uint32(len(ids)))
	for _, id := range ids {
		writeU32(buf, uint32(id))
		doc := gi.Documents[id]
		lifetime := gi.FileLifetime[id]
		if lifetime == nil {
			lifetime = bitset.New()
		}
		if err := lifetime.WriteTo(buf); err != nil {
			return err
		}

		tokens := doc.Tokens()
		sortTokens(tokens)
		writeU32(buf, uint32(len(tokens)))
		for _, tok := range tokens {
			writeString(buf, string(tok))
			if err := doc.CommitInclusion(tok).WriteTo(buf); err != nil {
				return err
			}
		}

		fstBytes := []byte{}
		if doc.TokenFST() != nil {
			fstBytes = doc.TokenFST().Bytes()
		}
		writeBytes(buf, fstBytes)
	}
	return nil
}

func readDocuments(r *bytes.Reader, gi *GitIndex) error {
	n, err := readU32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		idRaw, err := readU32(r)
		if err != nil {
			return err
		}
		id := plumbing.FileID(idRaw)

		lifetime, err := bitset.ReadBitmap(r)
		if err != nil {
			return err
		}
		gi.FileLifetime[id] = lifetime

		numTokens, err := readU32(r)
		if err != nil {
			return err
		}
		inclusion := make(map[tokenize.Token]*bitset.Bitmap, numTokens)
		for j := uint32(0); j < numTokens; j++ {
			tokStr, err := readString(r)
			if err != nil {
				return err
			}
			b, err := bitset.ReadBitmap(r)
			if err != nil {
				return err
			}
			inclusion[tokenize.Token(tokStr)] = b
		}

		fstBytes, err := readBytes(r)
		if err != nil {
			return err
		}
		var tokenFST *fst.Set
		if len(fstBytes) > 0 {
			tokenFST, err = fst.Load(fstBytes)
			if err != nil {
				return err
			}
		}
		gi.Documents[id] = document.Restore(inclusion, tokenFST)
	}
	return nil
}

func writeWordEverContained(buf *bytes.Buffer, gi *GitIndex) error {
	tokens := make([]tokenize.Token, 0, len(gi.WordEverContained))
	for t := range gi.WordEverContained {
		tokens = append(tokens, t)
	}
	sortTokens(tokens)
	writeU32(buf, uint32(len(tokens)))
	for _, tok := range tokens {
		writeString(buf, string(tok))
		if err := gi.WordEverContained[tok].WriteTo(buf); err != nil {
			return err
		}
	}
	return nil
}

func readWordEverContained(r *bytes.Reader, gi *GitIndex) error {
	n, err := readU32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		tokStr, err := readString(r)
		if err != nil {
			return err
		}
		b, err := bitset.ReadBitmap(r)
		if err != nil {
			return err
		}
		gi.WordEverContained[tokenize.Token(tokStr)] = b
	}
	return nil
}

func writeGlobalFST(buf *bytes.Buffer, gi *GitIndex) error {
	raw := []byte{}
	if gi.GlobalFST != nil {
		raw = gi.GlobalFST.Bytes()
	}
	writeBytes(buf, raw)
	return nil
}

func readGlobalFST(r *bytes.Reader, gi *GitIndex) error {
	raw, err := readBytes(r)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	set, err := fst.Load(raw)
	if err != nil {
		return err
	}
	gi.GlobalFST = set
	return nil
}

func sortedFileIDs(m map[plumbing.FileID]*document.Document) []plumbing.FileID {
	ids := make([]plumbing.FileID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortTokens(tokens []tokenize.Token) {
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
}

// --- little-endian primitive framing, in the style of go-git's own
// plumbing/format on-disk encoders. ---

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeU32(buf, uint32(len(b)))
	buf.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
