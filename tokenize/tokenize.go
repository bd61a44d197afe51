// Package tokenize splits a text blob into the tokens the rest of the
// index operates on, per spec §4.2. The same Mode must be used at index
// build time and at query time.
package tokenize

import "fmt"

// Mode selects whether this package's tokenizers yield whole words or
// trigrams. It is
// fixed for the lifetime of an index.
type Mode int

const (
	// Word mode: a token is a maximal run of [A-Za-z0-9_] bytes.
	Word Mode = iota
	// Trigram mode: every contiguous 3-byte window within a single line.
	Trigram
)

func (m Mode) String() string {
	switch m {
	case Word:
		return "word"
	case Trigram:
		return "trigram"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Token is a single indexed unit: a whole word or a 3-byte trigram.
type Token string

func isWordByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '_':
		return true
	default:
		return false
	}
}

// Lines splits blob into lines, retaining the byte offset each line
// starts at (including a final, possibly empty, trailing line if blob
// does not end in '\n').
func Lines(blob []byte) []int {
	starts := []int{0}
	for i, b := range blob {
		if b == '\n' && i+1 < len(blob) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func lineBounds(blob []byte, starts []int, idx int) (begin, end int) {
	begin = starts[idx]
	if idx+1 < len(starts) {
		end = starts[idx+1]
	} else {
		end = len(blob)
	}
	// Exclude the trailing newline itself from the line's content.
	if end > begin && blob[end-1] == '\n' {
		end--
	}
	return begin, end
}

// IndexTokens maps each token found in blob to the set of 1-based line
// numbers it appears on (duplicates on the same line collapsed), as used
// by Document.add_words / remove_words.
func IndexTokens(blob []byte, mode Mode) map[Token]map[int]struct{} {
	starts := Lines(blob)
	out := make(map[Token]map[int]struct{})
	add := func(tok Token, line int) {
		lines, ok := out[tok]
		if !ok {
			lines = make(map[int]struct{})
			out[tok] = lines
		}
		lines[line] = struct{}{}
	}

	for i := range starts {
		begin, end := lineBounds(blob, starts, i)
		line := blob[begin:end]
		lineNo := i + 1
		switch mode {
		case Word:
			tokenizeWordsLine(line, func(tok []byte) {
				add(Token(tok), lineNo)
			})
		case Trigram:
			tokenizeTrigramsLine(line, func(tok []byte) {
				add(Token(tok), lineNo)
			})
		}
	}
	return out
}

func tokenizeWordsLine(line []byte, emit func(tok []byte)) {
	start := -1
	for i := 0; i <= len(line); i++ {
		var b byte
		if i < len(line) {
			b = line[i]
		}
		if i < len(line) && isWordByte(b) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			emit(line[start:i])
			start = -1
		}
	}
}

func tokenizeTrigramsLine(line []byte, emit func(tok []byte)) {
	if len(line) < 3 {
		return
	}
	for i := 0; i+3 <= len(line); i++ {
		emit(line[i : i+3])
	}
}

// Instance is a single (token, line, column) occurrence used by the
// presentation-mode iterator (spec §4.2, "Output for presentation").
// Column is the 0-based byte offset of the token's start within its line.
type Instance struct {
	Token  Token
	Line   int
	Column int
}

// Presentation returns every token instance in blob, in line/column
// order, for use by the snippet materialiser and pretty-printers.
func Presentation(blob []byte, mode Mode) []Instance {
	starts := Lines(blob)
	var out []Instance
	for i := range starts {
		begin, end := lineBounds(blob, starts, i)
		line := blob[begin:end]
		lineNo := i + 1
		switch mode {
		case Word:
			start := -1
			for j := 0; j <= len(line); j++ {
				if j < len(line) && isWordByte(line[j]) {
					if start < 0 {
						start = j
					}
					continue
				}
				if start >= 0 {
					out = append(out, Instance{Token: Token(line[start:j]), Line: lineNo, Column: start})
					start = -1
				}
			}
		case Trigram:
			for j := 0; j+3 <= len(line); j++ {
				out = append(out, Instance{Token: Token(line[j : j+3]), Line: lineNo, Column: j})
			}
		}
	}
	return out
}

// WordBoundarySplit splits a literal query the same way Word-mode
// tokenizing splits indexed content, per spec §4.9 ("split the query on
// the same word-class boundaries as the tokeniser").
func WordBoundarySplit(query string) []Token {
	var out []Token
	tokenizeWordsLine([]byte(query), func(tok []byte) {
		out = append(out, Token(tok))
	})
	return out
}

// LineContent returns the text of the given 1-based line of blob,
// excluding its trailing newline. Used by the snippet materialiser to
// render a matched line's content (spec §4.10).
func LineContent(blob []byte, lineNo int) string {
	starts := Lines(blob)
	idx := lineNo - 1
	if idx < 0 || idx >= len(starts) {
		return ""
	}
	begin, end := lineBounds(blob, starts, idx)
	return string(blob[begin:end])
}

// TokensOnLine returns the distinct tokens found on the given 1-based
// line of blob. Used by the history indexer to recover which tokens a
// just-deleted line carried, since repository.Hunk reports only line
// numbers and the diff tracker only origin bookkeeping.
func TokensOnLine(blob []byte, mode Mode, lineNo int) []Token {
	starts := Lines(blob)
	idx := lineNo - 1
	if idx < 0 || idx >= len(starts) {
		return nil
	}
	begin, end := lineBounds(blob, starts, idx)
	return tokensOfText(blob[begin:end], mode)
}

// TokensOfText returns the distinct tokens found in a single line of text,
// for tokenizing the literal added-line text a repository.Hunk carries
// without needing to re-fetch or re-slice a full blob.
func TokensOfText(text string, mode Mode) []Token {
	return tokensOfText([]byte(text), mode)
}

func tokensOfText(line []byte, mode Mode) []Token {
	seen := make(map[Token]struct{})
	var out []Token
	add := func(tok []byte) {
		t := Token(tok)
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	switch mode {
	case Word:
		tokenizeWordsLine(line, add)
	case Trigram:
		tokenizeTrigramsLine(line, add)
	}
	return out
}
