package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexTokensWordMode(t *testing.T) {
	toks := IndexTokens([]byte("hello world\nhello there"), Word)
	require := assert.New(t)
	require.Contains(toks, Token("hello"))
	require.Equal(map[int]struct{}{1: {}, 2: {}}, toks[Token("hello")])
	require.Equal(map[int]struct{}{1: {}}, toks[Token("world")])
	require.Equal(map[int]struct{}{2: {}}, toks[Token("there")])
}

func TestIndexTokensTrigramMode(t *testing.T) {
	toks := IndexTokens([]byte("hello"), Trigram)
	assert.Contains(t, toks, Token("hel"))
	assert.Contains(t, toks, Token("ell"))
	assert.Contains(t, toks, Token("llo"))
	assert.Len(t, toks, 3)
}

func TestTrigramModeShortLineYieldsNothing(t *testing.T) {
	toks := IndexTokens([]byte("hi\nok"), Trigram)
	assert.Len(t, toks, 0)
}

func TestTrigramsDoNotCrossLines(t *testing.T) {
	toks := IndexTokens([]byte("ab\ncde"), Trigram)
	assert.NotContains(t, toks, Token("b\nc"))
	assert.Contains(t, toks, Token("cde"))
}

func TestPresentationColumns(t *testing.T) {
	inst := Presentation([]byte("foo bar"), Word)
	assert.Equal(t, []Instance{
		{Token: "foo", Line: 1, Column: 0},
		{Token: "bar", Line: 1, Column: 4},
	}, inst)
}

func TestPresentationTrigramColumns(t *testing.T) {
	inst := Presentation([]byte("hello"), Trigram)
	assert.Equal(t, Instance{Token: "hel", Line: 1, Column: 0}, inst[0])
	assert.Equal(t, Instance{Token: "llo", Line: 1, Column: 2}, inst[2])
}

func TestWordBoundarySplit(t *testing.T) {
	assert.Equal(t, []Token{"foo", "bar_baz", "123"}, WordBoundarySplit("foo.bar_baz(123)"))
}

func TestEmptyBlobProducesNoTokens(t *testing.T) {
	assert.Len(t, IndexTokens([]byte(""), Word), 0)
	assert.Len(t, IndexTokens([]byte(""), Trigram), 0)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "word", Word.String())
	assert.Equal(t, "trigram", Trigram.String())
}

func TestTokensOnLine(t *testing.T) {
	blob := []byte("alpha beta\ngamma delta")
	assert.Equal(t, []Token{"gamma", "delta"}, TokensOnLine(blob, Word, 2))
	assert.Nil(t, TokensOnLine(blob, Word, 3))
}

func TestTokensOfText(t *testing.T) {
	assert.Equal(t, []Token{"foo", "bar"}, TokensOfText("foo bar foo", Word))
}
