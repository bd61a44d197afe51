package query

import (
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowerAnchoredLiteralScenario5(t *testing.T) {
	// spec §8 scenario 5: "^#include" -> All({"#in","inc","ncl","clu","lud","ude"})
	c, err := Lower("^#include")
	require.NoError(t, err)
	all, ok := c.(All)
	require.True(t, ok, "expected All, got %#v", c)
	assert.Equal(t, []string{"#in", "clu", "inc", "lud", "ncl", "ude"}, all.Trigrams)
}

func TestLowerShortLiteralDegradesToAnyMatch(t *testing.T) {
	c, err := Lower("ab")
	require.NoError(t, err)
	assert.IsType(t, AnyMatch{}, c)
}

func TestLowerUnanchoredStarDegradesToAnyMatch(t *testing.T) {
	c, err := Lower(".*")
	require.NoError(t, err)
	assert.IsType(t, AnyMatch{}, c)
}

func TestLowerAlternationOfLiterals(t *testing.T) {
	c, err := Lower("(cat|dog)")
	require.NoError(t, err)
	any, ok := c.(Any)
	require.True(t, ok, "expected Any, got %#v", c)
	require.Len(t, any.Branches, 2)
	var all []string
	for _, b := range any.Branches {
		all = append(all, strings.Join(b.Trigrams, ","))
	}
	assert.Contains(t, all, "cat")
	assert.Contains(t, all, "dog")
}

func TestLowerAlternationWithUnboundedBranchDegrades(t *testing.T) {
	c, err := Lower("(cat|.*)")
	require.NoError(t, err)
	assert.IsType(t, AnyMatch{}, c)
}

func TestLowerCharClassWithinConcatExpandsToAny(t *testing.T) {
	c, err := Lower("[a-c]oo")
	require.NoError(t, err)
	any, ok := c.(Any)
	require.True(t, ok, "expected Any, got %#v", c)
	require.Len(t, any.Branches, 3)
	var got []string
	for _, b := range any.Branches {
		got = append(got, b.Trigrams[0])
	}
	assert.ElementsMatch(t, []string{"aoo", "boo", "coo"}, got)
}

func TestLowerCharClassOverCapDegradesGapNotWholeConcat(t *testing.T) {
	// The class has 20 alternatives, over the T=16 cap, so it degrades to
	// a gap rather than forcing the whole pattern to AnyMatch: the fixed
	// "suffix" run still yields trigrams.
	c, err := Lower("[a-t]suffix")
	require.NoError(t, err)
	all, ok := c.(All)
	require.True(t, ok, "expected All, got %#v", c)
	assert.Contains(t, all.Trigrams, "uff")
}

func TestLowerPlusUsesChildOnce(t *testing.T) {
	c, err := Lower("ab+c")
	require.NoError(t, err)
	// "ab+c" concatenates literal "a", a one-or-more repeat of "b", literal
	// "c"; only "a" and "c" are known, neither run reaches 3 bytes, so
	// this conservatively degrades to AnyMatch. The important soundness
	// property is just that it never panics and never claims a trigram
	// that could be absent from a match (e.g. "abbbbc" contains no "abc").
	assert.NotPanics(t, func() { _ = c })
}

// TestLowerSoundness is a property test: for any candidate produced by
// Lower, every literal string actually matching the regex must contain
// every trigram (or satisfy some All branch for Any) that Lower claims is
// required. No false negatives against the regex's language (spec §8).
func TestLowerSoundness(t *testing.T) {
	patterns := []string{
		"^#include",
		"foobar",
		"foo.*bar",
		"(alpha|beta|gamma)",
		"[a-c]xyz",
		"a+b+c+",
		"^func Test",
		"error:.*not found",
	}
	rnd := rand.New(rand.NewSource(1))
	for _, pat := range patterns {
		re, err := regexp.Compile(pat)
		require.NoError(t, err)
		cand, err := Lower(pat)
		require.NoError(t, err)

		for i := 0; i < 200; i++ {
			s := randomStringContaining(rnd, pat)
			if !re.MatchString(s) {
				continue
			}
			assert.True(t, satisfies(cand, s), "pattern %q: string %q matches but candidate %#v rejects it", pat, s, cand)
		}
	}
}

func satisfies(c Candidates, s string) bool {
	switch v := c.(type) {
	case AnyMatch:
		return true
	case All:
		for _, tg := range v.Trigrams {
			if !strings.Contains(s, tg) {
				return false
			}
		}
		return true
	case Any:
		for _, b := range v.Branches {
			if satisfies(b, s) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// randomStringContaining builds candidate haystacks biased toward
// matching pat, by embedding literal fragments of it amid random noise.
func randomStringContaining(rnd *rand.Rand, pat string) string {
	frag := strings.Map(func(r rune) rune {
		switch r {
		case '^', '$', '.', '*', '+', '(', ')', '|', '[', ']':
			return -1
		default:
			return r
		}
	}, pat)
	const noise = "xqz09_ "
	var b strings.Builder
	for i := 0; i < rnd.Intn(4); i++ {
		b.WriteByte(noise[rnd.Intn(len(noise))])
	}
	b.WriteString(frag)
	for i := 0; i < rnd.Intn(4); i++ {
		b.WriteByte(noise[rnd.Intn(len(noise))])
	}
	return b.String()
}
