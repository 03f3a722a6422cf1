package normalize

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
)

func TestToken(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"lowercases", "Hello", "hello"},
		{"keeps trailing punctuation", "Hello,", "hello,"},
		{"strips diacritics", "Café", "cafe"},
		{"strips umlaut", "über", "uber"},
		{"ligature decomposes", "ﬁnd", "find"},
		{"drops brackets", "(hello)", "hello"},
		{"leading hyphen continuation", "-national", "national"},
		{"leading en dash continuation", "–national", "national"},
		{"trailing line-wrap hyphen", "inter-", "inter"},
		{"trailing non-breaking hyphen", "inter‑", "inter"},
		{"unifies inner hyphens", "state‑of‐the—art", "state-of-the-art"},
		{"lone dash", "—", ""},
		{"contraction dont", "dont", "don't"},
		{"contraction Havent", "Havent", "haven't"},
		{"apostrophe kept", "Don't", "don't"},
		{"possessive kept", "child's", "child's"},
		{"non latin dropped", "日本", ""},
		{"digits kept", "Fig.3", "fig.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Token(tt.raw))
		})
	}
}

func TestTokenIdempotent(t *testing.T) {
	cfg := &quick.Config{MaxCount: 500, Rand: rand.New(rand.NewSource(42))}

	f := func(s string) bool {
		once := Token(s)
		return Token(once) == once
	}
	if err := quick.Check(f, cfg); err != nil {
		t.Errorf("Token is not idempotent on random strings: %v", err)
	}

	// Random strings rarely hit hyphens and contractions, so build inputs from a
	// biased alphabet as well.
	alphabet := []rune("abcDEFnt'-‐‑–—.,;:!? é(1)日")
	biased := &quick.Config{
		MaxCount: 500,
		Rand:     rand.New(rand.NewSource(7)),
		Values: func(args []reflect.Value, r *rand.Rand) {
			n := r.Intn(12)
			var b strings.Builder
			for i := 0; i < n; i++ {
				b.WriteRune(alphabet[r.Intn(len(alphabet))])
			}
			args[0] = reflect.ValueOf(b.String())
		},
	}
	if err := quick.Check(f, biased); err != nil {
		t.Errorf("Token is not idempotent on hyphen-heavy strings: %v", err)
	}
}

func TestTokenContractionsAreStable(t *testing.T) {
	for raw, expanded := range contractions {
		assert.Equal(t, expanded, Token(raw))
		assert.Equal(t, expanded, Token(expanded))
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("  The quick, brown\tfox-  ")
	assert.Equal(t, []string{"the", "quick,", "brown", "fox"}, got)
	assert.Empty(t, Tokens("   "))
}

func TestEndsWithHyphen(t *testing.T) {
	assert.True(t, EndsWithHyphen("inter-"))
	assert.True(t, EndsWithHyphen("inter‐ "))
	assert.True(t, EndsWithHyphen("inter—"))
	assert.False(t, EndsWithHyphen("inter"))
	assert.False(t, EndsWithHyphen(""))
	assert.False(t, EndsWithHyphen("   "))
}

func TestTrimHyphens(t *testing.T) {
	assert.Equal(t, "inter", TrimHyphens("inter-"))
	assert.Equal(t, "inter", TrimHyphens("inter‑– "))
	assert.Equal(t, "state-of", TrimHyphens("state-of"))
}

func TestBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"line breaks and tabs", "first line\nsecond\r\n\tthird", "first line second third"},
		{"multiple spaces", "too    many   spaces", "too many spaces"},
		{"trims", "   padded   ", "padded"},
		{"space after comma", "Hello,world", "Hello, world"},
		{"space before period removed", "The end .", "The end."},
		{"joins spaced hyphen", "state - of - the - art", "state-of-the-art"},
		{"strips citation", "as shown [12] here", "as shown here"},
		{"wrapped paragraph", "Deep learn-\ning models  [4]  work;they scale", "Deep learn- ing models work; they scale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Block(tt.in))
		})
	}
}
