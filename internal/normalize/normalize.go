// Package normalize turns raw extracted text into comparable forms.
//
// Token produces the canonical form of a single page or sentence token:
//  1. hyphen variants mapped to ASCII '-'
//  2. Unicode NFKD decomposition
//  3. non-ASCII runes dropped (this removes the combining marks left by step 2)
//  4. lower-cased, keeping only [a-z0-9] and -'.,;:!?
//  5. leading and trailing line-wrap hyphens trimmed
//  6. common apostrophe-less contractions expanded
//
// Block cleans a run of text before it is sent for translation or searched.
package normalize

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// HyphenVariants are the dash characters treated as line-wrap hyphens.
const HyphenVariants = "-\u2010\u2011\u2013\u2014\u00ad"

const keptPunctuation = "-'.,;:!?"

var contractions = map[string]string{
	"dont":     "don't",
	"cant":     "can't",
	"wont":     "won't",
	"isnt":     "isn't",
	"wasnt":    "wasn't",
	"doesnt":   "doesn't",
	"couldnt":  "couldn't",
	"shouldnt": "shouldn't",
	"wouldnt":  "wouldn't",
	"arent":    "aren't",
	"havent":   "haven't",
}

var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			runes.Map(func(r rune) rune {
				if IsHyphen(r) {
					return '-'
				}
				return r
			}),
			norm.NFKD,
			runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
		)
	},
}

// IsHyphen reports whether r is one of HyphenVariants.
func IsHyphen(r rune) bool {
	return strings.ContainsRune(HyphenVariants, r)
}

// EndsWithHyphen reports whether s ends in a line-wrap hyphen.
func EndsWithHyphen(s string) bool {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	r, _ := utf8.DecodeLastRuneInString(s)
	return s != "" && IsHyphen(r)
}

// TrimHyphens removes trailing hyphen variants from s.
func TrimHyphens(s string) string {
	return strings.TrimRightFunc(strings.TrimRightFunc(s, unicode.IsSpace), IsHyphen)
}

// ASCII maps hyphen variants to "-", decomposes with NFKD and drops every non-ASCII rune.
func ASCII(s string) string {
	tr := foldPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	foldPool.Put(tr)
	if err != nil {
		return ""
	}
	return out
}

// Token returns the canonical form of raw. An empty result means the token
// carries nothing matchable and callers should skip it.
func Token(raw string) string {
	if raw == "" {
		return ""
	}
	s := ASCII(strings.ToValidUTF8(raw, ""))

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte(keptPunctuation, c) >= 0:
			b.WriteByte(c)
		}
	}

	cleaned := strings.Trim(b.String(), "-")
	if expanded, ok := contractions[cleaned]; ok {
		return expanded
	}
	return cleaned
}

// Tokens splits text on whitespace and canonicalizes every piece, keeping empty
// results so indexes line up with strings.Fields(text).
func Tokens(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = Token(f)
	}
	return out
}

var (
	reLineBreaks    = regexp.MustCompile(`[\n\r\t]+`)
	reMultiSpace    = regexp.MustCompile(`\s{2,}`)
	rePunctSpacing  = regexp.MustCompile(`\s*([.,;:!?])\s*`)
	reSpacedHyphen  = regexp.MustCompile(`\s+-\s+`)
	reCitationMarks = regexp.MustCompile(`\s*\[\d+\]\s*`)
)

// Block collapses whitespace, normalizes spacing after punctuation, joins
// "word - word" into "word-word" and drops numeric citation markers like [12].
func Block(text string) string {
	text = reLineBreaks.ReplaceAllString(text, " ")
	text = reMultiSpace.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	text = rePunctSpacing.ReplaceAllString(text, "$1 ")
	text = reSpacedHyphen.ReplaceAllString(text, "-")
	text = reCitationMarks.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
