package translate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChunkSize is the default chunk budget in characters.
const DefaultChunkSize = 1000

// abbreviations never end a sentence. Stored lower-case without the final dot.
var abbreviations = map[string]bool{
	"e.g": true, "i.e": true, "etc": true, "al": true, "vs": true, "cf": true,
	"fig": true, "figs": true, "eq": true, "eqs": true, "sec": true, "tab": true,
	"ref": true, "refs": true, "no": true, "vol": true, "pp": true, "approx": true,
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true, "st": true,
	"resp": true, "viz": true, "ca": true,
}

// Split breaks text into chunks of at most budget characters, cutting between
// sentences where possible. Whitespace runs are collapsed to single spaces.
func Split(text string, budget int) []string {
	if budget <= 0 {
		budget = DefaultChunkSize
	}
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, s := range sentences {
		n := utf8.RuneCountInString(s)
		if n > budget {
			flush()
			chunks = append(chunks, splitLong(s, budget)...)
			continue
		}
		if curLen > 0 && curLen+1+n > budget {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(s)
		curLen += n
	}
	flush()
	return chunks
}

// SplitSentences splits text at sentence-ending punctuation followed by
// whitespace, skipping abbreviations and single-letter initials.
func SplitSentences(text string) []string {
	words := strings.Fields(text)
	var out []string
	start := 0
	for i, w := range words {
		if i == len(words)-1 || endsSentence(w) {
			out = append(out, strings.Join(words[start:i+1], " "))
			start = i + 1
		}
	}
	return out
}

func endsSentence(word string) bool {
	w := strings.TrimRight(word, `"')]}’”`)
	if w == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(w)
	switch last {
	case '!', '?', '。', '！', '？':
		return true
	case '.':
	default:
		return false
	}

	stem := strings.TrimLeft(strings.TrimSuffix(w, "."), `"'([{‘“`)
	if stem == "" {
		return true
	}
	if strings.HasSuffix(stem, ".") {
		// ellipsis
		return false
	}
	if abbreviations[strings.ToLower(stem)] {
		return false
	}
	// a single capital letter is an initial, "J. Smith"
	if r, size := utf8.DecodeRuneInString(stem); size == len(stem) && unicode.IsUpper(r) {
		return false
	}
	return true
}

// splitLong cuts an over-long sentence at the last space inside each budget,
// or hard at the budget when there is none.
func splitLong(s string, budget int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > budget {
		cut := budget
		for i := budget; i > 0; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			out = append(out, piece)
		}
		runes = []rune(strings.TrimSpace(string(runes[cut:])))
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		out = append(out, rest)
	}
	return out
}
