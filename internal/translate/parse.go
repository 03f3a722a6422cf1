package translate

import (
	"encoding/json"
	"fmt"
	"strings"

	"pdf-highlighter/internal/types"
)

// Sentence is one translated sentence.
type Sentence struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
}

// span returns raw from the first open to the last close byte, inclusive.
func span(raw string, open, close byte) (string, bool) {
	start := strings.IndexByte(raw, open)
	end := strings.LastIndexByte(raw, close)
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func malformed(message string, raw string, cause error) error {
	return types.NewAppErrorWithDetails(types.ErrMalformedResponse, message, preview(raw), cause)
}

func preview(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 120 {
		return raw[:120] + "..."
	}
	return raw
}

// ParseSentences extracts the sentence array from a raw model response.
// Entries without an original text are dropped.
func ParseSentences(raw string) ([]Sentence, error) {
	body, ok := span(raw, '[', ']')
	if !ok {
		return nil, malformed("response has no JSON array", raw, nil)
	}
	var items []Sentence
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, malformed("failed to parse sentence array", raw, err)
	}

	out := make([]Sentence, 0, len(items))
	for _, it := range items {
		it.Original = strings.TrimSpace(it.Original)
		it.Translation = strings.TrimSpace(it.Translation)
		if it.Original == "" {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// ParseWords extracts the word map from a raw model response. Non-string
// values are formatted with %v.
func ParseWords(raw string) (map[string]string, error) {
	body, ok := span(raw, '{', '}')
	if !ok {
		return nil, malformed("response has no JSON object", raw, nil)
	}
	var items map[string]any
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, malformed("failed to parse word map", raw, err)
	}

	out := make(map[string]string, len(items))
	for k, v := range items {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		switch t := v.(type) {
		case string:
			out[k] = strings.TrimSpace(t)
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprintf("%v", t)
		}
	}
	return out, nil
}
