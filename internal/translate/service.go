// Package translate splits text into chunks, sends every chunk to a remote
// translation service concurrently and merges the answers back in chunk order.
package translate

import (
	"context"
	"strings"
)

// Kind selects what the remote service is asked to produce.
type Kind int

const (
	// Sentences asks for a JSON array of {original, translation}.
	Sentences Kind = iota
	// Words asks for a JSON object mapping words to translations.
	Words
)

func (k Kind) String() string {
	if k == Words {
		return "words"
	}
	return "sentences"
}

// ParseKind maps "words"/"word" and "sentences"/"sentence" to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "words", "word":
		return Words, true
	case "sentences", "sentence":
		return Sentences, true
	}
	return Sentences, false
}

// Request is one call to the remote service.
type Request struct {
	Model  string
	Prompt string // instructions, without the text
	Input  string // normalized chunk text
}

// Message renders the request as a single user message.
func (r Request) Message() string {
	return r.Prompt + "\n\n" + r.Input
}

// Service is the remote translation or extraction endpoint. It returns the
// raw model output; the coordinator locates the JSON inside it.
type Service interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f ServiceFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

const (
	// DefaultSentenceTemplate asks for sentence-by-sentence translation.
	DefaultSentenceTemplate = `Split the following text into sentences and translate each sentence into {lang}.
Return only a JSON array of objects with the keys "original" and "translation", one object per sentence, in order.
Do not add explanations.`

	// DefaultWordTemplate asks for word extraction; {criteria} selects which words.
	DefaultWordTemplate = `From the following text, find all {criteria} and translate each into {lang}.
Return only a JSON object whose keys are the words exactly as they appear in the text and whose values are the translations.
Do not add explanations.`
)

// Prompts renders the instruction part of a request.
type Prompts struct {
	TargetLanguage   string
	WordCriteria     string
	SentenceTemplate string
	WordTemplate     string
}

// For returns the instructions for kind.
func (p Prompts) For(kind Kind) string {
	tmpl := p.SentenceTemplate
	if tmpl == "" {
		tmpl = DefaultSentenceTemplate
	}
	if kind == Words {
		tmpl = p.WordTemplate
		if tmpl == "" {
			tmpl = DefaultWordTemplate
		}
	}

	lang := p.TargetLanguage
	if lang == "" {
		lang = "Simplified Chinese"
	}
	criteria := p.WordCriteria
	if criteria == "" {
		criteria = "difficult words and technical terms"
	}
	return strings.NewReplacer("{lang}", lang, "{criteria}", criteria).Replace(tmpl)
}
