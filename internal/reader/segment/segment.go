// Package segment splits chapter text into the sentences the narrator speaks one at a time.
package segment

import (
	"strings"

	"readaloud/internal/domain/chapter"
)

// Terminators is the set of characters that end a sentence.
const Terminators = ".?!;"

func isTerminator(r rune) bool {
	return strings.ContainsRune(Terminators, r)
}

// Segment splits text on sentence-terminal punctuation, trims each fragment and
// drops the ones left empty. Order is the 0-based position in the result.
// The result is never nil.
func Segment(text string) []chapter.Sentence {
	sentences := make([]chapter.Sentence, 0)
	for _, fragment := range strings.FieldsFunc(text, isTerminator) {
		trimmed := strings.TrimSpace(fragment)
		if trimmed == "" {
			continue
		}
		sentences = append(sentences, chapter.Sentence{
			Text:  trimmed,
			Order: len(sentences),
		})
	}
	return sentences
}

// Join rebuilds prose from sentences, terminating each with a period.
func Join(sentences []chapter.Sentence) string {
	if len(sentences) == 0 {
		return ""
	}
	return strings.Join(chapter.Texts(sentences), ". ") + "."
}
