package chapter

// Chapter is the raw text of one chapter of a book. Chapters are numbered from 1.
type Chapter struct {
	BookID  string `json:"book_id"`
	Index   int    `json:"index"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// Sentence is a single narratable unit of a chapter.
type Sentence struct {
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// Texts returns the text of every sentence in order.
func Texts(sentences []Sentence) []string {
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = s.Text
	}
	return out
}
