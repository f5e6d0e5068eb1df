package book

// ChapterRef names a chapter in a book manifest
type ChapterRef struct {
	Index int    `yaml:"index" json:"index"`
	Title string `yaml:"title" json:"title"`
}

// Book is the read-only metadata the reader needs to navigate between chapters.
type Book struct {
	ID           string       `yaml:"id" json:"id"`
	Title        string       `yaml:"title" json:"title"`
	Author       string       `yaml:"author" json:"author"`
	Description  string       `yaml:"description,omitempty" json:"description,omitempty"`
	Language     string       `yaml:"language,omitempty" json:"language,omitempty"`
	ChapterCount int          `yaml:"chapter_count" json:"chapter_count"`
	Chapters     []ChapterRef `yaml:"chapters,omitempty" json:"chapters,omitempty"`
}

// Count returns the number of chapters. An explicit chapter list wins over ChapterCount.
func (b Book) Count() int {
	if len(b.Chapters) > 0 {
		return len(b.Chapters)
	}
	return b.ChapterCount
}

// HasChapter reports whether index lies within [1, Count()].
func (b Book) HasChapter(index int) bool {
	return index >= 1 && index <= b.Count()
}

// ChapterTitle returns the manifest title for index, if any.
func (b Book) ChapterTitle(index int) string {
	for _, c := range b.Chapters {
		if c.Index == index {
			return c.Title
		}
	}
	return ""
}
