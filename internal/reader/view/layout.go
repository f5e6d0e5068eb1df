package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"readaloud/internal/domain/chapter"
)

// sentenceLayout records where each rendered sentence starts
type sentenceLayout struct {
	sequence uint64
	offsets  []int
	lines    int
}

func (l *sentenceLayout) SequenceID() uint64 {
	return l.sequence
}

func (l *sentenceLayout) Offset(i int) (int, bool) {
	if l == nil || i < 0 || i >= len(l.offsets) {
		return 0, false
	}
	return l.offsets[i], true
}

// render lays the sentences out one block each, wrapped to width, with the
// active sentence highlighted.
func render(sentences []chapter.Sentence, active, width int, sequence uint64) (string, *sentenceLayout) {
	layout := &sentenceLayout{sequence: sequence, offsets: make([]int, len(sentences))}
	if width < 10 {
		width = 10
	}

	blocks := make([]string, len(sentences))
	line := 0
	for i, s := range sentences {
		style := sentenceStyle
		if i == active {
			style = activeStyle
		}
		blocks[i] = style.Width(width).Render(s.Text + ".")
		layout.offsets[i] = line
		line += lipgloss.Height(blocks[i])
	}
	layout.lines = line

	return strings.Join(blocks, "\n"), layout
}
