package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"

	"readaloud/internal/domain/chapter"
)

// EPUBProvider serves the chapters of a single EPUB file. Chapter N is the
// N-th spine item that contains any text.
type EPUBProvider struct {
	path string

	once     sync.Once
	chapters []string
	err      error
}

func NewEPUBProvider(path string) *EPUBProvider {
	return &EPUBProvider{path: path}
}

func (p *EPUBProvider) FetchChapter(ctx context.Context, bookID string, index int) (chapter.Chapter, error) {
	chapters, err := p.load()
	if err != nil {
		return chapter.Chapter{}, fetchError(bookID, index, err)
	}
	if index < 1 || index > len(chapters) {
		return chapter.Chapter{}, fetchError(bookID, index, fmt.Errorf("epub has %d chapters", len(chapters)))
	}
	return chapter.Chapter{
		BookID:  bookID,
		Index:   index,
		Content: chapters[index-1],
	}, nil
}

// ChapterCount opens the file if needed and counts its text chapters
func (p *EPUBProvider) ChapterCount() (int, error) {
	chapters, err := p.load()
	return len(chapters), err
}

func (p *EPUBProvider) load() ([]string, error) {
	p.once.Do(func() {
		p.chapters, p.err = readSpine(p.path)
	})
	return p.chapters, p.err
}

func readSpine(path string) ([]string, error) {
	rc, err := epub.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, errors.New("no rootfiles found in epub")
	}

	var chapters []string
	for _, ref := range rc.Rootfiles[0].Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}
		if text := htmlText(string(data)); text != "" {
			chapters = append(chapters, text)
		}
	}
	return chapters, nil
}

// htmlText flattens an XHTML document into prose. Block elements end a line
// so headings and paragraphs do not run into each other.
func htmlText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var out strings.Builder
	atLineStart := true
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "head") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if !atLineStart {
					out.WriteString(" ")
				}
				out.WriteString(t)
				atLineStart = false
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.Data) && !atLineStart {
			out.WriteString("\n")
			atLineStart = true
		}
	}
	walk(doc)
	return strings.TrimSpace(out.String())
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "section":
		return true
	}
	return false
}
