package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"readaloud/internal/domain/book"
	"readaloud/internal/domain/chapter"
	"readaloud/internal/storage"
)

// StoreProvider reads chapters and book manifests from a storage adapter.
//
// Layout:
//
//	books/<id>/book.yaml
//	books/<id>/chapters/001.txt
type StoreProvider struct {
	store storage.Adapter
	log   logrus.FieldLogger
}

func NewStoreProvider(store storage.Adapter, log logrus.FieldLogger) *StoreProvider {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StoreProvider{store: store, log: log}
}

func manifestPath(bookID string) string {
	return fmt.Sprintf("books/%s/book.yaml", bookID)
}

func chapterPath(bookID string, index int) string {
	return fmt.Sprintf("books/%s/chapters/%03d.txt", bookID, index)
}

func (p *StoreProvider) FetchChapter(ctx context.Context, bookID string, index int) (chapter.Chapter, error) {
	data, err := storage.ReadAll(ctx, p.store, chapterPath(bookID, index))
	if err != nil {
		return chapter.Chapter{}, fetchError(bookID, index, err)
	}
	return chapter.Chapter{
		BookID:  bookID,
		Index:   index,
		Content: string(data),
	}, nil
}

// Book loads the manifest for bookID. Without a manifest the chapter files
// are counted instead.
func (p *StoreProvider) Book(ctx context.Context, bookID string) (book.Book, error) {
	data, err := storage.ReadAll(ctx, p.store, manifestPath(bookID))
	if err == nil {
		var b book.Book
		if err := yaml.Unmarshal(data, &b); err != nil {
			return book.Book{}, fmt.Errorf("failed to parse manifest for %s: %w", bookID, err)
		}
		if b.ID == "" {
			b.ID = bookID
		}
		return b, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return book.Book{}, fmt.Errorf("failed to read manifest for %s: %w", bookID, err)
	}

	paths, err := p.store.List(ctx, fmt.Sprintf("books/%s/chapters/", bookID))
	if err != nil {
		return book.Book{}, fmt.Errorf("failed to list chapters for %s: %w", bookID, err)
	}
	if len(paths) == 0 {
		return book.Book{}, fmt.Errorf("book %s: %w", bookID, storage.ErrNotFound)
	}
	return book.Book{ID: bookID, Title: bookID, ChapterCount: len(paths)}, nil
}

// Books lists the ids of every book with a manifest
func (p *StoreProvider) Books(ctx context.Context) ([]string, error) {
	paths, err := p.store.List(ctx, "books/")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, path := range paths {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] == "book.yaml" {
			ids = append(ids, parts[1])
		}
	}
	return ids, nil
}

func (p *StoreProvider) SaveBook(ctx context.Context, b book.Book) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return p.store.Put(ctx, manifestPath(b.ID), bytes.NewReader(data))
}

func (p *StoreProvider) PutChapter(ctx context.Context, c chapter.Chapter) error {
	return p.store.Put(ctx, chapterPath(c.BookID, c.Index), strings.NewReader(c.Content))
}

// Import splits text into chapters, stores each one and writes the manifest.
func (p *StoreProvider) Import(ctx context.Context, b book.Book, text string) (book.Book, error) {
	chapters := SplitChapters(text)
	if len(chapters) == 0 {
		return book.Book{}, errors.New("no chapter text to import")
	}

	b.Chapters = nil
	for i, c := range chapters {
		c.BookID = b.ID
		c.Index = i + 1
		if err := p.PutChapter(ctx, c); err != nil {
			return book.Book{}, fmt.Errorf("failed to store chapter %d: %w", c.Index, err)
		}
		b.Chapters = append(b.Chapters, book.ChapterRef{Index: c.Index, Title: c.Title})
	}
	b.ChapterCount = len(chapters)

	if err := p.SaveBook(ctx, b); err != nil {
		return book.Book{}, err
	}

	p.log.WithFields(logrus.Fields{
		"book":     b.ID,
		"chapters": b.ChapterCount,
	}).Info("imported book")
	return b, nil
}

var headingRegex = regexp.MustCompile(`(?m)^[ \t]*(?i:chapter|chương|part|phần)[ \t]+([0-9]+|[IVXLCDM]+)\b.*$`)

// SplitChapters cuts text at chapter headings ("Chapter 3", "Chương II").
// Text without headings becomes a single chapter; text before the first heading is dropped
// when it is blank.
func SplitChapters(text string) []chapter.Chapter {
	locs := headingRegex.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []chapter.Chapter{{Content: strings.TrimSpace(text)}}
	}

	var chapters []chapter.Chapter
	if preface := strings.TrimSpace(text[:locs[0][0]]); preface != "" {
		chapters = append(chapters, chapter.Chapter{Content: preface})
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		chapters = append(chapters, chapter.Chapter{
			Title:   strings.TrimSpace(text[loc[0]:loc[1]]),
			Content: strings.TrimSpace(text[loc[1]:end]),
		})
	}
	return chapters
}
