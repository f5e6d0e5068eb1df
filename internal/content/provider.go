// Package content fetches chapter text from the places books live: a remote
// reading API, the blob store, or a local EPUB file.
package content

import (
	"context"
	"fmt"

	"readaloud/internal/domain/chapter"
)

// Provider fetches the raw text of one chapter
type Provider interface {
	FetchChapter(ctx context.Context, bookID string, index int) (chapter.Chapter, error)
}

// FetchError reports a failed chapter fetch. It is terminal for that attempt.
type FetchError struct {
	BookID  string
	Chapter int
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch book %s chapter %d: %v", e.BookID, e.Chapter, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func fetchError(bookID string, index int, err error) error {
	return &FetchError{BookID: bookID, Chapter: index, Err: err}
}
