package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned for an operation the current state does not allow.
	// The session is left untouched; callers may ignore it.
	ErrInvalidTransition = errors.New("invalid transition")
	ErrOutOfRange        = errors.New("out of range")
	ErrEmptyChapter      = errors.New("chapter has no sentences")
	ErrClosed            = errors.New("controller closed")
)

// NarrationError is recorded when the backend fails mid-utterance
type NarrationError struct {
	Chapter  int
	Sentence int
	Err      error
}

func (e *NarrationError) Error() string {
	return fmt.Sprintf("narration of chapter %d sentence %d failed: %v", e.Chapter, e.Sentence+1, e.Err)
}

func (e *NarrationError) Unwrap() error {
	return e.Err
}
