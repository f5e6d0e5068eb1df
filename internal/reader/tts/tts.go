package tts

import (
	"context"
	"errors"
)

type Config struct {
	Type        string
	Speed       float64
	Volume      float64
	Voice       string
	Language    string
	CachePrefix string
	Quiet       bool
}

// Options carries the per-utterance voice parameters
type Options struct {
	Language string
	Voice    string
	Rate     float64
	Volume   float64
}

// Engine interface for text-to-speech functionality.
// Speak blocks until the text has been spoken or ctx is cancelled.
type Engine interface {
	Name() string
	Speak(ctx context.Context, text string, opts Options) error
	Voices(ctx context.Context) ([]string, error)
}

// Outcome is how an utterance ended
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeStopped
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeStopped:
		return "stopped"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Utterance is one request to speak, tagged with the caller's generation
type Utterance struct {
	Generation uint64
	Text       string
	Options    Options
}

// Report is delivered exactly once per accepted utterance
type Report struct {
	Generation uint64
	Outcome    Outcome
	Err        error
}

type Listener func(Report)

// Backend is the narration surface the playback controller drives
type Backend interface {
	Speak(u Utterance) error
	Cancel()
	Subscribe(l Listener) (func(), error)
}

var (
	ErrBackendInUse = errors.New("narration backend already has a subscriber")
	ErrClosed       = errors.New("narration backend closed")
)
