// Package playback holds the sentence-level narration state machine.
package playback

import "math"

// State is the transport state of a session
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

const (
	MinRate     = 0.5
	MaxRate     = 2.0
	DefaultRate = 1.0
	RateStep    = 0.1

	MinVolume     = 0.0
	MaxVolume     = 1.0
	DefaultVolume = 1.0
	VolumeStep    = 0.1
)

// Session is a snapshot of the controller state. SentenceIndex is -1 when
// the chapter has no sentences.
type Session struct {
	BookID        string
	ChapterIndex  int
	ChapterCount  int
	SentenceIndex int
	SentenceCount int
	State         State
	Rate          float64
	Volume        float64
	Generation    uint64

	// Sequence changes whenever the sentence list is replaced
	Sequence uint64

	Loading   bool
	Completed bool
	LastErr   error
}

// Progress is the percentage of the chapter already narrated
func (s Session) Progress() int {
	if s.SentenceCount == 0 {
		return 0
	}
	if s.Completed {
		return 100
	}
	if s.SentenceIndex <= 0 {
		return 0
	}
	return int(math.Round(float64(s.SentenceIndex) / float64(s.SentenceCount) * 100))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, round2(v)))
}

// round2 keeps repeated 0.1 steps from drifting
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
