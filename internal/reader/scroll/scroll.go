// Package scroll keeps a scrollable view positioned on the sentence being spoken.
package scroll

import (
	"math"
	"sync"
)

// Scroller moves the viewport
type Scroller interface {
	ScrollTo(offset int, animated bool)
}

// Layout is a measured rendering of one sentence sequence
type Layout interface {
	// SequenceID identifies the sentence sequence this layout was built from
	SequenceID() uint64
	// Offset returns the top line of sentence i, or false if it is not laid out
	Offset(i int) (int, bool)
}

// Synchronizer follows the active sentence index. The view calls Commit
// after every layout pass; the scroll happens only once the layout matches
// the current sequence and the target has been measured.
type Synchronizer struct {
	scroller Scroller

	mu       sync.Mutex
	sequence uint64
	target   int
	pending  bool
}

func New(scroller Scroller) *Synchronizer {
	return &Synchronizer{scroller: scroller, target: -1}
}

// Reset forgets the previous target; layouts for any other sequence are ignored from now on.
func (s *Synchronizer) Reset(sequence uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence = sequence
	s.target = -1
	s.pending = false
}

// Follow records the sentence to keep in view
func (s *Synchronizer) Follow(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = index
	s.pending = index >= 0
}

// Commit measures the followed sentence in layout and scrolls to it.
// It returns the requested offset, or false when the scroll was skipped.
func (s *Synchronizer) Commit(layout Layout) (int, bool) {
	s.mu.Lock()
	if !s.pending || layout == nil || layout.SequenceID() != s.sequence {
		s.mu.Unlock()
		return 0, false
	}
	offset, ok := layout.Offset(s.target)
	if !ok {
		// not laid out yet, try again on the next pass
		s.mu.Unlock()
		return 0, false
	}
	s.pending = false
	s.mu.Unlock()

	s.scroller.ScrollTo(offset, true)
	return offset, true
}

// Target returns the followed index, -1 when nothing is followed
func (s *Synchronizer) Target() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Animate returns the offsets of an ease-out scroll from one offset to
// another in the given number of frames. The last offset is always to.
func Animate(from, to, steps int) []int {
	if steps <= 1 || from == to {
		return []int{to}
	}
	frames := make([]int, steps)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		eased := 1 - math.Pow(1-t, 3)
		frames[i-1] = from + int(math.Round(eased*float64(to-from)))
	}
	frames[steps-1] = to
	return frames
}
