package playback

import "readaloud/internal/domain/chapter"

// EventKind says what changed
type EventKind int

const (
	StateChanged EventKind = iota
	SentenceChanged
	ChapterLoading
	ChapterLoaded
	ChapterFailed
	SettingsChanged
)

func (k EventKind) String() string {
	switch k {
	case StateChanged:
		return "state-changed"
	case SentenceChanged:
		return "sentence-changed"
	case ChapterLoading:
		return "chapter-loading"
	case ChapterLoaded:
		return "chapter-loaded"
	case ChapterFailed:
		return "chapter-failed"
	case SettingsChanged:
		return "settings-changed"
	default:
		return "unknown"
	}
}

// Event carries the session as it was right after the change. ChapterLoaded
// events also carry the loaded sentences, matching Session.Sequence.
type Event struct {
	Kind      EventKind
	Session   Session
	Sentences []chapter.Sentence
}

const subscriberBuffer = 64

// Subscribe returns a channel of events and a func that ends the subscription.
// Events are dropped for a subscriber whose buffer is full; Snapshot is always current.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// emitLocked must be called with c.mu held
func (c *Controller) emitLocked(kind EventKind) {
	ev := Event{Kind: kind, Session: c.snapshotLocked()}
	if kind == ChapterLoaded {
		ev.Sentences = make([]chapter.Sentence, len(c.sentences))
		copy(ev.Sentences, c.sentences)
	}
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			c.log.WithField("event", kind).Debug("subscriber buffer full, dropping event")
		}
	}
}

func (c *Controller) closeSubsLocked() {
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}
