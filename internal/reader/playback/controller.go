package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"readaloud/internal/content"
	"readaloud/internal/domain/book"
	"readaloud/internal/domain/chapter"
	"readaloud/internal/reader/segment"
	"readaloud/internal/reader/tts"
)

type Options struct {
	Backend  tts.Backend
	Provider content.Provider
	Book     book.Book
	Language string
	Voice    string
	Rate     float64 // 0 means DefaultRate
	Volume   float64
	Logger   logrus.FieldLogger
}

// Controller drives a narration backend through a chapter one sentence at a
// time. Every mutation happens under mu, so the controller behaves as if it
// ran on a single thread. Backend reports carry the generation they were
// spoken under and are ignored once the generation has moved on.
type Controller struct {
	backend  tts.Backend
	provider content.Provider
	book     book.Book
	language string
	voice    string
	log      logrus.FieldLogger

	mu          sync.Mutex
	session     Session
	sentences   []chapter.Sentence
	loadSeq     uint64
	loadCancel  context.CancelFunc
	closed      bool
	unsubscribe func()
	subs        map[int]chan Event
	nextSub     int
	loads       sync.WaitGroup
}

func New(opts Options) (*Controller, error) {
	if opts.Backend == nil {
		return nil, errors.New("playback: backend is required")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	rate := opts.Rate
	if rate == 0 {
		rate = DefaultRate
	}

	c := &Controller{
		backend:  opts.Backend,
		provider: opts.Provider,
		book:     opts.Book,
		language: opts.Language,
		voice:    opts.Voice,
		log:      log.WithField("book", opts.Book.ID),
		subs:     make(map[int]chan Event),
		session: Session{
			BookID:        opts.Book.ID,
			ChapterCount:  opts.Book.Count(),
			SentenceIndex: -1,
			State:         Stopped,
			Rate:          clamp(rate, MinRate, MaxRate),
			Volume:        clamp(opts.Volume, MinVolume, MaxVolume),
		},
	}

	unsubscribe, err := opts.Backend.Subscribe(c.handleReport)
	if err != nil {
		return nil, err
	}
	c.unsubscribe = unsubscribe
	return c, nil
}

// Snapshot returns a copy of the current session
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Session {
	s := c.session
	s.SentenceCount = len(c.sentences)
	return s
}

// Sentences returns a copy of the loaded sentences
func (c *Controller) Sentences() []chapter.Sentence {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chapter.Sentence, len(c.sentences))
	copy(out, c.sentences)
	return out
}

func (c *Controller) CurrentSentence() (chapter.Sentence, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.SentenceIndex < 0 {
		return chapter.Sentence{}, false
	}
	return c.sentences[c.session.SentenceIndex], true
}

func (c *Controller) Progress() int {
	return c.Snapshot().Progress()
}

func (c *Controller) Book() book.Book {
	return c.book
}

// LoadChapter replaces the sentence list. Any narration or pending fetch is cancelled.
func (c *Controller) LoadChapter(index int, sentences []chapter.Sentence) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.loadSeq++
	c.cancelLoadLocked()
	c.loadChapterLocked(index, sentences)
}

// OpenChapter fetches and loads a chapter, blocking until the fetch finishes.
func (c *Controller) OpenChapter(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.openable(index) {
		c.mu.Unlock()
		return ErrOutOfRange
	}
	ctx, seq := c.beginLoadLocked(ctx, index)
	c.mu.Unlock()

	return c.fetch(ctx, index, seq)
}

func (c *Controller) NextChapter(ctx context.Context) error {
	return c.switchChapter(ctx, 1)
}

func (c *Controller) PreviousChapter(ctx context.Context) error {
	return c.switchChapter(ctx, -1)
}

// switchChapter applies the chapter change immediately and fetches in the background.
// A later switch supersedes a fetch still in flight.
func (c *Controller) switchChapter(ctx context.Context, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	target := c.session.ChapterIndex + delta
	if !c.book.HasChapter(target) {
		c.log.WithField("chapter", target).Debug("chapter navigation out of range")
		return ErrOutOfRange
	}

	ctx, seq := c.beginLoadLocked(ctx, target)
	c.loads.Add(1)
	go func() {
		defer c.loads.Done()
		c.fetch(ctx, target, seq)
	}()
	return nil
}

// openable reports whether index may be opened directly. Without a chapter
// count any chapter may be opened, but navigation has nowhere to go.
func (c *Controller) openable(index int) bool {
	if c.book.Count() == 0 {
		return index >= 1
	}
	return c.book.HasChapter(index)
}

func (c *Controller) fetch(ctx context.Context, index int, seq uint64) error {
	if c.provider == nil {
		return c.finishLoad(index, seq, chapter.Chapter{}, errors.New("no content provider configured"))
	}
	ch, err := c.provider.FetchChapter(ctx, c.book.ID, index)
	return c.finishLoad(index, seq, ch, err)
}

func (c *Controller) finishLoad(index int, seq uint64, ch chapter.Chapter, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.loadSeq {
		c.log.WithField("chapter", index).Debug("discarding superseded chapter load")
		return nil
	}
	c.cancelLoadLocked()

	if err != nil {
		var fe *content.FetchError
		if !errors.As(err, &fe) {
			err = &content.FetchError{BookID: c.book.ID, Chapter: index, Err: err}
		}
		c.session.LastErr = err
		c.log.WithError(err).WithField("chapter", index).Warn("failed to load chapter")
		c.emitLocked(ChapterFailed)
		return err
	}

	c.loadChapterLocked(index, segment.Segment(ch.Content))
	return nil
}

// beginLoadLocked marks the session as loading index and returns the token
// a fetch must still hold when it completes.
func (c *Controller) beginLoadLocked(ctx context.Context, index int) (context.Context, uint64) {
	c.loadSeq++
	c.cancelLoadLocked()
	ctx, c.loadCancel = context.WithCancel(ctx)

	c.cancelLocked()
	c.sentences = nil
	c.session.ChapterIndex = index
	c.session.SentenceIndex = -1
	c.session.State = Stopped
	c.session.Loading = true
	c.session.Completed = false
	c.session.LastErr = nil
	c.session.Sequence++

	c.log.WithField("chapter", index).Debug("loading chapter")
	c.emitLocked(ChapterLoading)
	return ctx, c.loadSeq
}

func (c *Controller) cancelLoadLocked() {
	if c.loadCancel != nil {
		c.loadCancel()
		c.loadCancel = nil
	}
}

func (c *Controller) loadChapterLocked(index int, sentences []chapter.Sentence) {
	c.cancelLocked()

	c.sentences = make([]chapter.Sentence, len(sentences))
	copy(c.sentences, sentences)

	c.session.ChapterIndex = index
	c.session.SentenceIndex = -1
	if len(c.sentences) > 0 {
		c.session.SentenceIndex = 0
	}
	c.session.State = Stopped
	c.session.Loading = false
	c.session.Completed = false
	c.session.LastErr = nil
	c.session.Sequence++

	c.log.WithFields(logrus.Fields{
		"chapter":   index,
		"sentences": len(c.sentences),
	}).Info("chapter loaded")
	c.emitLocked(ChapterLoaded)
}

// cancelLocked invalidates every outstanding utterance
func (c *Controller) cancelLocked() {
	c.session.Generation++
	c.backend.Cancel()
}

// speakLocked narrates the sentence under the cursor with the current generation
func (c *Controller) speakLocked() error {
	idx := c.session.SentenceIndex
	err := c.backend.Speak(tts.Utterance{
		Generation: c.session.Generation,
		Text:       c.sentences[idx].Text,
		Options: tts.Options{
			Language: c.language,
			Voice:    c.voice,
			Rate:     c.session.Rate,
			Volume:   c.session.Volume,
		},
	})
	if err != nil {
		c.session.State = Stopped
		c.session.LastErr = &NarrationError{Chapter: c.session.ChapterIndex, Sentence: idx, Err: err}
		c.log.WithError(err).Error("failed to start narration")
	}
	return err
}

func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usableLocked(); err != nil {
		return err
	}
	if c.session.State == Playing {
		return ErrInvalidTransition
	}
	return c.startLocked()
}

func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.session.State != Playing {
		c.log.WithField("state", c.session.State).Debug("ignoring pause")
		return ErrInvalidTransition
	}
	c.cancelLocked()
	c.session.State = Paused
	c.emitLocked(StateChanged)
	return nil
}

// Resume restarts the paused sentence from its beginning
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usableLocked(); err != nil {
		return err
	}
	if c.session.State != Paused {
		c.log.WithField("state", c.session.State).Debug("ignoring resume")
		return ErrInvalidTransition
	}
	return c.startLocked()
}

func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.cancelLocked()
	c.session.State = Stopped
	c.emitLocked(StateChanged)
	return nil
}

func (c *Controller) usableLocked() error {
	if c.closed {
		return ErrClosed
	}
	if len(c.sentences) == 0 {
		return ErrEmptyChapter
	}
	return nil
}

func (c *Controller) startLocked() error {
	c.session.State = Playing
	c.session.Completed = false
	c.session.LastErr = nil
	err := c.speakLocked()
	c.emitLocked(StateChanged)
	return err
}

// SkipToSentence moves the cursor to index, clamped into the chapter. While
// playing, the current utterance is cancelled and the target is spoken.
func (c *Controller) SkipToSentence(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if len(c.sentences) == 0 {
		return nil
	}
	if index < 0 {
		index = 0
	}
	if last := len(c.sentences) - 1; index > last {
		index = last
	}
	return c.skipLocked(index)
}

func (c *Controller) SkipNext() error {
	return c.skipBy(1)
}

func (c *Controller) SkipPrevious() error {
	return c.skipBy(-1)
}

func (c *Controller) skipBy(delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	target := c.session.SentenceIndex + delta
	if len(c.sentences) == 0 || target < 0 || target >= len(c.sentences) {
		return ErrOutOfRange
	}
	return c.skipLocked(target)
}

func (c *Controller) skipLocked(index int) error {
	var err error
	if c.session.State == Playing {
		c.cancelLocked()
		c.session.SentenceIndex = index
		err = c.speakLocked()
	} else {
		c.session.SentenceIndex = index
	}
	c.session.Completed = false
	c.emitLocked(SentenceChanged)
	return err
}

// SetRate adds delta to the speech rate. The in-flight utterance keeps its rate.
func (c *Controller) SetRate(delta float64) error {
	return c.updateSettings(func(s *Session) {
		s.Rate = clamp(s.Rate+delta, MinRate, MaxRate)
	})
}

func (c *Controller) SetVolume(delta float64) error {
	return c.updateSettings(func(s *Session) {
		s.Volume = clamp(s.Volume+delta, MinVolume, MaxVolume)
	})
}

func (c *Controller) ResetRate() error {
	return c.updateSettings(func(s *Session) {
		s.Rate = DefaultRate
	})
}

func (c *Controller) updateSettings(apply func(*Session)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	apply(&c.session)
	c.emitLocked(SettingsChanged)
	return nil
}

func (c *Controller) handleReport(r tts.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fields := logrus.Fields{
		"generation": r.Generation,
		"current":    c.session.Generation,
		"outcome":    r.Outcome,
	}
	if c.closed || r.Generation != c.session.Generation {
		c.log.WithFields(fields).Debug("discarding stale narration report")
		return
	}

	switch r.Outcome {
	case tts.OutcomeDone:
		if c.session.SentenceIndex >= len(c.sentences)-1 {
			c.session.State = Stopped
			c.session.Completed = true
			c.log.WithField("chapter", c.session.ChapterIndex).Info("chapter finished")
			c.emitLocked(StateChanged)
			return
		}
		c.session.SentenceIndex++
		if c.session.State == Playing {
			c.speakLocked()
		}
		c.emitLocked(SentenceChanged)

	case tts.OutcomeStopped, tts.OutcomeError:
		c.session.State = Stopped
		if r.Outcome == tts.OutcomeError {
			c.session.LastErr = &NarrationError{
				Chapter:  c.session.ChapterIndex,
				Sentence: c.session.SentenceIndex,
				Err:      r.Err,
			}
			c.log.WithError(r.Err).WithFields(fields).Error("narration failed")
		}
		c.emitLocked(StateChanged)
	}
}

// Close stops narration, releases the backend subscription and ends every
// event subscription. It waits for background chapter fetches to return.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.cancelLocked()
	c.session.State = Stopped
	c.closed = true
	c.cancelLoadLocked()
	c.closeSubsLocked()
	unsubscribe := c.unsubscribe
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.loads.Wait()
	return nil
}
