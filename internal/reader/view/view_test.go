package view

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"readaloud/internal/domain/book"
	"readaloud/internal/domain/chapter"
	"readaloud/internal/reader/playback"
	"readaloud/internal/reader/segment"
)

func TestRenderOffsets(t *testing.T) {
	sentences := segment.Segment("One. Two. Three.")
	_, layout := render(sentences, 1, 80, 7)

	if layout.SequenceID() != 7 {
		t.Errorf("SequenceID() = %d, want 7", layout.SequenceID())
	}
	for i, want := range []int{0, 1, 2} {
		got, ok := layout.Offset(i)
		if !ok || got != want {
			t.Errorf("Offset(%d) = %d, %v, want %d, true", i, got, ok, want)
		}
	}
	if _, ok := layout.Offset(3); ok {
		t.Error("Offset(3) should not be laid out")
	}
	if _, ok := layout.Offset(-1); ok {
		t.Error("Offset(-1) should not be laid out")
	}
}

func TestRenderWrapsLongSentences(t *testing.T) {
	long := strings.Repeat("word ", 20)
	sentences := segment.Segment(long + ". Short.")
	_, layout := render(sentences, 0, 20, 1)

	second, ok := layout.Offset(1)
	if !ok {
		t.Fatal("second sentence not laid out")
	}
	if second < 2 {
		t.Errorf("Offset(1) = %d, want the first sentence to wrap over several lines", second)
	}
	if layout.lines <= second {
		t.Errorf("lines = %d, want more than %d", layout.lines, second)
	}
}

func TestRenderEmpty(t *testing.T) {
	content, layout := render(nil, -1, 80, 3)
	if content != "" {
		t.Errorf("content = %q, want empty", content)
	}
	if _, ok := layout.Offset(0); ok {
		t.Error("empty layout should have no offsets")
	}
}

type fakePlayer struct {
	mu        sync.Mutex
	calls     []string
	session   playback.Session
	sentences []chapter.Sentence
	events    chan playback.Event
	book      book.Book
}

func newFakePlayer() *fakePlayer {
	sentences := segment.Segment("First. Second. Third.")
	return &fakePlayer{
		sentences: sentences,
		events:    make(chan playback.Event, 8),
		book:      book.Book{ID: "b", Title: "A Book"},
		session: playback.Session{
			BookID:        "b",
			ChapterIndex:  1,
			ChapterCount:  2,
			SentenceIndex: 0,
			SentenceCount: len(sentences),
			Rate:          1,
			Volume:        1,
			Sequence:      1,
		},
	}
}

func (f *fakePlayer) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakePlayer) Play() error                           { return f.record("play") }
func (f *fakePlayer) Pause() error                          { return f.record("pause") }
func (f *fakePlayer) Resume() error                         { return f.record("resume") }
func (f *fakePlayer) Stop() error                           { return f.record("stop") }
func (f *fakePlayer) TogglePlay() error                     { return f.record("toggle") }
func (f *fakePlayer) SkipPrevious() error                   { return playback.ErrOutOfRange }
func (f *fakePlayer) SkipNext() error                       { return f.record("next-sentence") }
func (f *fakePlayer) SkipToSentence(int) error              { return f.record("skip") }
func (f *fakePlayer) PreviousChapter(context.Context) error { return f.record("previous-chapter") }
func (f *fakePlayer) NextChapter(context.Context) error     { return f.record("next-chapter") }
func (f *fakePlayer) IncreaseVolume() error                 { return f.record("volume-up") }
func (f *fakePlayer) DecreaseVolume() error                 { return f.record("volume-down") }
func (f *fakePlayer) DecreaseRate() error                   { return f.record("slower") }
func (f *fakePlayer) ResetRate() error                      { return f.record("reset-rate") }
func (f *fakePlayer) IncreaseRate() error                   { return f.record("faster") }

func (f *fakePlayer) Snapshot() playback.Session      { return f.session }
func (f *fakePlayer) Sentences() []chapter.Sentence   { return f.sentences }
func (f *fakePlayer) Book() book.Book                 { return f.book }
func (f *fakePlayer) Subscribe() (<-chan playback.Event, func()) {
	return f.events, func() {}
}

func (f *fakePlayer) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeysDriveTransport(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want string
	}{
		{"space toggles", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, "toggle"},
		{"stop", runes("s"), "stop"},
		{"next sentence", tea.KeyMsg{Type: tea.KeyRight}, "next-sentence"},
		{"next chapter", runes("]"), "next-chapter"},
		{"previous chapter", runes("["), "previous-chapter"},
		{"louder", runes("+"), "volume-up"},
		{"quieter", runes("-"), "volume-down"},
		{"slower", runes(","), "slower"},
		{"faster", runes("."), "faster"},
		{"reset rate", runes("0"), "reset-rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := newFakePlayer()
			m := New(context.Background(), player)
			m.Update(tt.msg)
			if got := player.lastCall(); got != tt.want {
				t.Errorf("last call = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutOfRangeShowsNotice(t *testing.T) {
	m := New(context.Background(), newFakePlayer())
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.notice == "" {
		t.Error("expected a notice after skipping before the first sentence")
	}
}

func TestQuitStopsPlayback(t *testing.T) {
	player := newFakePlayer()
	m := New(context.Background(), player)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit command should produce tea.QuitMsg")
	}
	if player.lastCall() != "stop" {
		t.Errorf("last call = %q, want stop", player.lastCall())
	}
}

func TestSentenceChangeScrolls(t *testing.T) {
	player := newFakePlayer()
	player.sentences = segment.Segment(strings.Repeat("A sentence here. ", 60))
	player.session.SentenceCount = len(player.sentences)

	m := New(context.Background(), player)
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 15})

	ev := playback.Event{Kind: playback.SentenceChanged, Session: player.session}
	ev.Session.SentenceIndex = 50
	_, cmd := m.Update(eventMsg(ev))
	if cmd == nil {
		t.Fatal("expected follow-up commands")
	}

	// play the animation out
	for len(m.frames) > 0 {
		m.Update(frameMsg{})
	}

	offset, _ := m.layout.Offset(50)
	want := offset - m.viewport.Height/3
	if m.viewport.YOffset != want {
		t.Errorf("YOffset = %d, want %d", m.viewport.YOffset, want)
	}
}

func TestLoadingAndFailureViews(t *testing.T) {
	player := newFakePlayer()
	m := New(context.Background(), player)
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})

	loading := player.session
	loading.Loading = true
	loading.SentenceIndex = -1
	loading.Sequence = 2
	m.Update(eventMsg(playback.Event{Kind: playback.ChapterLoading, Session: loading}))
	if !strings.Contains(m.View(), "Loading") {
		t.Error("view should show the loading state")
	}

	failed := loading
	failed.LastErr = &playback.NarrationError{Chapter: 2, Sentence: -1, Err: playback.ErrClosed}
	m.Update(eventMsg(playback.Event{Kind: playback.ChapterFailed, Session: failed}))
	if !strings.Contains(m.View(), "Could not load chapter") {
		t.Error("view should show the load failure")
	}
}

func TestChapterLoadedUsesEventSentences(t *testing.T) {
	player := newFakePlayer()
	m := New(context.Background(), player)
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})

	// the player has already moved on to another chapter
	player.sentences = nil

	loaded := player.session
	loaded.Sequence = 5
	loaded.SentenceCount = 2
	m.Update(eventMsg(playback.Event{
		Kind:      playback.ChapterLoaded,
		Session:   loaded,
		Sentences: segment.Segment("Kept. Sentences."),
	}))

	if len(m.sentences) != 2 || m.sentences[0].Text != "Kept" {
		t.Errorf("sentences = %v, want the ones carried by the event", m.sentences)
	}
	if m.layout.SequenceID() != 5 {
		t.Errorf("layout sequence = %d, want 5", m.layout.SequenceID())
	}
}

func TestHeaderShowsAuthorAndDescription(t *testing.T) {
	player := newFakePlayer()
	player.book.Author = "Nguyễn Du"
	player.book.Description = strings.Repeat("A long story about a long journey. ", 10)

	m := New(context.Background(), player)
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 30})

	collapsed := m.header()
	if !strings.Contains(collapsed, "Nguyễn Du") {
		t.Errorf("header %q does not show the author", collapsed)
	}
	if !strings.Contains(collapsed, "A long story") {
		t.Errorf("header %q does not show the description", collapsed)
	}
	if h := lipgloss.Height(collapsed); h != 2 {
		t.Errorf("collapsed header height = %d, want 2", h)
	}
	collapsedViewport := m.viewport.Height

	m.Update(runes("d"))
	expanded := m.header()
	if lipgloss.Height(expanded) <= 2 {
		t.Errorf("expanded header height = %d, want the description wrapped over several lines", lipgloss.Height(expanded))
	}
	if m.viewport.Height >= collapsedViewport {
		t.Errorf("viewport height = %d, want less than %d once details are shown", m.viewport.Height, collapsedViewport)
	}

	m.Update(runes("d"))
	if m.viewport.Height != collapsedViewport {
		t.Errorf("viewport height = %d, want %d after collapsing", m.viewport.Height, collapsedViewport)
	}
}

func TestHeaderWithoutDescription(t *testing.T) {
	m := New(context.Background(), newFakePlayer())
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	if h := lipgloss.Height(m.header()); h != 1 {
		t.Errorf("header height = %d, want 1", h)
	}
	if m.viewport.Height != 20-1-1-footerLines {
		t.Errorf("viewport height = %d", m.viewport.Height)
	}
}

func TestClosedEventsQuit(t *testing.T) {
	m := New(context.Background(), newFakePlayer())
	_, cmd := m.Update(eventsClosedMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("closed events should quit")
	}
}
