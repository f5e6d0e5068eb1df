// Package view is the terminal reading screen: chapter text with the spoken
// sentence highlighted and kept in view, plus keyboard transport controls.
package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"readaloud/internal/domain/book"
	"readaloud/internal/domain/chapter"
	"readaloud/internal/reader/playback"
	"readaloud/internal/reader/scroll"
)

// Player is what the screen needs from the playback controller
type Player interface {
	playback.Transport
	Snapshot() playback.Session
	Sentences() []chapter.Sentence
	Subscribe() (<-chan playback.Event, func())
	Book() book.Book
}

const (
	animationSteps = 8
	frameInterval  = 16 * time.Millisecond
	footerLines    = 3
)

type eventMsg playback.Event

type eventsClosedMsg struct{}

type frameMsg time.Time

type Model struct {
	ctx         context.Context
	player      Player
	events      <-chan playback.Event
	unsubscribe func()

	viewport viewport.Model
	help     help.Model
	sync     *scroll.Synchronizer
	layout   *sentenceLayout
	frames   []int

	session   playback.Session
	sentences []chapter.Sentence
	notice    string
	ready     bool
	width     int
	height    int
	details   bool
}

// New subscribes to player; the subscription ends when the program quits.
func New(ctx context.Context, player Player) *Model {
	events, unsubscribe := player.Subscribe()
	m := &Model{
		ctx:         ctx,
		player:      player,
		events:      events,
		unsubscribe: unsubscribe,
		viewport:    viewport.New(80, 20),
		help:        help.New(),
		session:     player.Snapshot(),
		sentences:   player.Sentences(),
		width:       80,
	}
	m.viewport.KeyMap = viewport.KeyMap{}
	m.sync = scroll.New(m)
	m.sync.Reset(m.session.Sequence)
	m.sync.Follow(m.session.SentenceIndex)
	return m
}

func waitForEvent(ch <-chan playback.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// ScrollTo implements scroll.Scroller. Animated scrolls are played out over
// a few frames driven from Update.
func (m *Model) ScrollTo(offset int, animated bool) {
	// keep the sentence a little below the top edge
	target := offset - m.viewport.Height/3
	if target < 0 {
		target = 0
	}
	if !animated || !m.ready {
		m.frames = nil
		m.viewport.SetYOffset(target)
		return
	}
	m.frames = scroll.Animate(m.viewport.YOffset, target, animationSteps)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.help.Width = msg.Width
		m.resize()
		m.ready = true
		// wrapping changed, measure again and re-follow
		m.sync.Follow(m.session.SentenceIndex)
		return m, m.relayout()

	case eventMsg:
		m.apply(playback.Event(msg))
		return m, tea.Batch(waitForEvent(m.events), m.relayout())

	case eventsClosedMsg:
		return m, tea.Quit

	case frameMsg:
		if len(m.frames) == 0 {
			return m, nil
		}
		m.viewport.SetYOffset(m.frames[0])
		m.frames = m.frames[1:]
		if len(m.frames) > 0 {
			return m, frame()
		}
	}
	return m, nil
}

func (m *Model) apply(ev playback.Event) {
	prev := m.session
	m.session = ev.Session

	switch ev.Kind {
	case playback.ChapterLoading:
		m.sentences = nil
		m.notice = ""
		m.sync.Reset(ev.Session.Sequence)
	case playback.ChapterLoaded:
		m.sentences = ev.Sentences
		m.notice = ""
		m.sync.Reset(ev.Session.Sequence)
		m.sync.Follow(ev.Session.SentenceIndex)
		m.frames = nil
		m.viewport.GotoTop()
	case playback.ChapterFailed:
		m.sentences = nil
	case playback.SentenceChanged:
		if ev.Session.SentenceIndex != prev.SentenceIndex {
			m.sync.Follow(ev.Session.SentenceIndex)
		}
	}
}

// resize gives the viewport whatever the header and footer leave over
func (m *Model) resize() {
	if m.height == 0 {
		return
	}
	// header plus the blank line under it
	m.viewport.Height = m.height - lipgloss.Height(m.header()) - 1 - footerLines
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
}

// relayout renders the chapter into the viewport and lets the synchronizer
// scroll once the new layout is measured.
func (m *Model) relayout() tea.Cmd {
	content, layout := render(m.sentences, m.session.SentenceIndex, m.width, m.session.Sequence)
	m.layout = layout
	m.viewport.SetContent(content)

	if _, ok := m.sync.Commit(layout); ok && len(m.frames) > 0 {
		return frame()
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	var err error
	switch {
	case key.Matches(msg, keys.Quit):
		_ = m.player.Stop()
		m.unsubscribe()
		return tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return nil
	case key.Matches(msg, keys.Details):
		m.details = !m.details
		m.resize()
		m.sync.Follow(m.session.SentenceIndex)
		return m.relayout()
	case key.Matches(msg, keys.Toggle):
		err = m.player.TogglePlay()
	case key.Matches(msg, keys.Stop):
		err = m.player.Stop()
	case key.Matches(msg, keys.PrevSent):
		err = m.player.SkipPrevious()
	case key.Matches(msg, keys.NextSent):
		err = m.player.SkipNext()
	case key.Matches(msg, keys.PrevChapter):
		err = m.player.PreviousChapter(m.ctx)
	case key.Matches(msg, keys.NextChapter):
		err = m.player.NextChapter(m.ctx)
	case key.Matches(msg, keys.VolumeUp):
		err = m.player.IncreaseVolume()
	case key.Matches(msg, keys.VolumeDown):
		err = m.player.DecreaseVolume()
	case key.Matches(msg, keys.Slower):
		err = m.player.DecreaseRate()
	case key.Matches(msg, keys.Faster):
		err = m.player.IncreaseRate()
	case key.Matches(msg, keys.ResetRate):
		err = m.player.ResetRate()
	default:
		return nil
	}
	m.notice = noticeFor(err)
	return nil
}

func noticeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, playback.ErrOutOfRange):
		return "nothing further in that direction"
	case errors.Is(err, playback.ErrEmptyChapter):
		return "this chapter has nothing to read"
	case errors.Is(err, playback.ErrInvalidTransition):
		return ""
	default:
		return err.Error()
	}
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")

	switch {
	case m.session.Loading && m.session.LastErr != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Could not load chapter %d: %v", m.session.ChapterIndex, m.session.LastErr)))
		b.WriteString(strings.Repeat("\n", max(m.viewport.Height-1, 0)))
	case m.session.Loading:
		b.WriteString(loadingStyle.Render("Loading..."))
		b.WriteString(strings.Repeat("\n", max(m.viewport.Height-1, 0)))
	default:
		b.WriteString(m.viewport.View())
	}

	b.WriteString("\n")
	b.WriteString(m.status())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(errorStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(keys))

	return b.String()
}

func (m *Model) header() string {
	bk := m.player.Book()
	title := bk.Title
	if title == "" {
		title = bk.ID
	}
	chapterLine := fmt.Sprintf("Chapter %d", m.session.ChapterIndex)
	if m.session.ChapterCount > 0 {
		chapterLine = fmt.Sprintf("Chapter %d/%d", m.session.ChapterIndex, m.session.ChapterCount)
	}
	if name := bk.ChapterTitle(m.session.ChapterIndex); name != "" {
		chapterLine += " · " + name
	}

	parts := []string{titleStyle.Render(title)}
	if bk.Author != "" {
		parts = append(parts, authorStyle.Render(" by "+bk.Author))
	}
	parts = append(parts, "  ", chapterStyle.Render(chapterLine))
	header := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

	description := strings.Join(strings.Fields(bk.Description), " ")
	if description == "" {
		return header
	}
	if m.details {
		description = descriptionStyle.Width(m.width).Render(description)
	} else {
		// one line, cut at the edge
		description = descriptionStyle.MaxWidth(m.width).Render(description)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, description)
}

func (m *Model) status() string {
	s := m.session

	var state string
	switch s.State {
	case playback.Playing:
		state = playingStyle.Render("▶ PLAYING")
	case playback.Paused:
		state = pausedStyle.Render("⏸ PAUSED")
	default:
		state = statusStyle.Render("■ STOPPED")
	}

	position := "-"
	if s.SentenceCount > 0 && s.SentenceIndex >= 0 {
		position = fmt.Sprintf("%d/%d", s.SentenceIndex+1, s.SentenceCount)
	}

	line := fmt.Sprintf("sentence %s  %d%%  rate %.1fx  volume %d%%",
		position, s.Progress(), s.Rate, int(s.Volume*100+0.5))
	if s.Completed {
		line += "  done"
	}
	if s.LastErr != nil && !s.Loading {
		line += "  " + errorStyle.Render(s.LastErr.Error())
	}
	return state + statusStyle.Render(line)
}
