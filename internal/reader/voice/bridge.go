package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"readaloud/internal/reader/playback"
)

// Bridge invokes transport operations for recognized voice commands
type Bridge struct {
	transport playback.Transport
	log       logrus.FieldLogger
}

func NewBridge(transport playback.Transport, log logrus.FieldLogger) *Bridge {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bridge{transport: transport, log: log.WithField("component", "voice")}
}

// Dispatch runs the transport operation for intent
func (b *Bridge) Dispatch(ctx context.Context, intent Intent) error {
	t := b.transport
	switch intent.Action {
	case ActionPlay:
		return t.Play()
	case ActionPause:
		return t.Pause()
	case ActionResume:
		return t.Resume()
	case ActionStop:
		return t.Stop()
	case ActionNextSentence:
		return t.SkipNext()
	case ActionPreviousSentence:
		return t.SkipPrevious()
	case ActionNextChapter:
		return t.NextChapter(ctx)
	case ActionPreviousChapter:
		return t.PreviousChapter(ctx)
	case ActionVolumeUp:
		return t.IncreaseVolume()
	case ActionVolumeDown:
		return t.DecreaseVolume()
	case ActionSlower:
		return t.DecreaseRate()
	case ActionNormalSpeed:
		return t.ResetRate()
	case ActionFaster:
		return t.IncreaseRate()
	case ActionGoToSentence:
		return t.SkipToSentence(intent.Sentence - 1)
	default:
		return fmt.Errorf("unknown voice action %d", intent.Action)
	}
}

// Handle parses one transcript and dispatches it. Unrecognized phrases and
// commands the current state rejects are logged, not returned.
func (b *Bridge) Handle(ctx context.Context, transcript string) (Intent, bool) {
	intent, ok := Parse(transcript)
	if !ok {
		b.log.WithField("transcript", transcript).Info("unrecognized voice command")
		return Intent{}, false
	}

	fields := logrus.Fields{"transcript": transcript, "action": intent.Action}
	if err := b.Dispatch(ctx, intent); err != nil {
		if errors.Is(err, playback.ErrInvalidTransition) || errors.Is(err, playback.ErrOutOfRange) ||
			errors.Is(err, playback.ErrEmptyChapter) {
			b.log.WithFields(fields).WithError(err).Debug("voice command ignored")
		} else {
			b.log.WithFields(fields).WithError(err).Warn("voice command failed")
		}
		return intent, true
	}
	b.log.WithFields(fields).Debug("voice command")
	return intent, true
}

// Run handles one transcript per line from r until EOF or ctx is done.
func (b *Bridge) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			b.Handle(ctx, line)
		}
	}
}
