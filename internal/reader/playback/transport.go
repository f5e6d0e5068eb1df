package playback

import "context"

// Transport is the control surface shared by the keyboard view and voice commands
type Transport interface {
	Play() error
	Pause() error
	Resume() error
	Stop() error
	TogglePlay() error
	SkipPrevious() error
	SkipNext() error
	SkipToSentence(index int) error
	PreviousChapter(ctx context.Context) error
	NextChapter(ctx context.Context) error
	IncreaseVolume() error
	DecreaseVolume() error
	DecreaseRate() error
	ResetRate() error
	IncreaseRate() error
}

var _ Transport = (*Controller)(nil)

// TogglePlay pauses while playing, resumes when paused and plays when stopped
func (c *Controller) TogglePlay() error {
	switch c.Snapshot().State {
	case Playing:
		return c.Pause()
	case Paused:
		return c.Resume()
	default:
		return c.Play()
	}
}

func (c *Controller) IncreaseVolume() error { return c.SetVolume(VolumeStep) }

func (c *Controller) DecreaseVolume() error { return c.SetVolume(-VolumeStep) }

func (c *Controller) IncreaseRate() error { return c.SetRate(RateStep) }

func (c *Controller) DecreaseRate() error { return c.SetRate(-RateStep) }
