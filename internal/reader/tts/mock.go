package tts

import (
	"context"
	"strings"
	"time"

	"github.com/fatih/color"
)

// MockEngine pretends to speak by sleeping for roughly the time a reader
// would take at the requested rate.
type MockEngine struct {
	wordsPerMinute float64
	quiet          bool
}

func NewMockEngine(c Config) *MockEngine {
	return &MockEngine{wordsPerMinute: 150, quiet: c.Quiet}
}

func (m *MockEngine) Name() string {
	return EngineTypeMock.String()
}

func (m *MockEngine) Voices(ctx context.Context) ([]string, error) {
	return []string{"mock-voice"}, nil
}

func (m *MockEngine) Speak(ctx context.Context, text string, opts Options) error {
	duration := m.Duration(text, opts.Rate)

	if !m.quiet {
		color.Yellow("🔊 %s (simulated for %v)", text, duration)
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Duration estimates reading time based on text length
func (m *MockEngine) Duration(text string, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1.0
	}
	words := len(strings.Fields(text))
	return time.Duration(float64(words) * float64(time.Minute) / (m.wordsPerMinute * rate))
}
