//go:build darwin

package tts

import (
	"context"
	"fmt"
	"os/exec"
)

// SayEngine speaks through the macOS built-in 'say' command
type SayEngine struct {
	voice string
}

func newSayEngine(config Config) (Engine, error) {
	if _, err := exec.LookPath("say"); err != nil {
		return nil, fmt.Errorf("say not found: %w", err)
	}
	return &SayEngine{voice: config.Voice}, nil
}

func (s *SayEngine) Name() string {
	return EngineTypeSay.String()
}

func (s *SayEngine) Speak(ctx context.Context, text string, opts Options) error {
	if err := exec.CommandContext(ctx, "say", sayArgs(s.voice, text, opts)...).Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("say failed: %w", err)
	}
	return nil
}

func (s *SayEngine) Voices(ctx context.Context) ([]string, error) {
	output, err := exec.CommandContext(ctx, "say", "-v", "?").Output()
	if err != nil {
		return nil, err
	}
	return parseSayVoices(string(output)), nil
}
