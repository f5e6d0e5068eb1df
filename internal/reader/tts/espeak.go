// Cross-platform eSpeak implementation
package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ESpeakEngine implements TTS using eSpeak/eSpeak-NG
type ESpeakEngine struct {
	path  string
	voice string
}

// newESpeakEngine creates a new eSpeak TTS engine
func newESpeakEngine(config Config) (*ESpeakEngine, error) {
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	// Test the installation
	if err := exec.Command(espeakPath, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	return &ESpeakEngine{path: espeakPath, voice: config.Voice}, nil
}

func findESpeakExecutable() (string, error) {
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func (e *ESpeakEngine) Name() string {
	return EngineTypeESpeak.String()
}

// Speak runs eSpeak in the foreground; cancelling ctx kills the process.
func (e *ESpeakEngine) Speak(ctx context.Context, text string, opts Options) error {
	cmd := exec.CommandContext(ctx, e.path, espeakArgs(e.voice, text, opts)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("eSpeak failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func espeakArgs(voice, text string, opts Options) []string {
	args := []string{}

	// An explicit voice wins over the language
	if opts.Voice != "" && opts.Voice != "default" {
		voice = opts.Voice
	}
	if voice != "" && voice != "default" {
		args = append(args, "-v", voice)
	} else if opts.Language != "" {
		args = append(args, "-v", opts.Language)
	}

	// Set speed (words per minute, default is 175)
	rate := opts.Rate
	if rate <= 0 {
		rate = 1.0
	}
	args = append(args, "-s", strconv.Itoa(int(175*rate)))

	// Set volume (0-200, default is 100)
	args = append(args, "-a", strconv.Itoa(int(100*opts.Volume)))

	// "--" keeps text starting with a dash from being read as a flag
	return append(args, "--", text)
}

func (e *ESpeakEngine) Voices(ctx context.Context) ([]string, error) {
	output, err := exec.CommandContext(ctx, e.path, "--voices").Output()
	if err != nil {
		return nil, err
	}

	return parseESpeakVoices(string(output)), nil
}

func parseESpeakVoices(output string) []string {
	lines := strings.Split(output, "\n")
	voices := make([]string, 0)

	for i, line := range lines {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		// Parse voice line: Pty Language Age/Gender VoiceName          File          Other Languages
		fields := strings.Fields(line)
		if len(fields) >= 4 {
			voices = append(voices, fields[3])
		}
	}

	return voices
}
