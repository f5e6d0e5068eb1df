package tts

import (
	"fmt"
	"strings"
)

func sayArgs(voice, text string, opts Options) []string {
	args := []string{}

	if opts.Voice != "" && opts.Voice != "default" {
		voice = opts.Voice
	}
	if voice != "" && voice != "default" {
		args = append(args, "-v", voice)
	}

	// Set rate (words per minute, default is ~175)
	rate := opts.Rate
	if rate <= 0 {
		rate = 1.0
	}
	args = append(args, "-r", fmt.Sprintf("%.0f", 175*rate))

	// say has no volume flag; the embedded volm command scales 0..1
	return append(args, "--", fmt.Sprintf("[[volm %.2f]] %s", opts.Volume, text))
}

// parseSayVoices reads `say -v ?` output: "VoiceName    language    # description"
func parseSayVoices(output string) []string {
	voices := make([]string, 0)
	for _, line := range strings.Split(output, "\n") {
		head, _, found := strings.Cut(line, "#")
		if !found {
			continue
		}
		fields := strings.Fields(head)
		if len(fields) < 2 {
			continue
		}
		// voice names may contain spaces; the last field is the locale
		voices = append(voices, strings.Join(fields[:len(fields)-1], " "))
	}
	return voices
}
