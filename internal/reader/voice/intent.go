// Package voice turns recognized speech into transport commands.
package voice

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

type Action int

const (
	ActionPlay Action = iota
	ActionPause
	ActionResume
	ActionStop
	ActionNextSentence
	ActionPreviousSentence
	ActionNextChapter
	ActionPreviousChapter
	ActionVolumeUp
	ActionVolumeDown
	ActionSlower
	ActionNormalSpeed
	ActionFaster
	ActionGoToSentence
)

var actionNames = map[Action]string{
	ActionPlay:             "play",
	ActionPause:            "pause",
	ActionResume:           "resume",
	ActionStop:             "stop",
	ActionNextSentence:     "next-sentence",
	ActionPreviousSentence: "previous-sentence",
	ActionNextChapter:      "next-chapter",
	ActionPreviousChapter:  "previous-chapter",
	ActionVolumeUp:         "volume-up",
	ActionVolumeDown:       "volume-down",
	ActionSlower:           "slower",
	ActionNormalSpeed:      "normal-speed",
	ActionFaster:           "faster",
	ActionGoToSentence:     "go-to-sentence",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Intent is a parsed command. Sentence is 1-based and only set for ActionGoToSentence.
type Intent struct {
	Action   Action
	Sentence int
}

type phrase struct {
	text   string
	action Action
}

// Phrases are matched against the whole transcript; the longest match wins
// so "next chapter" beats "next".
var phrases = []phrase{
	{"play", ActionPlay},
	{"start", ActionPlay},
	{"read", ActionPlay},
	{"đọc", ActionPlay},
	{"phát", ActionPlay},
	{"bắt đầu", ActionPlay},

	{"pause", ActionPause},
	{"wait", ActionPause},
	{"tạm dừng", ActionPause},

	{"resume", ActionResume},
	{"continue", ActionResume},
	{"tiếp tục", ActionResume},
	{"đọc tiếp", ActionResume},

	{"stop", ActionStop},
	{"dừng", ActionStop},
	{"dừng lại", ActionStop},

	{"next", ActionNextSentence},
	{"next sentence", ActionNextSentence},
	{"skip", ActionNextSentence},
	{"câu tiếp", ActionNextSentence},
	{"câu tiếp theo", ActionNextSentence},
	{"câu sau", ActionNextSentence},

	{"back", ActionPreviousSentence},
	{"previous", ActionPreviousSentence},
	{"previous sentence", ActionPreviousSentence},
	{"câu trước", ActionPreviousSentence},

	{"next chapter", ActionNextChapter},
	{"chương tiếp", ActionNextChapter},
	{"chương tiếp theo", ActionNextChapter},
	{"chương sau", ActionNextChapter},

	{"previous chapter", ActionPreviousChapter},
	{"chương trước", ActionPreviousChapter},

	{"louder", ActionVolumeUp},
	{"volume up", ActionVolumeUp},
	{"to lên", ActionVolumeUp},
	{"tăng âm lượng", ActionVolumeUp},

	{"quieter", ActionVolumeDown},
	{"softer", ActionVolumeDown},
	{"volume down", ActionVolumeDown},
	{"nhỏ lại", ActionVolumeDown},
	{"giảm âm lượng", ActionVolumeDown},

	{"slower", ActionSlower},
	{"slow down", ActionSlower},
	{"chậm lại", ActionSlower},
	{"đọc chậm", ActionSlower},

	{"normal speed", ActionNormalSpeed},
	{"reset speed", ActionNormalSpeed},
	{"tốc độ bình thường", ActionNormalSpeed},

	{"faster", ActionFaster},
	{"speed up", ActionFaster},
	{"nhanh lên", ActionFaster},
	{"đọc nhanh", ActionFaster},
}

var goToRegex = regexp.MustCompile(`(?:^| )(?:go to )?(?:sentence|câu|câu số) (\d+)(?: |$)`)

// Parse maps a recognized transcript to an intent. Matching ignores case,
// punctuation and surrounding filler words.
func Parse(transcript string) (Intent, bool) {
	text := normalize(transcript)
	if text == "" {
		return Intent{}, false
	}

	if m := goToRegex.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
			return Intent{Action: ActionGoToSentence, Sentence: n}, true
		}
	}

	padded := " " + text + " "
	best := -1
	for i, p := range phrases {
		if !strings.Contains(padded, " "+p.text+" ") {
			continue
		}
		if best < 0 || len(p.text) > len(phrases[best].text) {
			best = i
		}
	}
	if best < 0 {
		return Intent{}, false
	}
	return Intent{Action: phrases[best].action}, true
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
