package segment

import (
	"reflect"
	"strings"
	"testing"

	"readaloud/internal/domain/chapter"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "mixed terminators",
			input:    "Hello world. How are you? Fine!",
			expected: []string{"Hello world", "How are you", "Fine"},
		},
		{
			name:     "semicolon splits",
			input:    "First part; second part.",
			expected: []string{"First part", "second part"},
		},
		{
			name:     "empty string",
			input:    "",
			expected: []string{},
		},
		{
			name:     "only punctuation and whitespace",
			input:    " . ?! ;\n\t.",
			expected: []string{},
		},
		{
			name:     "no terminator",
			input:    "  a sentence without an end  ",
			expected: []string{"a sentence without an end"},
		},
		{
			name:     "ellipsis and newlines",
			input:    "Wait...\nWhat happened?\n\nNothing",
			expected: []string{"Wait", "What happened", "Nothing"},
		},
		{
			name:     "vietnamese text",
			input:    "Xin chào. Bạn có khỏe không? Tôi khỏe!",
			expected: []string{"Xin chào", "Bạn có khỏe không", "Tôi khỏe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Segment(tt.input)
			if result == nil {
				t.Fatal("Segment() returned nil, want empty slice")
			}
			got := chapter.Texts(result)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Segment(%q) = %q, want %q", tt.input, got, tt.expected)
			}
			for i, s := range result {
				if s.Order != i {
					t.Errorf("sentence %d has order %d", i, s.Order)
				}
			}
		})
	}
}

func TestSegmentDeterministic(t *testing.T) {
	inputs := []string{
		"",
		"One. Two? Three! Four; Five",
		"  spaced   out .  text ;; here ",
		strings.Repeat("Lorem ipsum dolor sit amet. ", 50),
	}

	for _, input := range inputs {
		first := Segment(input)
		second := Segment(input)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Segment(%q) not repeatable: %v vs %v", input, first, second)
		}
		for _, s := range first {
			if strings.TrimSpace(s.Text) == "" {
				t.Errorf("Segment(%q) produced an empty sentence", input)
			}
			if s.Text != strings.TrimSpace(s.Text) {
				t.Errorf("Segment(%q) produced untrimmed sentence %q", input, s.Text)
			}
		}
	}
}

func TestJoinKeepsSentenceCount(t *testing.T) {
	inputs := []string{
		"Hello world. How are you? Fine!",
		"a;b;c;d",
		"single",
		"",
	}

	for _, input := range inputs {
		original := Segment(input)
		again := Segment(Join(original))
		if len(again) != len(original) {
			t.Errorf("resegmenting %q: got %d sentences, want %d", input, len(again), len(original))
		}
	}
}
