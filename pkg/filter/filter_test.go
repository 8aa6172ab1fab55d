package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldProcess(t *testing.T) {
	kw := DefaultDirectKeywords
	tests := []struct {
		name      string
		utterance string
		want      bool
	}{
		{"wake word", "flora open browser", true},
		{"wake word upper case", "FLORA turn it up", true},
		{"wake word mixed case mid sentence", "hey FlOrA, lights", true},
		{"direct keyword", "hello", true},
		{"direct keyword case", "What is it", true},
		{"keyword inside word", "whose coat is this", true},
		{"no trigger", "the cat sat on the mat", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldProcess(tt.utterance, "flora", kw))
		})
	}
}

func TestShouldProcessNoKeywords(t *testing.T) {
	assert.False(t, ShouldProcess("hello there", "flora", nil))
	assert.True(t, ShouldProcess("hello flora", "flora", nil))
	assert.False(t, ShouldProcess("anything", "", []string{""}))
}

func TestStripWakeWord(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"flora open browser", "open browser"},
		{"Flora open browser FLORA", "open browser"},
		{"  open browser  ", "open browser"},
		{"floflorara", ""},
		{"flora", ""},
		{"nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripWakeWord(tt.in, "flora"))
		})
	}
}

func TestStripWakeWordIdempotent(t *testing.T) {
	inputs := []string{
		"flora open browser",
		"FLORAflora what",
		"ffloraflora lora",
		" flora  flora ",
		"no wake word",
		"",
	}
	for _, in := range inputs {
		once := StripWakeWord(in, "flora")
		assert.Equal(t, once, StripWakeWord(once, "flora"), "input %q", in)
	}
}

func TestPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.ShouldProcess("Flora, what time is it"))
	assert.Equal(t, ", what time is it", p.Clean("Flora, what time is it"))

	p.DirectKeywords[0] = "changed"
	assert.Equal(t, "open", DefaultDirectKeywords[0])
}
