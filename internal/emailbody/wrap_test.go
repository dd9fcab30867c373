package emailbody

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_ShortLineUntouched(t *testing.T) {
	assert.Equal(t, "a short line", Wrap("a short line", 79))
}

func TestWrap_BreaksAtWhitespace(t *testing.T) {
	out := Wrap("aaa bbb ccc ddd", 7)

	assert.Equal(t, "aaa bbb\nccc ddd", out)
}

func TestWrap_NeverBreaksInsideWord(t *testing.T) {
	out := Wrap("supercalifragilistic", 5)

	// A word longer than the width is emitted whole.
	assert.Equal(t, "supercalifragilistic", out)
}

func TestWrap_SingleHyphenNotABreakPoint(t *testing.T) {
	out := Wrap("well-known", 6)

	assert.Equal(t, "well-known", out)
}

func TestWrap_DoubleHyphenRunIsABreakPoint(t *testing.T) {
	out := Wrap("first--second", 7)

	assert.Equal(t, "first--\nsecond", out)
}

func TestWrap_PreservesExistingNewlines(t *testing.T) {
	out := Wrap("one\n\ntwo", 79)

	assert.Equal(t, "one\n\ntwo", out)
}

func TestWrap_Idempotent(t *testing.T) {
	text := strings.Repeat("some words in a fairly long sentence that will wrap ", 8)

	once := Wrap(text, 79)
	twice := Wrap(once, 79)

	assert.Equal(t, once, twice)

	for _, line := range strings.Split(once, "\n") {
		assert.LessOrEqual(t, len(line), 79)
	}
}

func TestWrap_DefaultWidthOnZero(t *testing.T) {
	text := strings.Repeat("word ", 40)

	assert.Equal(t, Wrap(text, DefaultWrapWidth), Wrap(text, 0))
}
