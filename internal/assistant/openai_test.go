package assistant

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateQuestion(t *testing.T) {
	short := "How do I stay calm?"
	assert.Equal(t, short, truncateQuestion(short))

	exact := strings.Repeat("a", maxQuestionLength)
	assert.Equal(t, exact, truncateQuestion(exact))

	long := strings.Repeat("a", maxQuestionLength+50)
	got := truncateQuestion(long)
	assert.Len(t, got, maxQuestionLength)
}

func TestTruncateQuestionKeepsRunesWhole(t *testing.T) {
	// The cap lands one byte into the four-byte emoji; truncation must
	// back off to the rune start rather than emit a broken sequence.
	q := strings.Repeat("a", maxQuestionLength-1) + "🌱🌱"
	got := truncateQuestion(q)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", maxQuestionLength-1), got)
	assert.LessOrEqual(t, len(got), maxQuestionLength)
}
