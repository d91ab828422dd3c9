package notequiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuizSetDeduplicatesByID(t *testing.T) {
	set := NewQuizSet()
	set.Set(&GeneratedQuiz{ID: 3, Reason: ReasonLowRate})
	set.Set(&GeneratedQuiz{ID: 1, Reason: ReasonNew})
	set.Set(&GeneratedQuiz{ID: 3, Reason: ReasonNew})

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has(3))
	assert.False(t, set.Has(2))

	values := set.Values()
	assert.Equal(t, int64(3), values[0].ID)
	assert.Equal(t, ReasonNew, values[0].Reason, "replacement keeps the position")
	assert.Equal(t, int64(1), values[1].ID)
}
