package notequiz

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"valid", `{"question":"q","corrects":["a"],"damys":["b","c"]}`, true},
		{"no damys", `{"question":"q","corrects":["a"],"damys":[]}`, true},
		{"extra fields", `{"question":"q","corrects":["a"],"damys":["b"],"hint":"x"}`, true},
		{"overlap", `{"question":"q","corrects":["a","b"],"damys":["b"]}`, false},
		{"empty corrects", `{"question":"q","corrects":[],"damys":["b"]}`, false},
		{"missing question", `{"corrects":["a"],"damys":["b"]}`, false},
		{"missing damys", `{"question":"q","corrects":["a"]}`, false},
		{"question not string", `{"question":1,"corrects":["a"],"damys":["b"]}`, false},
		{"answer not string", `{"question":"q","corrects":[1],"damys":["b"]}`, false},
		{"array", `["q"]`, false},
		{"string", `"q"`, false},
		{"null", `null`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ValidateContent(decode(t, tt.raw))
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestValidateContentNormalizesSets(t *testing.T) {
	content, ok := ValidateContent(decode(t, `{"question":"q","corrects":["a","a","b"],"damys":["c","c"]}`))
	require.True(t, ok)
	assert.Equal(t, "q", content.Question)
	assert.Equal(t, []string{"a", "b"}, content.Corrects)
	assert.Equal(t, []string{"c"}, content.Damys)
}

func TestValidateContentTypedValues(t *testing.T) {
	content, ok := ValidateContent(map[string]any{
		"question": "q",
		"corrects": []string{"a"},
		"damys":    []string{"b"},
	})
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, content.Corrects)

	_, ok = ValidateContent(QuizContent{Question: "q", Corrects: []string{"a"}, Damys: []string{"a"}})
	assert.False(t, ok)

	_, ok = ValidateContent(make(chan int))
	assert.False(t, ok)
}

// Random candidates: every accepted one is disjoint, and every overlapping one is rejected.
func TestValidateContentDisjointProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	words := []string{"a", "b", "c", "d", "e", "f"}
	pick := func() []any {
		n := r.Intn(4)
		out := make([]any, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, words[r.Intn(len(words))])
		}
		return out
	}

	for i := 0; i < 500; i++ {
		corrects, damys := pick(), pick()
		raw := map[string]any{"question": fmt.Sprintf("q%d", i), "corrects": corrects, "damys": damys}

		overlap := false
		for _, c := range corrects {
			for _, d := range damys {
				if c == d {
					overlap = true
				}
			}
		}

		content, ok := ValidateContent(raw)
		if overlap || len(corrects) == 0 {
			assert.False(t, ok, "candidate %v should be rejected", raw)
			continue
		}
		require.True(t, ok, "candidate %v should be accepted", raw)
		for _, c := range content.Corrects {
			assert.NotContains(t, content.Damys, c)
		}
	}
}

func TestParseContents(t *testing.T) {
	t.Run("Generated", func(t *testing.T) {
		payload := `[
			{"question":"first","corrects":["a"],"damys":["b"]},
			{"question":"bad","corrects":["a"],"damys":["a"]},
			{"question":"second","corrects":["c"],"damys":[]}
		]`
		contents, outcome := ParseContents(payload)
		assert.Equal(t, OutcomeGenerated, outcome)
		require.Len(t, contents, 2)
		assert.Equal(t, "first", contents[0].Question)
		assert.Equal(t, "second", contents[1].Question)
	})

	t.Run("Empty", func(t *testing.T) {
		contents, outcome := ParseContents(`[]`)
		assert.Equal(t, OutcomeEmpty, outcome)
		assert.Empty(t, contents)

		_, outcome = ParseContents(`[{"question":"bad"}]`)
		assert.Equal(t, OutcomeEmpty, outcome)
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, payload := range []string{"", "not json", `{"question":"q"}`, `"text"`, `[{"question":`} {
			contents, outcome := ParseContents(payload)
			assert.Equal(t, OutcomeMalformed, outcome, payload)
			assert.Empty(t, contents)
		}
	})

	t.Run("CodeFence", func(t *testing.T) {
		contents, outcome := ParseContents("```json\n" + waterPayload + "\n```")
		assert.Equal(t, OutcomeGenerated, outcome)
		require.Len(t, contents, 1)
		assert.Equal(t, "What is water?", contents[0].Question)
	})
}
