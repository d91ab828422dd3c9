package notequiz

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizMakerGenerate(t *testing.T) {
	capability := &stubCapability{payloads: []string{waterPayload}}
	maker := NewQuizMaker(capability)

	generation, err := maker.Generate(context.Background(), "Water is H2O")
	require.NoError(t, err)
	assert.Equal(t, OutcomeGenerated, generation.Outcome)
	require.Len(t, generation.Quizzes, 1)
	assert.Equal(t, []string{"H2O"}, generation.Quizzes[0].Corrects)
	assert.Equal(t, []string{"Water is H2O"}, capability.passages)
}

func TestQuizMakerSoftFailures(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		outcome Outcome
	}{
		{"not json", "Sorry, I can't help with that.", OutcomeMalformed},
		{"object", `{"quizzes":"none"}`, OutcomeMalformed},
		{"empty array", `[]`, OutcomeEmpty},
		{"only invalid", `[{"question":"q","corrects":["a"],"damys":["a"]}]`, OutcomeEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maker := NewQuizMaker(&stubCapability{payloads: []string{tt.payload}})
			generation, err := maker.Generate(context.Background(), "   ")
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, generation.Outcome)
			assert.Empty(t, generation.Quizzes)
		})
	}
}

func TestQuizMakerCapabilityUnavailable(t *testing.T) {
	maker := NewQuizMaker(&stubCapability{err: ErrCapabilityUnavailable})
	_, err := maker.Generate(context.Background(), "text")
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)

	_, err = NewQuizMaker(nil).Generate(context.Background(), "text")
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
}

func TestQuizMakerTranscript(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLLMLogger(dir, "notes/1")
	require.NoError(t, err)

	maker := NewQuizMaker(&stubCapability{payloads: []string{waterPayload}})
	maker.SetLogger(logger)
	_, err = maker.Generate(context.Background(), "Water is H2O")
	require.NoError(t, err)
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "notes_1.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Water is H2O")
	assert.Contains(t, string(data), "Outcome: generated, valid quizzes: 1")
}

func TestBuildPromptMentionsShape(t *testing.T) {
	prompt := BuildPrompt()
	assert.Contains(t, prompt, `"corrects"`)
	assert.Contains(t, prompt, `"damys"`)
}
