package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notequiz"
)

type fixedQuizzer struct {
	quizzes []notequiz.GeneratedQuiz
	answers int
}

func (f *fixedQuizzer) SelectSession(context.Context, int, []notequiz.NoteBlock, string) ([]notequiz.GeneratedQuiz, error) {
	return f.quizzes, nil
}

func (f *fixedQuizzer) RecordAnswer(context.Context, int64, bool) error {
	f.answers++
	return nil
}

func twoQuizzes() []notequiz.GeneratedQuiz {
	content := notequiz.QuizContent{Question: "Is water wet?", Corrects: []string{"yes"}, Damys: []string{"no"}}
	return []notequiz.GeneratedQuiz{
		{ID: 1, Content: content, Reason: notequiz.ReasonNew},
		{ID: 2, Content: content, Reason: notequiz.ReasonNew},
	}
}

func TestPlaySession(t *testing.T) {
	quizzer := &fixedQuizzer{quizzes: twoQuizzes()}
	var out bytes.Buffer
	in := strings.NewReader("z\nA\nb\n")

	err := playSession(context.Background(), quizzer, notequiz.Note{ID: "n1", Name: "Water"}, 2, in, &out)
	require.NoError(t, err)

	assert.Equal(t, 2, quizzer.answers)
	assert.Contains(t, out.String(), "Question 1/2")
	assert.Contains(t, out.String(), "Please enter one of AB")
	assert.Contains(t, out.String(), "Quiz completed")
	assert.Contains(t, out.String(), "/2 (")
}

func TestPlaySessionInputClosed(t *testing.T) {
	quizzer := &fixedQuizzer{quizzes: twoQuizzes()}
	err := playSession(context.Background(), quizzer, notequiz.Note{ID: "n1"}, 2, strings.NewReader("A\n"), &bytes.Buffer{})
	assert.Error(t, err)
	assert.Equal(t, 1, quizzer.answers)
}

func TestPlaySessionWithoutQuizzes(t *testing.T) {
	err := playSession(context.Background(), &fixedQuizzer{}, notequiz.Note{ID: "n1"}, 2, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorIs(t, err, notequiz.ErrInsufficientContent)
}
