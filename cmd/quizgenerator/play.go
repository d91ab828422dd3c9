package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"notequiz"
)

var playFlags struct {
	notes  string
	noteID string
	count  int
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Take a quiz session on a note in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, err := readNotes(playFlags.notes)
		if err != nil {
			return err
		}
		note, err := pickNote(notes, playFlags.noteID)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		defer a.transcript(note.ID)()

		return playSession(cmd.Context(), a.scheduler, note, playFlags.count, os.Stdin, os.Stdout)
	},
}

const optionLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func playSession(ctx context.Context, quizzer notequiz.Quizzer, note notequiz.Note, goal int, in io.Reader, out io.Writer) error {
	session := notequiz.NewSession(goal)
	if err := session.LoadNote(note); err != nil {
		return err
	}

	fmt.Fprintf(out, "🎯 Starting quiz on: %s\n", note.Name)
	fmt.Fprintln(out, "⏳ Preparing questions... (this may take a moment)")
	fmt.Fprintln(out)

	if err := session.Start(ctx, quizzer); err != nil {
		if errors.Is(err, notequiz.ErrInsufficientContent) {
			return fmt.Errorf("this note does not have enough text to quiz on: %w", err)
		}
		return err
	}
	total := session.State().TotalQuestions

	scanner := bufio.NewScanner(in)
	for !session.IsFinished() {
		current := session.Current()
		if current == nil {
			break
		}
		choices := current.Choices
		letters := optionLetters[:min(len(choices), len(optionLetters))]

		fmt.Fprintf(out, "Question %d/%d:\n", current.Index+1, total)
		fmt.Fprintf(out, "%s\n\n", current.Quiz.Content.Question)
		for i := range letters {
			fmt.Fprintf(out, "%c) %s\n", letters[i], choices[i])
		}
		fmt.Fprintln(out)

		var pick int
		for {
			fmt.Fprintf(out, "Your answer (%s): ", strings.Join(strings.Split(letters, ""), "/"))
			if !scanner.Scan() {
				return errors.New("input closed before the session finished")
			}
			answer := strings.ToUpper(strings.TrimSpace(scanner.Text()))
			if len(answer) == 1 && strings.Contains(letters, answer) {
				pick = strings.Index(letters, answer)
				break
			}
			fmt.Fprintf(out, "Please enter one of %s\n", letters)
		}

		correct, err := session.Answer(ctx, current.Index, choices[pick])
		if err != nil {
			return err
		}
		if correct {
			fmt.Fprintln(out, "✅ Correct!")
		} else {
			fmt.Fprintf(out, "❌ Incorrect. The correct answer is %s\n", strings.Join(current.Quiz.Content.Corrects, " / "))
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Repeat("─", 50))
		fmt.Fprintln(out)
	}

	state := session.State()
	score := len(state.CorrectQuizzes)
	ratio := float64(score) / float64(state.TotalQuestions)

	fmt.Fprintln(out, "🎉 Quiz completed!")
	fmt.Fprintf(out, "🏆 Score: %d/%d (%.1f%%)\n", score, state.TotalQuestions, ratio*100)
	if len(state.IncorrectQuizzes) > 0 {
		fmt.Fprintln(out, "\n📚 Review these:")
		for _, quiz := range state.IncorrectQuizzes {
			fmt.Fprintf(out, "  - %s\n", quiz.Content.Question)
		}
	}

	switch {
	case ratio >= 0.8:
		fmt.Fprintln(out, "🌟 Excellent work!")
	case ratio >= 0.6:
		fmt.Fprintln(out, "👍 Good job!")
	default:
		fmt.Fprintln(out, "📚 Keep studying!")
	}
	return nil
}
