package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"notequiz"
	"notequiz/internal/config"
)

var (
	cfgFile string
	v       *viper.Viper
)

// flag name -> config key
var boundFlags = map[string]string{
	"store":        "store.engine",
	"db":           "store.path",
	"model":        "ai.model",
	"api-key":      "ai.api_key",
	"base-url":     "ai.base_url",
	"max-attempts": "scheduler.max_attempts",
	"max-duration": "scheduler.max_duration",
	"verbose":      "verbose",
	"log-dir":      "log_dir",
}

var rootCmd = &cobra.Command{
	Use:           "quizgenerator",
	Short:         "Adaptive quizzes generated from your notes",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		v, err = config.New(cfgFile)
		if err != nil {
			return err
		}
		for flag, key := range boundFlags {
			if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
				return err
			}
		}
		notequiz.SetVerbose(v.GetBool("verbose"))
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	flags.String("store", notequiz.EngineSQLite3, "Store engine (sqlite3, sqlite, json, memory)")
	flags.String("db", notequiz.DefaultStorePath, "Store path")
	flags.String("model", "", "OpenAI model")
	flags.String("api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	flags.String("base-url", "", "OpenAI compatible API base URL")
	flags.Int("max-attempts", notequiz.DefaultMaxAttempts, "Generation attempts per session, 0 for no limit")
	flags.Duration("max-duration", 0, "Time budget of a session selection, 0 for no limit")
	flags.Bool("verbose", false, "Enable verbose debugging output")
	flags.String("log-dir", "", "Directory for per note LLM transcripts")

	rootCmd.AddCommand(selectCmd, answerCmd, prefillCmd, playCmd, statsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, notequiz.ErrCapabilityUnavailable) {
			log.Fatalf("%v\nSet OPENAI_API_KEY or ai.api_key to enable quiz generation.", err)
		}
		log.Fatal(err)
	}
}

// app holds what every command needs
type app struct {
	cfg       notequiz.Config
	store     notequiz.Store
	maker     *notequiz.QuizMaker
	scheduler *notequiz.Scheduler
}

func openApp() (*app, error) {
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, err
	}

	store, err := notequiz.NewStore(cfg.Store.Engine, cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	var capability notequiz.Capability
	if openAI := notequiz.NewOpenAICapability(cfg.AI); openAI.Available() {
		capability = openAI
	} else {
		notequiz.VerboseLog("No OpenAI API key configured, quiz generation is disabled")
	}
	maker := notequiz.NewQuizMaker(capability)

	return &app{
		cfg:       cfg,
		store:     store,
		maker:     maker,
		scheduler: notequiz.NewScheduler(store, maker, cfg.Scheduler),
	}, nil
}

// transcript sends the LLM exchanges of a note to log_dir, when configured
func (a *app) transcript(noteID string) func() {
	if a.cfg.LogDir == "" {
		return func() {}
	}
	llmLogger, err := notequiz.NewLLMLogger(a.cfg.LogDir, noteID)
	if err != nil {
		notequiz.Logger().Warn("LLM transcript disabled", "note_id", noteID, "error", err)
		return func() {}
	}
	a.maker.SetLogger(llmLogger)
	return func() {
		a.maker.SetLogger(nil)
		llmLogger.Close()
	}
}

func (a *app) Close() error {
	return a.store.Close()
}

func printJSON(value any) error {
	output, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

var selectFlags struct {
	notes  string
	noteID string
	count  int
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Print the quizzes of a session for a note as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, err := readNotes(selectFlags.notes)
		if err != nil {
			return err
		}
		note, err := pickNote(notes, selectFlags.noteID)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		defer a.transcript(note.ID)()

		quizzes, err := a.scheduler.SelectSession(cmd.Context(), selectFlags.count, note.Blocks, note.ID)
		if errors.Is(err, notequiz.ErrInsufficientContent) && len(quizzes) > 0 {
			log.Printf("Warning: %v", err)
		} else if err != nil {
			return err
		}
		return printJSON(struct {
			NoteID  string                   `json:"note_id"`
			Quizzes []notequiz.GeneratedQuiz `json:"quizzes"`
		}{note.ID, quizzes})
	},
}

var answerFlags struct {
	correct bool
}

var answerCmd = &cobra.Command{
	Use:   "answer <quiz-id>",
	Short: "Record the answer to a quiz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid quiz id %q: %w", args[0], err)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return a.scheduler.RecordAnswer(cmd.Context(), id, answerFlags.correct)
	},
}

var prefillFlags struct {
	notes  string
	target int
}

var prefillCmd = &cobra.Command{
	Use:   "prefill",
	Short: "Generate quizzes ahead of time for every note of a notes file",
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, err := readNotes(prefillFlags.notes)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		for _, note := range notes {
			closeTranscript := a.transcript(note.ID)
			stored, err := a.scheduler.Prefill(cmd.Context(), note, prefillFlags.target)
			closeTranscript()

			switch {
			case errors.Is(err, notequiz.ErrInsufficientContent):
				log.Printf("Note %s (%s): %d quizzes stored, %v", note.ID, note.Name, stored, err)
			case err != nil:
				return fmt.Errorf("note %s: %w", note.ID, err)
			default:
				log.Printf("Note %s (%s): %d quizzes stored", note.ID, note.Name, stored)
			}
		}
		return nil
	},
}

var statsFlags struct {
	notes  string
	noteID string
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the quiz pool of notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		var noteIDs []string
		switch {
		case statsFlags.noteID != "":
			noteIDs = []string{statsFlags.noteID}
		case statsFlags.notes != "":
			notes, err := readNotes(statsFlags.notes)
			if err != nil {
				return err
			}
			for _, note := range notes {
				noteIDs = append(noteIDs, note.ID)
			}
		default:
			return errors.New("either --note or --notes is required")
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		stats := make([]notequiz.PoolStats, 0, len(noteIDs))
		for _, noteID := range noteIDs {
			s, err := a.scheduler.NoteStats(cmd.Context(), noteID)
			if err != nil {
				return err
			}
			stats = append(stats, s)
		}
		return printJSON(stats)
	},
}

func init() {
	selectCmd.Flags().StringVar(&selectFlags.notes, "notes", "", "Notes file (required)")
	selectCmd.Flags().StringVar(&selectFlags.noteID, "note", "", "Note id, defaults to the first note of the file")
	selectCmd.Flags().IntVarP(&selectFlags.count, "questions", "n", notequiz.DefaultGoalQuestions, "Number of quizzes")
	selectCmd.MarkFlagRequired("notes")

	answerCmd.Flags().BoolVar(&answerFlags.correct, "correct", false, "The quiz was answered correctly")

	prefillCmd.Flags().StringVar(&prefillFlags.notes, "notes", "", "Notes file (required)")
	prefillCmd.Flags().IntVar(&prefillFlags.target, "target", notequiz.DefaultGoalQuestions, "Never proposed quizzes to keep per note")
	prefillCmd.MarkFlagRequired("notes")

	playCmd.Flags().StringVar(&playFlags.notes, "notes", "", "Notes file (required)")
	playCmd.Flags().StringVar(&playFlags.noteID, "note", "", "Note id, defaults to the first note of the file")
	playCmd.Flags().IntVarP(&playFlags.count, "questions", "n", notequiz.DefaultGoalQuestions, "Number of questions")
	playCmd.MarkFlagRequired("notes")

	statsCmd.Flags().StringVar(&statsFlags.notes, "notes", "", "Notes file")
	statsCmd.Flags().StringVar(&statsFlags.noteID, "note", "", "Note id")
}
