package notequiz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultGoalQuestions is the session length used when none is given.
const DefaultGoalQuestions = 10

// NoteLoadStatus is the state of the note a quiz screen quizzes on
type NoteLoadStatus string

const (
	NotePending  NoteLoadStatus = "pending"
	NoteLoaded   NoteLoadStatus = "loaded"
	NoteNotFound NoteLoadStatus = "notfound"
	NoteInvalid  NoteLoadStatus = "invalid"
)

// AIAvailability tells whether quizzes can be generated
type AIAvailability string

const (
	AIUnknown     AIAvailability = "unknown"
	AIAvailable   AIAvailability = "available"
	AIUnavailable AIAvailability = "unavailable"
)

// Quizzer selects session quizzes and records answers. *Scheduler implements it.
type Quizzer interface {
	SelectSession(ctx context.Context, n int, notes []NoteBlock, noteID string) ([]GeneratedQuiz, error)
	RecordAnswer(ctx context.Context, id int64, wasCorrect bool) error
}

// CurrentQuiz is the question on screen
type CurrentQuiz struct {
	Index   int           `json:"index"`
	Quiz    GeneratedQuiz `json:"quiz"`
	Choices []string      `json:"choices"`
}

// Session tracks one run of quiz taking for a note
type Session struct {
	mu sync.Mutex

	status      NoteLoadStatus
	note        *Note
	starting    bool
	started     bool
	availableAI AIAvailability

	quizzer  Quizzer
	quizzes  []GeneratedQuiz
	current  *CurrentQuiz
	goal     int
	finished bool

	correctQuizzes   []GeneratedQuiz
	incorrectQuizzes []GeneratedQuiz
	finishedIndexes  map[int]struct{}

	rand Rand
}

// NewSession creates a session waiting for its note
func NewSession(goalQuestions int) *Session {
	if goalQuestions < 1 {
		goalQuestions = DefaultGoalQuestions
	}
	return &Session{
		status:          NotePending,
		availableAI:     AIUnknown,
		goal:            goalQuestions,
		finishedIndexes: make(map[int]struct{}),
		rand:            globalRand{},
	}
}

// SetRand replaces the random source used to order answer choices
func (s *Session) SetRand(r Rand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == nil {
		r = globalRand{}
	}
	s.rand = r
}

// LoadNote resolves the note as loaded
func (s *Session) LoadNote(note Note) error {
	return s.resolve(NoteLoaded, &note)
}

// MarkNotFound resolves the note as missing
func (s *Session) MarkNotFound() error {
	return s.resolve(NoteNotFound, nil)
}

// MarkInvalid resolves the note as unreadable
func (s *Session) MarkInvalid() error {
	return s.resolve(NoteInvalid, nil)
}

func (s *Session) resolve(status NoteLoadStatus, note *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != NotePending {
		return fmt.Errorf("note is %s: %w", s.status, ErrNoteResolved)
	}
	s.status = status
	s.note = note
	return nil
}

// SetAIAvailability records whether the generation capability is usable
func (s *Session) SetAIAvailability(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if available {
		s.availableAI = AIAvailable
	} else {
		s.availableAI = AIUnavailable
	}
}

// Start selects the session's quizzes and shows the first one.
// When the pool cannot reach the goal but holds some quizzes, the session runs with the smaller pool.
// ErrCapabilityUnavailable marks AI as unavailable and leaves the session unstarted.
// The session stays readable while quizzes are selected; State reports Starting meanwhile.
func (s *Session) Start(ctx context.Context, quizzer Quizzer) error {
	s.mu.Lock()
	if s.status != NoteLoaded {
		s.mu.Unlock()
		return fmt.Errorf("note is %s: %w", s.status, ErrNoteNotLoaded)
	}
	if s.started || s.starting {
		s.mu.Unlock()
		return ErrSessionStarted
	}
	s.starting = true
	note := *s.note
	goal := s.goal
	s.mu.Unlock()

	quizzes, err := quizzer.SelectSession(ctx, goal, note.Blocks, note.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false

	switch {
	case errors.Is(err, ErrCapabilityUnavailable):
		s.availableAI = AIUnavailable
		return err
	case errors.Is(err, ErrInsufficientContent) && len(quizzes) > 0:
		logger.Warn("starting quiz session with a short pool", "note_id", note.ID, "quizzes", len(quizzes), "goal", goal)
	case err != nil:
		return err
	case len(quizzes) == 0:
		return fmt.Errorf("no quizzes selected for note %s: %w", note.ID, ErrInsufficientContent)
	}

	s.quizzer = quizzer
	s.quizzes = quizzes
	s.started = true
	s.present(0)
	return nil
}

// length is the number of questions the session will ask
func (s *Session) length() int {
	if len(s.quizzes) < s.goal {
		return len(s.quizzes)
	}
	return s.goal
}

func (s *Session) present(index int) {
	quiz := s.quizzes[index]
	choices := quiz.Content.Choices()
	s.rand.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})
	s.current = &CurrentQuiz{
		Index:   index,
		Quiz:    quiz,
		Choices: choices,
	}
}

// Answer scores choice for the quiz at index, which must be the current one.
// It records the answer through the quizzer and moves on to the next unanswered quiz.
func (s *Session) Answer(ctx context.Context, index int, choice string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return false, ErrSessionNotStarted
	}
	if _, ok := s.finishedIndexes[index]; ok {
		return false, fmt.Errorf("quiz %d: %w", index, ErrAlreadyAnswered)
	}
	if s.finished || s.current == nil {
		return false, ErrSessionFinished
	}
	if s.current.Index != index {
		return false, fmt.Errorf("quiz %d, current is %d: %w", index, s.current.Index, ErrNotCurrentQuiz)
	}

	quiz := s.current.Quiz
	correct := quiz.Content.IsCorrect(choice)
	if err := s.quizzer.RecordAnswer(ctx, quiz.ID, correct); err != nil {
		return false, err
	}

	if correct {
		s.correctQuizzes = append(s.correctQuizzes, quiz)
	} else {
		s.incorrectQuizzes = append(s.incorrectQuizzes, quiz)
	}
	s.finishedIndexes[index] = struct{}{}
	s.advance(index)
	return correct, nil
}

func (s *Session) advance(from int) {
	total := s.length()
	if len(s.finishedIndexes) >= total {
		s.current = nil
		s.finished = true
		return
	}
	for step := 1; step <= total; step++ {
		next := (from + step) % total
		if _, ok := s.finishedIndexes[next]; !ok {
			s.present(next)
			return
		}
	}
	s.current = nil
	s.finished = true
}

// Current returns the quiz on screen, or nil
func (s *Session) Current() *CurrentQuiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	current := *s.current
	current.Choices = append([]string(nil), s.current.Choices...)
	return &current
}

// IsFinished reports whether every question of the session was answered
func (s *Session) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// SessionState is a read-only snapshot of a Session
type SessionState struct {
	NoteLoadStatus   NoteLoadStatus  `json:"note_load_status"`
	Note             *Note           `json:"note,omitempty"`
	Starting         bool            `json:"starting"` // quizzes are being selected
	Started          bool            `json:"started"`
	AvailableAI      AIAvailability  `json:"available_ai"`
	Current          *CurrentQuiz    `json:"current"`
	CorrectQuizzes   []GeneratedQuiz `json:"correct_quizzes"`
	IncorrectQuizzes []GeneratedQuiz `json:"incorrect_quizzes"`
	FinishedIndexes  []int           `json:"finished_indexes"`
	GoalQuestions    int             `json:"goal_questions"`
	TotalQuestions   int             `json:"total_questions"`
	Generated        int             `json:"generated"` // quizzes picked as new
	IsFinished       bool            `json:"is_finished"`
}

// State returns a snapshot of the session
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := SessionState{
		NoteLoadStatus:   s.status,
		Starting:         s.starting,
		Started:          s.started,
		AvailableAI:      s.availableAI,
		CorrectQuizzes:   append([]GeneratedQuiz(nil), s.correctQuizzes...),
		IncorrectQuizzes: append([]GeneratedQuiz(nil), s.incorrectQuizzes...),
		FinishedIndexes:  make([]int, 0, len(s.finishedIndexes)),
		GoalQuestions:    s.goal,
		TotalQuestions:   s.length(),
		IsFinished:       s.finished,
	}
	if s.note != nil {
		note := *s.note
		note.Blocks = append([]NoteBlock(nil), s.note.Blocks...)
		state.Note = &note
	}
	if s.current != nil {
		current := *s.current
		current.Choices = append([]string(nil), s.current.Choices...)
		state.Current = &current
	}
	for index := range s.finishedIndexes {
		state.FinishedIndexes = append(state.FinishedIndexes, index)
	}
	sort.Ints(state.FinishedIndexes)
	for _, quiz := range s.quizzes[:s.length()] {
		if quiz.Reason == ReasonNew {
			state.Generated++
		}
	}
	return state
}
