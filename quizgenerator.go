package notequiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Rand is the randomness used for shuffling and for picking note blocks.
// *rand.Rand satisfies it; tests inject a seeded one.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// globalRand uses the goroutine safe top level math/rand functions
type globalRand struct{}

func (globalRand) Intn(n int) int                     { return rand.Intn(n) }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Scheduler picks the quizzes of a session and grows the quiz pool of a note on demand
type Scheduler struct {
	store     Store
	generator Generator
	rand      Rand
	config    SchedulerConfig
	locks     *noteLocks
	answerMu  sync.Mutex // serializes RecordAnswer read-modify-write
}

// NewScheduler creates a new scheduler.
// A zero LowRateLimit falls back to DefaultLowRateLimit; a negative one disables the low-rate pass.
func NewScheduler(store Store, generator Generator, config SchedulerConfig) *Scheduler {
	if config.LowRateLimit == 0 {
		config.LowRateLimit = DefaultLowRateLimit
	}
	return &Scheduler{
		store:     store,
		generator: generator,
		rand:      globalRand{},
		config:    config,
		locks:     newNoteLocks(),
	}
}

// SetRand replaces the random source. r must be safe for the scheduler's concurrency.
func (s *Scheduler) SetRand(r Rand) {
	if r == nil {
		r = globalRand{}
	}
	s.rand = r
}

// LowRateQuizzes returns the proposed quizzes of a note, lowest correct rate first
func (s *Scheduler) LowRateQuizzes(ctx context.Context, noteID string) ([]QuizRecord, error) {
	records, err := s.store.FindByNote(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to find quizzes of note %s: %w", noteID, err)
	}

	proposed := make([]QuizRecord, 0, len(records))
	for _, record := range records {
		if record.ProposeCount > 0 {
			proposed = append(proposed, record)
		}
	}
	sort.SliceStable(proposed, func(i, j int) bool {
		return proposed[i].Rate() < proposed[j].Rate()
	})
	return proposed, nil
}

// SelectSession returns at least n quizzes for the note, shuffled.
//
// Up to LowRateLimit poorly answered quizzes are reused, then never proposed quizzes fill the
// session. While that is not enough, quizzes are generated from a random text block of notes
// and stored. When MaxAttempts generations or MaxDuration pass first, or the note has no text
// block, the quizzes gathered so far are returned together with ErrInsufficientContent.
// ErrCapabilityUnavailable aborts the selection. Calls for the same note are serialized.
func (s *Scheduler) SelectSession(ctx context.Context, n int, notes []NoteBlock, noteID string) ([]GeneratedQuiz, error) {
	if n < 1 {
		return nil, fmt.Errorf("session size must be at least 1, got %d", n)
	}

	release, err := s.locks.acquire(ctx, noteID)
	if err != nil {
		return nil, err
	}
	defer release()

	parent := ctx
	if s.config.MaxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.MaxDuration)
		defer cancel()
	}

	selected := NewQuizSet()

	lowRates, err := s.LowRateQuizzes(ctx, noteID)
	if err != nil {
		return nil, s.interrupted(parent, ctx, err)
	}
	for i := 0; i < len(lowRates) && i < s.config.LowRateLimit; i++ {
		selected.Set(newGeneratedQuiz(lowRates[i], ReasonLowRate))
	}
	VerboseLog("Note %s: %d low rate quizzes selected", noteID, selected.Len())

	textBlocks := TextBlocks(notes)
	attempts := 0
	for {
		fresh, err := s.store.FindNeverProposed(ctx, noteID)
		if err != nil {
			return nil, s.interrupted(parent, ctx, fmt.Errorf("failed to find never proposed quizzes: %w", err))
		}
		s.rand.Shuffle(len(fresh), func(i, j int) {
			fresh[i], fresh[j] = fresh[j], fresh[i]
		})
		for _, record := range fresh {
			selected.Set(newGeneratedQuiz(record, ReasonNew))
		}

		if selected.Len() >= n {
			logger.Info("quiz session selected", "note_id", noteID, "quizzes", selected.Len(), "generations", attempts)
			return s.shuffled(selected), nil
		}

		if len(textBlocks) == 0 {
			return s.shuffled(selected), fmt.Errorf("note %s has no text block to generate from, %d of %d quizzes: %w",
				noteID, selected.Len(), n, ErrInsufficientContent)
		}
		if s.config.MaxAttempts > 0 && attempts >= s.config.MaxAttempts {
			logger.Warn("quiz generation budget exhausted", "note_id", noteID, "quizzes", selected.Len(), "wanted", n, "attempts", attempts)
			return s.shuffled(selected), fmt.Errorf("%d of %d quizzes after %d generation attempts: %w",
				selected.Len(), n, attempts, ErrInsufficientContent)
		}
		if ctx.Err() != nil {
			err := s.interrupted(parent, ctx, ctx.Err())
			if errors.Is(err, ErrInsufficientContent) {
				return s.shuffled(selected), err
			}
			return nil, err
		}

		attempts++
		block := textBlocks[s.rand.Intn(len(textBlocks))]
		VerboseLog("Note %s: %d of %d quizzes, generating from block %s (attempt %d)", noteID, selected.Len(), n, block.ID, attempts)
		if _, err := s.addProposedQuizzes(ctx, noteID, block); err != nil {
			err = s.interrupted(parent, ctx, err)
			if errors.Is(err, ErrInsufficientContent) {
				return s.shuffled(selected), err
			}
			return nil, err
		}
	}
}

// interrupted maps the expiry of the MaxDuration budget to ErrInsufficientContent.
// Cancellation by the caller and every other error are returned unchanged.
func (s *Scheduler) interrupted(parent, ctx context.Context, err error) error {
	if ctx.Err() != nil && parent.Err() == nil {
		return fmt.Errorf("selection exceeded %s: %w", s.config.MaxDuration, ErrInsufficientContent)
	}
	return err
}

func (s *Scheduler) shuffled(set *QuizSet) []GeneratedQuiz {
	quizzes := set.Values()
	s.rand.Shuffle(len(quizzes), func(i, j int) {
		quizzes[i], quizzes[j] = quizzes[j], quizzes[i]
	})
	return quizzes
}

// addProposedQuizzes generates quizzes from one block and stores them as never proposed
func (s *Scheduler) addProposedQuizzes(ctx context.Context, noteID string, block NoteBlock) ([]QuizRecord, error) {
	generation, err := s.generator.Generate(ctx, block.Text)
	if err != nil {
		return nil, err
	}
	if generation.Outcome != OutcomeGenerated {
		logger.Info("generation produced no quizzes", "note_id", noteID, "block_id", block.ID, "outcome", generation.Outcome)
		return nil, nil
	}

	records := make([]QuizRecord, 0, len(generation.Quizzes))
	for _, content := range generation.Quizzes {
		records = append(records, QuizRecord{
			NoteID:     noteID,
			NoteDataID: block.ID,
			Content:    content,
		})
	}
	inserted, err := s.store.BulkInsert(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to store generated quizzes: %w", err)
	}
	VerboseLog("Note %s: stored %d generated quizzes from block %s", noteID, len(inserted), block.ID)
	return inserted, nil
}

// RecordAnswer counts one answer to the quiz. A missing quiz is ignored.
// It is not idempotent: call it exactly once per answered quiz.
// Concurrent answers through the same Scheduler are serialized so no increment is lost;
// processes sharing one store file can still race.
func (s *Scheduler) RecordAnswer(ctx context.Context, id int64, wasCorrect bool) error {
	s.answerMu.Lock()
	defer s.answerMu.Unlock()

	prev, found, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get quiz %d: %w", id, err)
	}
	if !found {
		VerboseLog("Quiz %d not found, answer ignored", id)
		return nil
	}

	stats := Stats{
		ProposeCount: prev.ProposeCount + 1,
		CorrectCount: prev.CorrectCount,
	}
	if wasCorrect {
		stats.CorrectCount++
	}
	if _, _, err := s.store.UpdateStats(ctx, id, stats); err != nil {
		return fmt.Errorf("failed to update quiz %d: %w", id, err)
	}
	return nil
}

// Prefill generates quizzes for the note until it has at least target never proposed
// quizzes. It returns how many quizzes were stored.
func (s *Scheduler) Prefill(ctx context.Context, note Note, target int) (int, error) {
	release, err := s.locks.acquire(ctx, note.ID)
	if err != nil {
		return 0, err
	}
	defer release()

	textBlocks := TextBlocks(note.Blocks)
	stored := 0
	for attempts := 0; ; attempts++ {
		fresh, err := s.store.FindNeverProposed(ctx, note.ID)
		if err != nil {
			return stored, fmt.Errorf("failed to find never proposed quizzes: %w", err)
		}
		if len(fresh) >= target {
			return stored, nil
		}
		if len(textBlocks) == 0 {
			return stored, fmt.Errorf("note %s has no text block to generate from: %w", note.ID, ErrInsufficientContent)
		}
		if s.config.MaxAttempts > 0 && attempts >= s.config.MaxAttempts {
			return stored, fmt.Errorf("%d of %d quizzes after %d generation attempts: %w", len(fresh), target, attempts, ErrInsufficientContent)
		}

		block := textBlocks[s.rand.Intn(len(textBlocks))]
		inserted, err := s.addProposedQuizzes(ctx, note.ID, block)
		if err != nil {
			return stored, err
		}
		stored += len(inserted)
	}
}

// NoteStats summarizes the quiz pool of a note
func (s *Scheduler) NoteStats(ctx context.Context, noteID string) (PoolStats, error) {
	records, err := s.store.FindByNote(ctx, noteID)
	if err != nil {
		return PoolStats{}, fmt.Errorf("failed to find quizzes of note %s: %w", noteID, err)
	}
	stats := PoolStats{NoteID: noteID, Total: len(records)}
	for _, record := range records {
		if record.ProposeCount == 0 {
			stats.NeverProposed++
		}
		stats.Proposals += record.ProposeCount
		stats.Corrects += record.CorrectCount
	}
	return stats, nil
}

// noteLocks serializes work on the same note
type noteLocks struct {
	mu    sync.Mutex
	locks map[string]*noteLock
}

type noteLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newNoteLocks() *noteLocks {
	return &noteLocks{locks: make(map[string]*noteLock)}
}

func (l *noteLocks) acquire(ctx context.Context, noteID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[noteID]
	if !ok {
		lock = &noteLock{sem: semaphore.NewWeighted(1)}
		l.locks[noteID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	if err := lock.sem.Acquire(ctx, 1); err != nil {
		l.drop(noteID, lock)
		return nil, err
	}
	return func() {
		lock.sem.Release(1)
		l.drop(noteID, lock)
	}, nil
}

func (l *noteLocks) drop(noteID string, lock *noteLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, noteID)
	}
}
