package notequiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryStore keeps quiz records in memory. With a file path it persists
// every change as JSON and reloads it on open.
type MemoryStore struct {
	mu       sync.RWMutex
	filePath string
	state    memoryState
}

type memoryState struct {
	NextID  int64        `json:"next_id"`
	Quizzes []QuizRecord `json:"quizzes"`
}

// NewMemoryStore creates an empty, non persistent store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{NextID: 1}}
}

// NewJSONStore opens a store persisted to filePath
func NewJSONStore(filePath string) (*MemoryStore, error) {
	if filePath == "" {
		return nil, errors.New("json store needs a file path")
	}
	s := &MemoryStore{
		filePath: filePath,
		state:    memoryState{NextID: 1},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MemoryStore) FindNeverProposed(ctx context.Context, noteID string) ([]QuizRecord, error) {
	return s.find(ctx, func(r QuizRecord) bool {
		return r.NoteID == noteID && r.ProposeCount == 0
	})
}

func (s *MemoryStore) FindByNote(ctx context.Context, noteID string) ([]QuizRecord, error) {
	return s.find(ctx, func(r QuizRecord) bool {
		return r.NoteID == noteID
	})
}

func (s *MemoryStore) find(ctx context.Context, match func(QuizRecord) bool) ([]QuizRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []QuizRecord
	for _, record := range s.state.Quizzes {
		if match(record) {
			records = append(records, cloneRecord(record))
		}
	}
	return records, nil
}

func (s *MemoryStore) BulkInsert(ctx context.Context, records []QuizRecord) ([]QuizRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := make([]QuizRecord, 0, len(records))
	for _, record := range records {
		record.ID = s.state.NextID
		s.state.NextID++
		record = cloneRecord(record)
		s.state.Quizzes = append(s.state.Quizzes, record)
		inserted = append(inserted, cloneRecord(record))
	}
	if err := s.persistLocked(); err != nil {
		s.state.Quizzes = s.state.Quizzes[:len(s.state.Quizzes)-len(records)]
		return nil, err
	}
	return inserted, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (QuizRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return QuizRecord{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return cloneRecord(s.state.Quizzes[i]), true, nil
	}
	return QuizRecord{}, false, nil
}

func (s *MemoryStore) UpdateStats(ctx context.Context, id int64, stats Stats) (QuizRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return QuizRecord{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return QuizRecord{}, false, nil
	}
	prev := s.state.Quizzes[i]
	s.state.Quizzes[i].ProposeCount = stats.ProposeCount
	s.state.Quizzes[i].CorrectCount = stats.CorrectCount
	if err := s.persistLocked(); err != nil {
		s.state.Quizzes[i] = prev
		return QuizRecord{}, false, err
	}
	return cloneRecord(s.state.Quizzes[i]), true, nil
}

// Close is a no-op; every change is already persisted.
func (s *MemoryStore) Close() error {
	return nil
}

// ids are assigned in increasing order, so the slice is sorted by id
func (s *MemoryStore) indexLocked(id int64) int {
	lo, hi := 0, len(s.state.Quizzes)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.state.Quizzes[mid].ID < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(s.state.Quizzes) && s.state.Quizzes[lo].ID == id {
		return lo
	}
	return -1
}

func (s *MemoryStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read quiz store: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var state memoryState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode quiz store: %w", err)
	}
	if state.NextID < 1 {
		state.NextID = 1
	}
	sort.SliceStable(state.Quizzes, func(i, j int) bool {
		return state.Quizzes[i].ID < state.Quizzes[j].ID
	})
	for i, record := range state.Quizzes {
		if i > 0 && state.Quizzes[i-1].ID == record.ID {
			return fmt.Errorf("quiz store has duplicate id %d", record.ID)
		}
		if record.ID >= state.NextID {
			state.NextID = record.ID + 1
		}
	}
	s.state = state
	return nil
}

func (s *MemoryStore) persistLocked() error {
	if s.filePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode quiz store: %w", err)
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write quiz store: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("failed to replace quiz store: %w", err)
	}
	return nil
}

func cloneRecord(record QuizRecord) QuizRecord {
	record.Content.Corrects = append([]string(nil), record.Content.Corrects...)
	record.Content.Damys = append([]string(nil), record.Content.Damys...)
	return record
}
