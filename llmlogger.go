package notequiz

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LLMLogger writes a transcript of the generation calls made for one note
type LLMLogger struct {
	file   *os.File
	mu     sync.Mutex
	noteID string
}

// NewLLMLogger creates (or appends to) <dir>/<noteID>.log
func NewLLMLogger(dir, noteID string) (*LLMLogger, error) {
	if dir == "" {
		dir = "log"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", sanitizeFileName(noteID)))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := &LLMLogger{
		file:   file,
		noteID: noteID,
	}

	logger.Logf("=== Quiz Generation Log ===\n")
	logger.Logf("Note ID: %s\n", noteID)
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("========================\n\n")

	return logger, nil
}

func sanitizeFileName(name string) string {
	if name == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
}

// Logf writes a formatted log entry with timestamp
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	ll.writeLocked(format, args...)
}

func (ll *LLMLogger) writeLocked(format string, args ...interface{}) {
	if ll.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(ll.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	ll.file.Sync()
}

// LogLLMRequest logs the passage sent to the capability
func (ll *LLMLogger) LogLLMRequest(module, passage string) {
	ll.Logf("=== LLM REQUEST (%s) ===\n", module)
	ll.Logf("Passage:\n%s\n", passage)
	ll.Logf("=====================\n\n")
}

// LogLLMResponse logs the raw payload returned by the capability
func (ll *LLMLogger) LogLLMResponse(module, response string) {
	ll.Logf("=== LLM RESPONSE (%s) ===\n", module)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("======================\n\n")
}

// LogGeneration logs how a payload was classified
func (ll *LLMLogger) LogGeneration(outcome Outcome, quizzes int) {
	ll.Logf("Outcome: %s, valid quizzes: %d\n", outcome, quizzes)
}

// Close closes the log file
func (ll *LLMLogger) Close() error {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file == nil {
		return nil
	}
	ll.writeLocked("=== Quiz Generation Complete ===\n")
	ll.writeLocked("Completed: %s\n", time.Now().Format(time.RFC3339))
	ll.writeLocked("=============================\n")
	err := ll.file.Close()
	ll.file = nil
	return err
}
