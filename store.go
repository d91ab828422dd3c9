package notequiz

import (
	"context"
	"fmt"
	"strings"
)

// Store persists quiz records.
// Finders return records in insertion order. UpdateStats and Get report a missing id
// with found == false and a nil error.
type Store interface {
	FindNeverProposed(ctx context.Context, noteID string) ([]QuizRecord, error)
	FindByNote(ctx context.Context, noteID string) ([]QuizRecord, error)
	BulkInsert(ctx context.Context, records []QuizRecord) ([]QuizRecord, error)
	Get(ctx context.Context, id int64) (QuizRecord, bool, error)
	UpdateStats(ctx context.Context, id int64, stats Stats) (QuizRecord, bool, error)
	Close() error
}

// Store engines
const (
	EngineSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, needs cgo
	EngineSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	EngineJSON    = "json"
	EngineMemory  = "memory"
)

// NewStore opens the store selected by engine
func NewStore(engine, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineSQLite3:
		return openSQLStore(EngineSQLite3, path)
	case EngineSQLite:
		return openSQLStore(EngineSQLite, path)
	case EngineJSON:
		return NewJSONStore(path)
	case EngineMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store engine: %s", engine)
	}
}

func openSQLStore(driver, path string) (Store, error) {
	db, err := OpenDB(driver, path)
	if err != nil {
		return nil, err
	}
	if err := db.CreateTables(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
