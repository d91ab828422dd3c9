package notequiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// DB is a SQLite backed Store
type DB struct {
	db *sql.DB
}

// OpenDB opens a new database connection. driver is "sqlite3" or "sqlite".
func OpenDB(driver, dbPath string) (*DB, error) {
	if dbPath == "" {
		dbPath = DefaultStorePath
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{db: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS quizzes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			note_id TEXT NOT NULL,
			note_data_id TEXT NOT NULL,
			content TEXT NOT NULL,
			propose_count INTEGER NOT NULL DEFAULT 0,
			correct_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quizzes_note_propose ON quizzes (note_id, propose_count)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return errors.Wrapf(err, "failed to execute %s", query)
		}
	}
	return nil
}

const selectQuiz = "SELECT id, note_id, note_data_id, content, propose_count, correct_count FROM quizzes"

// FindNeverProposed returns the quizzes of a note that were never shown
func (db *DB) FindNeverProposed(ctx context.Context, noteID string) ([]QuizRecord, error) {
	return db.queryRecords(ctx, selectQuiz+" WHERE note_id = ? AND propose_count = 0 ORDER BY id", noteID)
}

// FindByNote returns all quizzes of a note
func (db *DB) FindByNote(ctx context.Context, noteID string) ([]QuizRecord, error) {
	return db.queryRecords(ctx, selectQuiz+" WHERE note_id = ? ORDER BY id", noteID)
}

func (db *DB) queryRecords(ctx context.Context, query string, args ...any) ([]QuizRecord, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get quizzes")
	}
	defer rows.Close()

	var records []QuizRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating quizzes")
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (QuizRecord, error) {
	var record QuizRecord
	var content string
	err := row.Scan(&record.ID, &record.NoteID, &record.NoteDataID, &content, &record.ProposeCount, &record.CorrectCount)
	if err != nil {
		return QuizRecord{}, err
	}
	record.Content, err = ContentFromJSON(content)
	if err != nil {
		return QuizRecord{}, errors.Wrapf(err, "quiz %d", record.ID)
	}
	return record, nil
}

// BulkInsert stores the records in one transaction and returns them with their ids
func (db *DB) BulkInsert(ctx context.Context, records []QuizRecord) ([]QuizRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO quizzes (note_id, note_data_id, content, propose_count, correct_count) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	inserted := make([]QuizRecord, 0, len(records))
	for _, record := range records {
		content, err := ContentToJSON(record.Content)
		if err != nil {
			return nil, err
		}
		res, err := stmt.ExecContext(ctx, record.NoteID, record.NoteDataID, content, record.ProposeCount, record.CorrectCount)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create quiz")
		}
		record.ID, err = res.LastInsertId()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read quiz id")
		}
		inserted = append(inserted, record)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit quizzes")
	}
	return inserted, nil
}

// Get retrieves a quiz by ID
func (db *DB) Get(ctx context.Context, id int64) (QuizRecord, bool, error) {
	record, err := scanRecord(db.db.QueryRowContext(ctx, selectQuiz+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return QuizRecord{}, false, nil
	}
	if err != nil {
		return QuizRecord{}, false, errors.Wrap(err, "failed to get quiz")
	}
	return record, true, nil
}

// UpdateStats overwrites the counters of a quiz. A missing id is not an error.
func (db *DB) UpdateStats(ctx context.Context, id int64, stats Stats) (QuizRecord, bool, error) {
	res, err := db.db.ExecContext(ctx,
		"UPDATE quizzes SET propose_count = ?, correct_count = ? WHERE id = ?",
		stats.ProposeCount, stats.CorrectCount, id,
	)
	if err != nil {
		return QuizRecord{}, false, errors.Wrap(err, "failed to update quiz stats")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return QuizRecord{}, false, errors.Wrap(err, "failed to update quiz stats")
	}
	if affected == 0 {
		return QuizRecord{}, false, nil
	}
	return db.Get(ctx, id)
}

// ContentToJSON encodes quiz content for the content column
func ContentToJSON(content QuizContent) (string, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal quiz content")
	}
	return string(data), nil
}

// ContentFromJSON decodes the content column
func ContentFromJSON(data string) (QuizContent, error) {
	var content QuizContent
	if err := json.Unmarshal([]byte(data), &content); err != nil {
		return QuizContent{}, errors.Wrap(err, "failed to unmarshal quiz content")
	}
	return content, nil
}
