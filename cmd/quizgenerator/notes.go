package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"notequiz"
)

// readNotes loads a notes file holding one note object or an array of them
func readNotes(path string) ([]notequiz.Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	return parseNotes(data)
}

func parseNotes(data []byte) ([]notequiz.Note, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("notes file is empty")
	}

	var notes []notequiz.Note
	if data[0] == '[' {
		if err := json.Unmarshal(data, &notes); err != nil {
			return nil, fmt.Errorf("failed to decode notes: %w", err)
		}
	} else {
		var note notequiz.Note
		if err := json.Unmarshal(data, &note); err != nil {
			return nil, fmt.Errorf("failed to decode note: %w", err)
		}
		notes = append(notes, note)
	}

	for i, note := range notes {
		if note.ID == "" {
			return nil, fmt.Errorf("note %d has no id", i)
		}
	}
	if len(notes) == 0 {
		return nil, errors.New("notes file has no note")
	}
	return notes, nil
}

// pickNote returns the note with id, or the first one when id is empty
func pickNote(notes []notequiz.Note, id string) (notequiz.Note, error) {
	if id == "" {
		return notes[0], nil
	}
	for _, note := range notes {
		if note.ID == id {
			return note, nil
		}
	}
	return notequiz.Note{}, fmt.Errorf("note %s not found", id)
}
