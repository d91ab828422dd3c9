package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotesSingle(t *testing.T) {
	notes, err := parseNotes([]byte(`
		{"id":"n1","name":"Chemistry","blocks":[{"id":"b1","type":"text","text":"Water is H2O"}]}`))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "n1", notes[0].ID)
	assert.Equal(t, "Water is H2O", notes[0].Blocks[0].Text)
}

func TestParseNotesArray(t *testing.T) {
	notes, err := parseNotes([]byte(`[{"id":"n1","name":"a"},{"id":"n2","name":"b"}]`))
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	note, err := pickNote(notes, "n2")
	require.NoError(t, err)
	assert.Equal(t, "b", note.Name)

	note, err = pickNote(notes, "")
	require.NoError(t, err)
	assert.Equal(t, "n1", note.ID)

	_, err = pickNote(notes, "n3")
	assert.Error(t, err)
}

func TestParseNotesInvalid(t *testing.T) {
	for name, data := range map[string]string{
		"empty":      "  ",
		"no array":   "[]",
		"missing id": `{"name":"a"}`,
		"not json":   "notes",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseNotes([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestReadNotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"n1"}`), 0o644))

	notes, err := readNotes(path)
	require.NoError(t, err)
	assert.Equal(t, "n1", notes[0].ID)

	_, err = readNotes(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
