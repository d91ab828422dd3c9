package notequiz

import (
	"context"
	"sync"
)

// stubCapability returns canned payloads in order, repeating the last one.
type stubCapability struct {
	mu       sync.Mutex
	payloads []string
	err      error
	passages []string
}

func (c *stubCapability) Complete(ctx context.Context, passage string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.passages = append(c.passages, passage)
	if c.err != nil {
		return "", c.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(c.payloads) == 0 {
		return "[]", nil
	}
	i := len(c.passages) - 1
	if i >= len(c.payloads) {
		i = len(c.payloads) - 1
	}
	return c.payloads[i], nil
}

func (c *stubCapability) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.passages)
}

// blockingCapability waits for the context to end.
type blockingCapability struct{}

func (blockingCapability) Complete(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

const waterPayload = `[{"question":"What is water?","corrects":["H2O"],"damys":["O2","CO2"]}]`

const twoQuizPayload = `[
	{"question":"What is water?","corrects":["H2O"],"damys":["O2","CO2"]},
	{"question":"What does water freeze into?","corrects":["Ice"],"damys":["Steam"]}
]`

func waterNote() Note {
	return Note{
		ID:   "note-1",
		Name: "Chemistry",
		Blocks: []NoteBlock{
			{ID: "img-1", Type: "image"},
			{ID: "block-1", Type: BlockTypeText, Text: "Water is H2O"},
		},
	}
}

func sampleContent(question string) QuizContent {
	return QuizContent{
		Question: question,
		Corrects: []string{"yes"},
		Damys:    []string{"no", "maybe"},
	}
}
