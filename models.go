package notequiz

// QuizContent is a single generated multiple choice question.
// Corrects and Damys behave as sets and never share an answer.
type QuizContent struct {
	Question string   `json:"question"`
	Corrects []string `json:"corrects"`
	Damys    []string `json:"damys"`
}

// Choices returns every answer option, correct answers first.
func (c QuizContent) Choices() []string {
	choices := make([]string, 0, len(c.Corrects)+len(c.Damys))
	choices = append(choices, c.Corrects...)
	choices = append(choices, c.Damys...)
	return choices
}

// IsCorrect reports whether choice is one of the accepted answers.
func (c QuizContent) IsCorrect(choice string) bool {
	for _, correct := range c.Corrects {
		if correct == choice {
			return true
		}
	}
	return false
}

// QuizRecord is a persisted quiz and its answer statistics
type QuizRecord struct {
	ID           int64       `json:"id"`
	NoteID       string      `json:"note_id"`
	NoteDataID   string      `json:"note_data_id"` // block the quiz was generated from
	Content      QuizContent `json:"content"`
	ProposeCount int         `json:"propose_count"`
	CorrectCount int         `json:"correct_count"`
}

// Rate returns the share of correct answers, 0 for a never proposed quiz.
func (r QuizRecord) Rate() float64 {
	if r.ProposeCount == 0 {
		return 0
	}
	return float64(r.CorrectCount) / float64(r.ProposeCount)
}

// Stats holds the counters written by UpdateStats.
type Stats struct {
	ProposeCount int `json:"propose_count"`
	CorrectCount int `json:"correct_count"`
}

// Reason tells why a quiz was picked for a session
type Reason string

const (
	ReasonNew     Reason = "new"
	ReasonLowRate Reason = "lowRate"
)

// Rate is a snapshot of a record's counters at selection time.
type Rate struct {
	Proposed int `json:"proposed"`
	Correct  int `json:"correct"`
}

// GeneratedQuiz is the session-scoped view of a QuizRecord.
type GeneratedQuiz struct {
	ID         int64       `json:"id"`
	Content    QuizContent `json:"content"`
	NoteDataID string      `json:"note_data_id"`
	Reason     Reason      `json:"reason"`
	Rate       Rate        `json:"rate"`
}

func newGeneratedQuiz(record QuizRecord, reason Reason) *GeneratedQuiz {
	return &GeneratedQuiz{
		ID:         record.ID,
		Content:    record.Content,
		NoteDataID: record.NoteDataID,
		Reason:     reason,
		Rate: Rate{
			Proposed: record.ProposeCount,
			Correct:  record.CorrectCount,
		},
	}
}

// BlockTypeText marks note blocks whose text can be quizzed.
const BlockTypeText = "text"

// NoteBlock is one content block of a note.
type NoteBlock struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Note is the payload a quiz session loads.
type Note struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Blocks []NoteBlock `json:"blocks"`
}

// TextBlocks returns the blocks of type text, in order.
func TextBlocks(blocks []NoteBlock) []NoteBlock {
	var texts []NoteBlock
	for _, block := range blocks {
		if block.Type == BlockTypeText {
			texts = append(texts, block)
		}
	}
	return texts
}

// PoolStats summarizes the quiz pool of a note.
type PoolStats struct {
	NoteID        string `json:"note_id"`
	Total         int    `json:"total"`
	NeverProposed int    `json:"never_proposed"`
	Proposals     int    `json:"proposals"`
	Corrects      int    `json:"corrects"`
}
