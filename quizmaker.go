package notequiz

import (
	"context"
	"fmt"
	"strings"
)

// Capability is the external text generation service.
// Complete returns a JSON-array-shaped payload of quiz candidates for the passage.
// A missing or unreachable service is reported with an error wrapping ErrCapabilityUnavailable.
type Capability interface {
	Complete(ctx context.Context, passage string) (string, error)
}

// Generation is the result of one generator call
type Generation struct {
	Quizzes []QuizContent
	Outcome Outcome
}

// Generator turns a text passage into validated quizzes.
type Generator interface {
	Generate(ctx context.Context, sourceText string) (Generation, error)
}

// QuizMaker generates quizzes from note text through a Capability
type QuizMaker struct {
	capability Capability
	logger     *LLMLogger
}

// NewQuizMaker creates a new quiz maker on top of the given capability
func NewQuizMaker(capability Capability) *QuizMaker {
	return &QuizMaker{capability: capability}
}

// SetLogger attaches a transcript logger. Pass nil to detach it.
func (qm *QuizMaker) SetLogger(logger *LLMLogger) {
	qm.logger = logger
}

// Generate asks the capability for quizzes about sourceText.
// Payloads that are not a JSON array yield OutcomeMalformed and no error; invalid
// candidates are dropped. Only capability failures and cancellation return an error.
func (qm *QuizMaker) Generate(ctx context.Context, sourceText string) (Generation, error) {
	if qm.capability == nil {
		return Generation{}, fmt.Errorf("no generation capability configured: %w", ErrCapabilityUnavailable)
	}

	VerboseLog("Generating quizzes from %d characters of text", len(sourceText))
	if qm.logger != nil {
		qm.logger.LogLLMRequest("QuizMaker", sourceText)
	}

	payload, err := qm.capability.Complete(ctx, sourceText)
	if err != nil {
		if qm.logger != nil {
			qm.logger.Logf("Generation failed: %v\n", err)
		}
		return Generation{}, fmt.Errorf("failed to generate quizzes: %w", err)
	}

	quizzes, outcome := ParseContents(payload)
	if qm.logger != nil {
		qm.logger.LogLLMResponse("QuizMaker", payload)
		qm.logger.LogGeneration(outcome, len(quizzes))
	}
	VerboseLog("Generation outcome %s with %d quizzes", outcome, len(quizzes))

	return Generation{Quizzes: quizzes, Outcome: outcome}, nil
}

// BuildPrompt returns the instructions sent alongside a passage.
func BuildPrompt() string {
	var sb strings.Builder

	sb.WriteString("You write multiple choice quizzes that help a student review their own notes.\n\n")
	sb.WriteString("The user message is a passage taken from a note. It may contain HTML markup; ignore the markup.\n\n")

	sb.WriteString("Requirements:\n")
	sb.WriteString("- Only ask about facts stated in the passage\n")
	sb.WriteString("- Each quiz has a question, one or more correct answers and several wrong answers (damys)\n")
	sb.WriteString("- A wrong answer must never also be a correct answer\n")
	sb.WriteString("- Wrong answers should be plausible but clearly wrong\n")
	sb.WriteString("- Do not give the answer away in the question text\n")
	sb.WriteString("- Write in the language of the passage\n")
	sb.WriteString("- If the passage has nothing worth asking about, return an empty list\n\n")

	sb.WriteString("Respond with a JSON array of objects shaped as ")
	sb.WriteString(`{"question": string, "corrects": [string], "damys": [string]}`)
	sb.WriteString(" or use the submit_quizzes tool.")

	return sb.String()
}
