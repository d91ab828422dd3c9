package notequiz

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Outcome classifies what a generation payload produced
type Outcome string

const (
	// OutcomeGenerated means at least one valid quiz was produced.
	OutcomeGenerated Outcome = "generated"
	// OutcomeEmpty means the payload was a JSON array without any valid quiz.
	OutcomeEmpty Outcome = "empty"
	// OutcomeMalformed means the payload was not JSON or not an array.
	OutcomeMalformed Outcome = "malformed"
)

const contentSchemaJSON = `{
	"type": "object",
	"properties": {
		"question": {"type": "string"},
		"corrects": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"damys": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["question", "corrects", "damys"]
}`

var contentSchema = mustSchema(contentSchemaJSON)

func mustSchema(definition string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(definition))
	if err != nil {
		panic("invalid quiz content schema: " + err.Error())
	}
	return schema
}

// ValidateContent checks one decoded generation candidate.
// It returns false for anything that is not {question, corrects, damys} with at least one
// correct answer, and for candidates whose correct answers and distractors overlap.
func ValidateContent(raw any) (QuizContent, bool) {
	result, err := contentSchema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil || !result.Valid() {
		return QuizContent{}, false
	}
	return decodeContent(raw)
}

// decodeContent converts an already validated candidate into a QuizContent with set semantics.
func decodeContent(raw any) (QuizContent, bool) {
	data, err := json.Marshal(raw)
	if err != nil {
		return QuizContent{}, false
	}
	var content QuizContent
	if err := json.Unmarshal(data, &content); err != nil {
		return QuizContent{}, false
	}
	content.Corrects = dedupe(content.Corrects)
	content.Damys = dedupe(content.Damys)
	return content, content.disjoint()
}

func (c QuizContent) disjoint() bool {
	corrects := make(map[string]struct{}, len(c.Corrects))
	for _, answer := range c.Corrects {
		corrects[answer] = struct{}{}
	}
	for _, damy := range c.Damys {
		if _, ok := corrects[damy]; ok {
			return false
		}
	}
	return true
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ParseContents decodes a generation payload and keeps its valid quizzes in order.
func ParseContents(payload string) ([]QuizContent, Outcome) {
	var doc any
	if err := json.Unmarshal([]byte(stripCodeFence(payload)), &doc); err != nil {
		return nil, OutcomeMalformed
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, OutcomeMalformed
	}

	contents := make([]QuizContent, 0, len(items))
	for _, item := range items {
		content, ok := ValidateContent(item)
		if !ok {
			VerboseLog("Dropping invalid quiz candidate: %v", item)
			continue
		}
		contents = append(contents, content)
	}
	if len(contents) == 0 {
		return nil, OutcomeEmpty
	}
	return contents, OutcomeGenerated
}

// stripCodeFence removes a surrounding ```json fence that chat models like to add.
func stripCodeFence(payload string) string {
	s := strings.TrimSpace(payload)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
