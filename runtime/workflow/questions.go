package workflow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Caps for the rule-based fallback extractor.
const (
	maxFallbackQuestions = 5
	maxFallbackOptions   = 4
)

// questionsSchemaJSON validates the question payload the model returns
// before it is decoded. Anything that fails validation is treated as
// malformed and recovered via the fallback extractor.
const questionsSchemaJSON = `{
	"type": "object",
	"required": ["needs_clarification"],
	"properties": {
		"needs_clarification": {"type": "boolean"},
		"questions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["prompt"],
				"properties": {
					"id": {"type": "string"},
					"prompt": {"type": "string", "minLength": 1},
					"type": {"type": "string"},
					"options": {"type": "array", "items": {"type": "string"}},
					"rationale": {"type": "string"}
				}
			}
		}
	}
}`

var questionsSchema = mustCompileQuestionsSchema()

func mustCompileQuestionsSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(questionsSchemaJSON))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("questions.json", doc); err != nil {
		panic(err)
	}
	return c.MustCompile("questions.json")
}

type questionsPayload struct {
	NeedsClarification bool `json:"needs_clarification"`
	Questions          []struct {
		ID        string   `json:"id"`
		Prompt    string   `json:"prompt"`
		Type      string   `json:"type"`
		Options   []string `json:"options"`
		Rationale string   `json:"rationale"`
	} `json:"questions"`
}

// parseQuestions extracts and validates the question payload from the model
// output. Models occasionally wrap the JSON in prose or code fences, so the
// outermost object is located first.
func parseQuestions(text string) (needs bool, questions []Question, err error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return false, nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return false, nil, fmt.Errorf("question payload is not valid JSON: %w", err)
	}
	if err := questionsSchema.Validate(doc); err != nil {
		return false, nil, fmt.Errorf("question payload failed validation: %w", err)
	}
	var payload questionsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return false, nil, fmt.Errorf("decode question payload: %w", err)
	}
	for i, q := range payload.Questions {
		if len(questions) >= maxFallbackQuestions {
			break
		}
		promptText := strings.TrimSpace(q.Prompt)
		if promptText == "" {
			continue
		}
		id := strings.TrimSpace(q.ID)
		if id == "" {
			id = fmt.Sprintf("q%d", i+1)
		}
		qType := q.Type
		if qType == "" {
			if len(q.Options) > 0 {
				qType = QuestionTypeMultipleChoice
			} else {
				qType = QuestionTypeText
			}
		}
		questions = append(questions, Question{
			ID:        id,
			Prompt:    promptText,
			Type:      qType,
			Options:   q.Options,
			Rationale: q.Rationale,
		})
	}
	return payload.NeedsClarification, questions, nil
}

func extractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in question output")
	}
	return text[start : end+1], nil
}

var (
	headingRe = regexp.MustCompile(`^\s*(?:#{1,6}\s+(.+?)\s*#*|\*\*(.+?)\*\*:?)\s*$`)
	optionRe  = regexp.MustCompile(`(?i)^\s*(?:[-*•]\s*)?Option\s+([A-ZÄÖÜ])\s*:\s*(.+)$`)
)

// FallbackQuestions synthesizes multiple-choice questions from the plan text
// when generation-based question derivation produced nothing parseable. It
// scans the plan for headed sections; a section with at least two
// "Option <letter>: <text>" markers yields one question asking the user to
// choose among them. At most maxFallbackQuestions questions are produced,
// each with at most maxFallbackOptions options. This guarantees the UI never
// shows zero questions without an explanation of why.
func FallbackQuestions(planText string) []Question {
	type section struct {
		title   string
		options []string
	}
	var sections []section
	current := -1
	for _, line := range strings.Split(planText, "\n") {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			title := m[1]
			if title == "" {
				title = m[2]
			}
			sections = append(sections, section{title: strings.TrimSpace(title)})
			current = len(sections) - 1
			continue
		}
		if current < 0 {
			continue
		}
		if m := optionRe.FindStringSubmatch(line); m != nil {
			sections[current].options = append(sections[current].options, strings.TrimSpace(m[2]))
		}
	}

	var questions []Question
	for _, sec := range sections {
		if len(questions) >= maxFallbackQuestions {
			break
		}
		if len(sec.options) < 2 || sec.title == "" {
			continue
		}
		options := sec.options
		if len(options) > maxFallbackOptions {
			options = options[:maxFallbackOptions]
		}
		questions = append(questions, Question{
			ID:        fmt.Sprintf("fb%d", len(questions)+1),
			Prompt:    fmt.Sprintf("Welche Option soll für %q umgesetzt werden?", sec.title),
			Type:      QuestionTypeMultipleChoice,
			Options:   options,
			Rationale: "Der Plan enthält mehrere Optionen für diesen Abschnitt.",
		})
	}
	return questions
}
