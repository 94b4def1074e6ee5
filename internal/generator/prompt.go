package generator

import (
	"fmt"

	"google.golang.org/genai"

	"adaptive-quiz-service/internal/domain"
)

const (
	minCount = 1
	maxCount = 20
)

func buildPrompt(subject, topic string, difficulty domain.Difficulty, count int) string {
	if count < minCount {
		count = minCount
	}
	if count > maxCount {
		count = maxCount
	}
	if topic == "" {
		topic = "general"
	}
	return fmt.Sprintf(`Generate %d mixed-format questions for the subject %q, chapter %q.
Difficulty: %q.
Provide a mix of these types:
1. "mcq": Multiple choice with 4 options.
2. "tf": True or False question with the options ["True", "False"].
3. "fitb": Fill in the blank (short answer).

Each "mcq" and "tf" must have a "correctAnswerIndex".
Each "fitb" must have a "correctAnswerText".
Include an explanation for all questions.`, count, subject, topic, difficulty)
}

func questionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"type": {
					Type:        genai.TypeString,
					Enum:        []string{"mcq", "tf", "fitb"},
					Description: "The format of the question.",
				},
				"text": {Type: genai.TypeString, Description: "The quiz question text."},
				"options": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "Options for mcq (4) or tf (2). Leave empty for fitb.",
				},
				"correctAnswerIndex": {Type: genai.TypeInteger, Description: "Zero-based index of the correct option for mcq/tf."},
				"correctAnswerText":  {Type: genai.TypeString, Description: "The exact correct string for fitb."},
				"explanation":        {Type: genai.TypeString, Description: "A short explanation of the correct answer."},
			},
			Required:         []string{"type", "text", "explanation"},
			PropertyOrdering: []string{"type", "text", "options", "correctAnswerIndex", "correctAnswerText", "explanation"},
		},
	}
}
