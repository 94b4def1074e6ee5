package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "mcq"
	QuestionTrueFalse      QuestionType = "tf"
	QuestionFillInBlank    QuestionType = "fitb"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionFillInBlank:
		return true
	}
	return false
}

// Question is produced by the generator or the fallback bank and never mutated afterwards.
// Choice questions use CorrectAnswerIndex, fill-in-the-blank uses CorrectAnswerText.
type Question struct {
	ID                 string       `json:"id"`
	Type               QuestionType `json:"type" binding:"questiontype"`
	Text               string       `json:"text" binding:"required"`
	Options            []string     `json:"options,omitempty"`
	CorrectAnswerIndex *int         `json:"correctAnswerIndex,omitempty"`
	CorrectAnswerText  string       `json:"correctAnswerText,omitempty"`
	Explanation        string       `json:"explanation,omitempty"`
}

func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question %q: empty text: %w", q.ID, ErrInvalidQuestion)
	}
	switch q.Type {
	case QuestionMultipleChoice, QuestionTrueFalse:
		if len(q.Options) < 2 {
			return fmt.Errorf("question %q: needs at least two options: %w", q.ID, ErrInvalidQuestion)
		}
		if q.CorrectAnswerIndex == nil || *q.CorrectAnswerIndex < 0 || *q.CorrectAnswerIndex >= len(q.Options) {
			return fmt.Errorf("question %q: correct answer index out of range: %w", q.ID, ErrInvalidQuestion)
		}
	case QuestionFillInBlank:
		if len(q.Options) > 0 {
			return fmt.Errorf("question %q: fill in the blank takes no options: %w", q.ID, ErrInvalidQuestion)
		}
	default:
		return fmt.Errorf("question %q: unknown type %q: %w", q.ID, q.Type, ErrInvalidQuestion)
	}
	return nil
}

// IsCorrect checks a raw answer with the strategy for the question's type.
func (q Question) IsCorrect(a Answer) bool {
	switch q.Type {
	case QuestionMultipleChoice, QuestionTrueFalse:
		return a.Index != nil && q.CorrectAnswerIndex != nil && *a.Index == *q.CorrectAnswerIndex
	case QuestionFillInBlank:
		if a.Text == nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(*a.Text), strings.TrimSpace(q.CorrectAnswerText))
	}
	return false
}

// Answer is a raw user response: an option index, free text, or nothing.
// On the wire it is a JSON number, a JSON string or null.
type Answer struct {
	Index *int
	Text  *string
}

func IndexAnswer(i int) Answer {
	return Answer{Index: &i}
}

func TextAnswer(s string) Answer {
	return Answer{Text: &s}
}

func (a Answer) IsSet() bool {
	return a.Index != nil || a.Text != nil
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch {
	case a.Index != nil:
		return json.Marshal(*a.Index)
	case a.Text != nil:
		return json.Marshal(*a.Text)
	}
	return []byte("null"), nil
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	*a = Answer{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		a.Index = &i
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("answer must be an option index, a string or null: %w", err)
	}
	a.Text = &s
	return nil
}
