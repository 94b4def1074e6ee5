package domain_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"adaptive-quiz-service/internal/domain"
)

func intPtr(i int) *int { return &i }

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Type: domain.QuestionMultipleChoice, Text: "Capital of France?", Options: []string{"London", "Berlin", "Paris", "Madrid"}, CorrectAnswerIndex: intPtr(2)},
		{ID: "q2", Type: domain.QuestionTrueFalse, Text: "Water boils at 100C at sea level.", Options: []string{"True", "False"}, CorrectAnswerIndex: intPtr(0)},
		{ID: "q3", Type: domain.QuestionFillInBlank, Text: "The powerhouse of the cell is the ____.", CorrectAnswerText: "mitochondria"},
	}
}

func TestFillInBlankMatching(t *testing.T) {
	q := sampleQuestions()[2]

	if !q.IsCorrect(domain.TextAnswer("  Mitochondria  ")) {
		t.Fatalf("expected padded mixed case answer to match")
	}
	if q.IsCorrect(domain.TextAnswer("mitochondria!")) {
		t.Fatalf("expected punctuation to break the match")
	}
	if q.IsCorrect(domain.Answer{}) {
		t.Fatalf("unset answer must never be correct")
	}

	empty := domain.Question{ID: "q4", Type: domain.QuestionFillInBlank, Text: "?"}
	if !empty.IsCorrect(domain.TextAnswer("   ")) {
		t.Fatalf("missing expected text is an empty target")
	}
}

func TestChoiceMatchingIsExactIndex(t *testing.T) {
	q := sampleQuestions()[0]
	if !q.IsCorrect(domain.IndexAnswer(2)) {
		t.Fatalf("expected index 2 to be correct")
	}
	if q.IsCorrect(domain.IndexAnswer(1)) {
		t.Fatalf("expected index 1 to be wrong")
	}
	if q.IsCorrect(domain.TextAnswer("Paris")) {
		t.Fatalf("text answers never match choice questions")
	}
}

func TestRecordResponseScoresAndFinalizesOnce(t *testing.T) {
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	s := domain.NewQuizSession("s1", "u1", "Science", "", domain.DifficultyMedium, sampleQuestions(), now)

	steps := []struct {
		index   int
		answer  domain.Answer
		correct bool
	}{
		{0, domain.IndexAnswer(2), true},
		{1, domain.IndexAnswer(1), false},
		{2, domain.TextAnswer(" MITOCHONDRIA"), true},
	}
	for _, step := range steps {
		if s.Completed() {
			t.Fatalf("session completed before the last answer")
		}
		correct, err := s.RecordResponse(step.index, step.answer, now.Add(time.Minute))
		if err != nil {
			t.Fatalf("record %d: %v", step.index, err)
		}
		if correct != step.correct {
			t.Fatalf("record %d: correct=%v want %v", step.index, correct, step.correct)
		}
	}

	if s.Score != 2 {
		t.Fatalf("expected score 2, got %d", s.Score)
	}
	if s.CompletedAt == nil || !s.CompletedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected completedAt set on last answer, got %v", s.CompletedAt)
	}

	completedAt := *s.CompletedAt
	if _, err := s.RecordResponse(2, domain.TextAnswer("mitochondria"), now.Add(time.Hour)); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected completed error, got %v", err)
	}
	if !s.CompletedAt.Equal(completedAt) || s.Score != 2 {
		t.Fatalf("finalized session was mutated")
	}
}

func TestRecordResponseRejectsFinalizingWithGaps(t *testing.T) {
	now := time.Now()
	s := domain.NewQuizSession("s1", "u1", "Science", "", domain.DifficultyEasy, sampleQuestions(), now)

	if _, err := s.RecordResponse(0, domain.IndexAnswer(2), now); err != nil {
		t.Fatalf("record 0: %v", err)
	}
	if _, err := s.RecordResponse(1, domain.Answer{}, now); err != nil {
		t.Fatalf("record unset answer: %v", err)
	}

	_, err := s.RecordResponse(2, domain.TextAnswer("mitochondria"), now)
	if !errors.Is(err, domain.ErrIncompleteSession) {
		t.Fatalf("expected incomplete session error, got %v", err)
	}
	if s.Completed() || s.Score != 1 {
		t.Fatalf("rejected finalize must not change the session: completed=%v score=%d", s.Completed(), s.Score)
	}

	if _, err := s.RecordResponse(1, domain.IndexAnswer(0), now); err != nil {
		t.Fatalf("unset answers can be replaced: %v", err)
	}
	if _, err := s.RecordResponse(2, domain.TextAnswer("mitochondria"), now); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if s.Score != 3 || !s.Completed() {
		t.Fatalf("expected 3/3 completed, got %d completed=%v", s.Score, s.Completed())
	}
}

func TestRecordResponseRejectsBadIndexAndDuplicates(t *testing.T) {
	now := time.Now()
	s := domain.NewQuizSession("s1", "u1", "Science", "", domain.DifficultyEasy, sampleQuestions(), now)

	if _, err := s.RecordResponse(7, domain.IndexAnswer(0), now); !errors.Is(err, domain.ErrQuestionIndexOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if _, err := s.RecordResponse(0, domain.IndexAnswer(2), now); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := s.RecordResponse(0, domain.IndexAnswer(2), now); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}
	if s.Score != 1 {
		t.Fatalf("duplicate answer must not score twice, got %d", s.Score)
	}
}

func TestAnswerJSON(t *testing.T) {
	var answers []domain.Answer
	if err := json.Unmarshal([]byte(`[2, "paris", null]`), &answers); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if answers[0].Index == nil || *answers[0].Index != 2 {
		t.Fatalf("expected index answer, got %+v", answers[0])
	}
	if answers[1].Text == nil || *answers[1].Text != "paris" {
		t.Fatalf("expected text answer, got %+v", answers[1])
	}
	if answers[2].IsSet() {
		t.Fatalf("expected unset answer, got %+v", answers[2])
	}

	if err := json.Unmarshal([]byte(`{"a":1}`), &answers[0]); err == nil {
		t.Fatalf("expected object answers to be rejected")
	}
}

func TestQuestionValidate(t *testing.T) {
	for _, q := range sampleQuestions() {
		if err := q.Validate(); err != nil {
			t.Fatalf("validate %s: %v", q.ID, err)
		}
	}

	bad := []domain.Question{
		{ID: "x1", Type: domain.QuestionMultipleChoice, Text: "?", Options: []string{"a", "b"}, CorrectAnswerIndex: intPtr(2)},
		{ID: "x2", Type: domain.QuestionTrueFalse, Text: "?", Options: []string{"True", "False"}},
		{ID: "x3", Type: domain.QuestionFillInBlank, Text: "?", Options: []string{"a"}},
		{ID: "x4", Type: "essay", Text: "?"},
		{ID: "x5", Type: domain.QuestionFillInBlank, Text: "  "},
	}
	for _, q := range bad {
		if err := q.Validate(); !errors.Is(err, domain.ErrInvalidQuestion) {
			t.Fatalf("validate %s: expected invalid question, got %v", q.ID, err)
		}
	}
}
