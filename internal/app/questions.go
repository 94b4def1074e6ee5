package app

import (
	"context"

	"github.com/sirupsen/logrus"

	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/logging"
	"adaptive-quiz-service/internal/telemetry"
)

// QuestionGenerator produces fresh questions, typically from an LLM. It may fail.
type QuestionGenerator interface {
	Generate(ctx context.Context, subject, topic string, difficulty domain.Difficulty, count int) ([]domain.Question, error)
}

// FallbackBank serves pre-authored questions.
type FallbackBank interface {
	Draw(count int, subject string) []domain.Question
}

// QuestionSource tries the generator first and degrades to the fallback bank.
type QuestionSource struct {
	generator QuestionGenerator
	bank      FallbackBank
}

// NewQuestionSource builds a source; generator may be nil to always use the bank.
func NewQuestionSource(generator QuestionGenerator, bank FallbackBank) *QuestionSource {
	return &QuestionSource{generator: generator, bank: bank}
}

// Questions never fails: generation errors are logged and the bank is used.
// The returned flag reports whether the fallback was taken.
func (s *QuestionSource) Questions(ctx context.Context, subject, topic string, difficulty domain.Difficulty, count int) ([]domain.Question, bool) {
	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"subject":    subject,
		"difficulty": difficulty,
	})

	if s.generator != nil {
		questions, err := s.generator.Generate(ctx, subject, topic, difficulty, count)
		if err == nil && len(questions) > 0 {
			telemetry.QuestionBatches.WithLabelValues("generator").Inc()
			return questions, false
		}
		log.WithError(err).Warn("question generation failed, using fallback bank")
	}

	telemetry.QuestionBatches.WithLabelValues("fallback").Inc()
	return s.bank.Draw(count, subject), true
}
