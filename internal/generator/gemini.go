// Package generator produces quiz questions with the Gemini API.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"adaptive-quiz-service/internal/domain"
	apperrors "adaptive-quiz-service/internal/errors"
	"adaptive-quiz-service/internal/logging"
)

// contentGenerator is the slice of genai.Models the generator needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKey         string
	Model          string
	MaxAttempts    int
	InitialBackoff time.Duration
}

type Gemini struct {
	models         contentGenerator
	model          string
	maxAttempts    int
	initialBackoff time.Duration
}

func NewGemini(ctx context.Context, c Config) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("generator: create gemini client: %w", err)
	}
	return newGemini(client.Models, c), nil
}

func newGemini(models contentGenerator, c Config) *Gemini {
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	return &Gemini{
		models:         models,
		model:          c.Model,
		maxAttempts:    c.MaxAttempts,
		initialBackoff: c.InitialBackoff,
	}
}

// Generate asks the model for count questions. Rate limit responses are retried
// with exponential backoff up to the configured attempts; any other failure is
// returned at once as upstream unavailable.
func (g *Gemini) Generate(ctx context.Context, subject, topic string, difficulty domain.Difficulty, count int) ([]domain.Question, error) {
	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"subject":    subject,
		"difficulty": difficulty,
		"count":      count,
	})

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   questionSchema(),
	}
	prompt := buildPrompt(subject, topic, difficulty, count)

	var raw string
	op := func() error {
		result, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
		if err != nil {
			if isRateLimited(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		raw = result.Text()
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.initialBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(g.maxAttempts-1)), ctx)

	attempt := 1
	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		log.WithError(err).Warnf("generator: rate limited on attempt %d, retrying in %s", attempt, wait)
		attempt++
	})
	if err != nil {
		log.WithError(err).Error("generator: generate content failed")
		return nil, apperrors.UpstreamUnavailable(fmt.Errorf("generate questions: %w", err))
	}

	questions, err := parseQuestions(raw, count)
	if err != nil {
		log.WithError(err).Debugf("generator: raw response:\n%s", raw)
		return nil, apperrors.UpstreamUnavailable(err)
	}
	log.Infof("generator: produced %d questions", len(questions))
	return questions, nil
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}

type generatedQuestion struct {
	Type               string   `json:"type"`
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex"`
	CorrectAnswerText  string   `json:"correctAnswerText"`
	Explanation        string   `json:"explanation"`
}

// parseQuestions decodes the model output, dropping entries that are not
// well-formed questions. It fails only when nothing usable remains.
func parseQuestions(raw string, count int) ([]domain.Question, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil, errors.New("generator: empty model response")
	}

	var generated []generatedQuestion
	if err := json.Unmarshal([]byte(clean), &generated); err != nil {
		return nil, fmt.Errorf("generator: decode model response: %w", err)
	}

	batch := uuid.NewString()[:8]
	out := make([]domain.Question, 0, len(generated))
	for i, g := range generated {
		q := domain.Question{
			ID:          fmt.Sprintf("q-%s-%d", batch, i),
			Type:        domain.QuestionType(strings.ToLower(strings.TrimSpace(g.Type))),
			Text:        strings.TrimSpace(g.Text),
			Explanation: g.Explanation,
		}
		if q.Type == domain.QuestionFillInBlank {
			q.CorrectAnswerText = g.CorrectAnswerText
		} else {
			q.Options = g.Options
			q.CorrectAnswerIndex = g.CorrectAnswerIndex
		}
		if err := q.Validate(); err != nil {
			continue
		}
		out = append(out, q)
		if count > 0 && len(out) == count {
			break
		}
	}
	if len(out) == 0 {
		return nil, errors.New("generator: model returned no usable questions")
	}
	return out, nil
}
