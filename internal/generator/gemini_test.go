package generator

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"adaptive-quiz-service/internal/domain"
	apperrors "adaptive-quiz-service/internal/errors"
)

const validResponse = "```json\n" + `[
  {"type": "mcq", "text": "2 + 2?", "options": ["3", "4", "5", "6"], "correctAnswerIndex": 1, "explanation": "basic"},
  {"type": "TF", "text": "The sky is green.", "options": ["True", "False"], "correctAnswerIndex": 1, "explanation": "it is blue"},
  {"type": "fitb", "text": "H2O is ____.", "correctAnswerText": "water", "explanation": "chemistry"},
  {"type": "mcq", "text": "broken", "options": ["a"], "correctAnswerIndex": 4, "explanation": "dropped"}
]` + "\n```"

type fakeModels struct {
	errs  []error
	text  string
	calls int
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}}},
		},
	}, nil
}

func newTestGemini(f *fakeModels) *Gemini {
	return newGemini(f, Config{MaxAttempts: 3, InitialBackoff: time.Millisecond})
}

func TestGenerate(t *testing.T) {
	rateLimited := genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"}
	badRequest := genai.APIError{Code: http.StatusBadRequest, Message: "bad prompt"}

	tests := map[string]struct {
		arrange func() *fakeModels
		assert  func(t *testing.T, f *fakeModels, qs []domain.Question, err error)
	}{
		"should parse fenced json and drop malformed questions": {
			arrange: func() *fakeModels { return &fakeModels{text: validResponse} },
			assert: func(t *testing.T, f *fakeModels, qs []domain.Question, err error) {
				require.NoError(t, err)
				require.Len(t, qs, 3)
				require.Equal(t, domain.QuestionTrueFalse, qs[1].Type)
				require.Equal(t, "water", qs[2].CorrectAnswerText)
				require.Nil(t, qs[2].Options)
				require.Equal(t, 1, f.calls)
			},
		},
		"should retry rate limited calls and then succeed": {
			arrange: func() *fakeModels {
				return &fakeModels{errs: []error{rateLimited, &rateLimited}, text: validResponse}
			},
			assert: func(t *testing.T, f *fakeModels, qs []domain.Question, err error) {
				require.NoError(t, err)
				require.Len(t, qs, 3)
				require.Equal(t, 3, f.calls)
			},
		},
		"should give up after three rate limited attempts": {
			arrange: func() *fakeModels {
				return &fakeModels{errs: []error{rateLimited, rateLimited, rateLimited, nil}, text: validResponse}
			},
			assert: func(t *testing.T, f *fakeModels, _ []domain.Question, err error) {
				require.Error(t, err)
				require.True(t, apperrors.Is(err, apperrors.CodeUpstreamUnavailable))
				require.Equal(t, 3, f.calls)
			},
		},
		"should not retry other upstream errors": {
			arrange: func() *fakeModels {
				return &fakeModels{errs: []error{badRequest}, text: validResponse}
			},
			assert: func(t *testing.T, f *fakeModels, _ []domain.Question, err error) {
				require.True(t, apperrors.Is(err, apperrors.CodeUpstreamUnavailable))
				var apiErr genai.APIError
				require.True(t, errors.As(err, &apiErr))
				require.Equal(t, 1, f.calls)
			},
		},
		"should fail on unusable output": {
			arrange: func() *fakeModels { return &fakeModels{text: "I cannot help with that"} },
			assert: func(t *testing.T, _ *fakeModels, _ []domain.Question, err error) {
				require.True(t, apperrors.Is(err, apperrors.CodeUpstreamUnavailable))
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := tt.arrange()
			qs, err := newTestGemini(f).Generate(context.Background(), "Math", "Arithmetic", domain.DifficultyEasy, 5)
			tt.assert(t, f, qs, err)
		})
	}
}

func TestParseQuestionsTruncatesToCount(t *testing.T) {
	qs, err := parseQuestions(validResponse, 2)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	require.NotEqual(t, qs[0].ID, qs[1].ID)
}

func TestBuildPromptClampsCount(t *testing.T) {
	require.Contains(t, buildPrompt("Math", "", domain.DifficultyHard, 500), "Generate 20 mixed-format")
	require.Contains(t, buildPrompt("Math", "", domain.DifficultyHard, 0), "Generate 1 mixed-format")
}
