package http

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"adaptive-quiz-service/internal/domain"
)

var registerOnce sync.Once

// registerValidators adds the domain tags used in request structs to gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("difficulty", validateDifficulty)
		_ = v.RegisterValidation("questiontype", validateQuestionType)
	})
}

func validateDifficulty(fl validator.FieldLevel) bool {
	return domain.Difficulty(fl.Field().String()).Valid()
}

func validateQuestionType(fl validator.FieldLevel) bool {
	return domain.QuestionType(fl.Field().String()).Valid()
}
