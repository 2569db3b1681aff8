package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/dragon-peak/quiz-game-service/internal/errors"
	"github.com/dragon-peak/quiz-game-service/internal/models"
)

// Validator wraps struct-tag validation and the question invariant checks.
type Validator struct {
	structValidator *validator.Validate
}

// New creates the shared validator instance with custom rules registered.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// ValidateStruct validates struct tags only.
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate performs complete validation and converts field errors into the
// shared ValidationErrors type.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

// ValidateQuestion checks the canonical question invariants: at least one
// answer, and any correctness designator actually resolving within the
// option list. An unresolvable designator is reported, not repaired — the
// evaluator handles that case conservatively at play time.
func (v *Validator) ValidateQuestion(q *models.Question) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors

	if len(q.Answers) == 0 {
		errs = append(errs, *apperrors.NewValidationError("answers", "must be at least 1", nil))
		return errs
	}

	if q.CorrectIndex != nil {
		if *q.CorrectIndex < 0 || *q.CorrectIndex >= len(q.Answers) {
			errs = append(errs, *apperrors.NewValidationError(
				"correct_index", "must resolve to an answer in the option list", *q.CorrectIndex))
		}
	} else if q.CorrectID != "" {
		found := false
		for _, a := range q.Answers {
			if a.ID == q.CorrectID {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, *apperrors.NewValidationError(
				"correct_id", "must resolve to an answer in the option list", q.CorrectID))
		}
	}

	return errs
}

// ValidateQuestionSet applies ValidateQuestion to every playable question.
func (v *Validator) ValidateQuestionSet(qs *models.QuestionSet) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors

	if qs.Len() == 0 {
		errs = append(errs, *apperrors.NewValidationError("questions", "must be at least 1", nil))
		return errs
	}
	for i := 0; i < qs.Len(); i++ {
		errs = append(errs, v.ValidateQuestion(qs.At(i))...)
	}
	return errs
}

func validateSourceMode(fl validator.FieldLevel) bool {
	switch models.SourceMode(fl.Field().String()) {
	case models.SourceCustom, models.SourceSample, models.SourceRemote, models.SourceBridged:
		return true
	}
	return false
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("source_mode", validateSourceMode)

	// Report json field names in error messages.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
