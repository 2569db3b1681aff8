package game

import (
	"log/slog"

	"github.com/dragon-peak/quiz-game-service/internal/models"
)

// Evaluator decides answer correctness across inconsistently-encoded
// sources: the sample and imported sets designate the correct answer by
// zero-based position, the remote API by option code. Precedence is
// index match first, then identifier comparison.
type Evaluator struct {
	logger *slog.Logger
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// IsCorrect never returns an error. When neither designator resolves the
// question is treated as unanswerable-correctly and every selection is
// incorrect — defaulting to some sentinel option would visibly mislead
// players.
func (e *Evaluator) IsCorrect(q *models.Question, selected *models.Answer) bool {
	if q == nil || selected == nil {
		return false
	}

	if q.CorrectIndex != nil {
		if pos := answerPosition(q, selected); pos >= 0 && pos == *q.CorrectIndex {
			return true
		}
	}

	if q.CorrectID != "" {
		return q.CorrectID == selected.ID
	}

	if q.CorrectIndex == nil {
		e.logger.Warn("Question carries no resolvable correctness designator",
			"question_id", q.ID)
	}
	return false
}

// answerPosition returns the zero-based position of the selected answer
// within the question's option list, or -1 when it is not part of it.
func answerPosition(q *models.Question, selected *models.Answer) int {
	for i := range q.Answers {
		if q.Answers[i].ID == selected.ID {
			return i
		}
	}
	return -1
}
