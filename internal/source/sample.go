package source

import "github.com/dragon-peak/quiz-game-service/internal/models"

func intPtr(i int) *int { return &i }

// fallbackQuestions is the built-in sample set used when no custom list is
// supplied and the remote source is unavailable or explicitly bypassed.
// Correctness here is positional.
var fallbackQuestions = []models.Question{
	{
		ID:     "1",
		Prompt: "Choose the correct answer (A, B, C, or D) to complete each sentence.\n\nThe day before Friday is ________.",
		Answers: []models.Answer{
			{ID: "1", Text: "Monday"},
			{ID: "2", Text: "Tuesday"},
			{ID: "3", Text: "Thursday"},
			{ID: "4", Text: "Sunday"},
		},
		CorrectIndex: intPtr(2),
	},
	{
		ID:     "2",
		Prompt: "Choose the correct answer (A, B, C, or D) to complete each sentence.\n\nA ________ lives next to my house.",
		Answers: []models.Answer{
			{ID: "1", Text: "student"},
			{ID: "2", Text: "cousin"},
			{ID: "3", Text: "neighbour"},
			{ID: "4", Text: "best friend"},
		},
		CorrectIndex: intPtr(2),
	},
	{
		ID:     "3",
		Prompt: "Choose the correct answer (A, B, C, or D) to complete each sentence.\n\nI am a ________ in Grade 3.",
		Answers: []models.Answer{
			{ID: "1", Text: "cousin"},
			{ID: "2", Text: "student"},
			{ID: "3", Text: "neighbour"},
			{ID: "4", Text: "partner"},
		},
		CorrectIndex: intPtr(1),
	},
	{
		ID:     "4",
		Prompt: "Choose the correct answer (A, B, C, or D) to complete each sentence.\n\nMy ________ is my uncle's child.",
		Answers: []models.Answer{
			{ID: "1", Text: "best friend"},
			{ID: "2", Text: "neighbour"},
			{ID: "3", Text: "student"},
			{ID: "4", Text: "cousin"},
		},
		CorrectIndex: intPtr(3),
	},
	{
		ID:     "5",
		Prompt: "Choose the correct answer (A, B, C, or D) to complete each sentence.\n\nI work with my ________ in class.",
		Answers: []models.Answer{
			{ID: "1", Text: "cousin"},
			{ID: "2", Text: "neighbour"},
			{ID: "3", Text: "partner"},
			{ID: "4", Text: "student"},
		},
		CorrectIndex: intPtr(2),
	},
}

// SampleQuestionSet returns a fresh copy of the built-in fallback set.
// Copies keep the package-level data immutable across sessions.
func SampleQuestionSet() *models.QuestionSet {
	questions := make([]models.Question, len(fallbackQuestions))
	copy(questions, fallbackQuestions)
	return &models.QuestionSet{Questions: questions, Mode: models.SourceSample}
}
