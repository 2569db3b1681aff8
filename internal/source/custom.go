package source

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dragon-peak/quiz-game-service/internal/models"
)

// Caller-supplied question lists arrive in whatever shape the embedding
// host produces: answers may be bare strings or objects, and the object
// field names for text and id vary between hosts. Normalization into the
// canonical types happens here so nothing past the source boundary ever
// sees the loose shapes.

// LooseAnswer accepts either a bare string or an option object.
type LooseAnswer struct {
	ID   string
	Text string
}

func (a *LooseAnswer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Text = s
		return nil
	}

	var obj struct {
		ID          json.Number `json:"id"`
		OptionCode  string      `json:"option_code"`
		Content     string      `json:"content"`
		Text        string      `json:"text"`
		OptionValue string      `json:"option_value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("answer must be a string or an option object: %w", err)
	}

	switch {
	case obj.ID.String() != "":
		a.ID = obj.ID.String()
	case obj.OptionCode != "":
		a.ID = obj.OptionCode
	}

	switch {
	case obj.Content != "":
		a.Text = obj.Content
	case obj.Text != "":
		a.Text = obj.Text
	default:
		a.Text = obj.OptionValue
	}
	return nil
}

// LooseQuestion is the caller-facing question shape before normalization.
type LooseQuestion struct {
	ID           json.Number   `json:"id"`
	Question     string        `json:"question"`
	Content      string        `json:"content"`
	ImageURL     string        `json:"image_url"`
	Answers      []LooseAnswer `json:"answers"`
	CorrectIndex *int          `json:"correct_index"`
	CorrectID    string        `json:"correct_id"`
}

// NormalizeQuestions converts loose caller-supplied questions into the
// canonical type. Answer ids missing from the payload are synthesized
// from position as 1-based ordinals.
func NormalizeQuestions(loose []LooseQuestion) []models.Question {
	questions := make([]models.Question, 0, len(loose))
	for i, lq := range loose {
		answers := make([]models.Answer, len(lq.Answers))
		for j, la := range lq.Answers {
			id := la.ID
			if id == "" {
				id = strconv.Itoa(j + 1)
			}
			answers[j] = models.Answer{ID: id, Text: la.Text}
		}

		id := lq.ID.String()
		if id == "" {
			id = strconv.Itoa(i + 1)
		}

		prompt := lq.Question
		if prompt == "" {
			prompt = lq.Content
		}

		questions = append(questions, models.Question{
			ID:           id,
			Prompt:       prompt,
			MediaURL:     lq.ImageURL,
			Answers:      answers,
			CorrectIndex: lq.CorrectIndex,
			CorrectID:    lq.CorrectID,
		})
	}
	return questions
}
