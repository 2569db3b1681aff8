package bridge

import (
	"encoding/json"

	"github.com/dragon-peak/quiz-game-service/internal/source"
)

// MessageType identifies a host bridge message.
type MessageType string

const (
	// Game -> Host
	TypeRequestQuestion MessageType = "request_question"
	TypeReportAnswer    MessageType = "report_answer"
	TypeFinished        MessageType = "finished"

	// Host -> Game
	TypeDeliverQuestion     MessageType = "deliver_question"
	TypeDeliverAnswerResult MessageType = "deliver_answer_result"
)

// Message is the wire envelope exchanged with the host frame.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewMessage(t MessageType, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: t}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: raw}, nil
}

// QuestionPayload is the host-delivered question. The host decides its
// own field names for text and options, so the shape is loose and runs
// through the same normalization as caller-supplied lists.
type QuestionPayload struct {
	ID       json.Number          `json:"id"`
	Text     string               `json:"text"`
	Content  string               `json:"content"`
	Question string               `json:"question"`
	AudioURL string               `json:"audio_url"`
	Answers  []source.LooseAnswer `json:"answers"`
}

// ReportAnswerPayload carries the selected answer identifier to the host.
type ReportAnswerPayload struct {
	AnswerID string `json:"answer_id"`
}

// AnswerResultPayload is the host's verdict for a reported answer.
type AnswerResultPayload struct {
	IsCorrect       bool   `json:"is_correct"`
	CorrectAnswerID string `json:"correct_answer_id,omitempty"`
	IsLastQuestion  bool   `json:"is_last_question"`
}
