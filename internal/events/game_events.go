package events

import (
	"time"

	"github.com/dragon-peak/quiz-game-service/internal/models"
)

// EventType represents the kinds of game events the service emits.
type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventAnswerSubmitted  EventType = "session.answer_submitted"
	EventSessionCompleted EventType = "session.completed"
	EventSessionRestarted EventType = "session.restarted"
)

// GameEvent is the base structure for all game events.
type GameEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// SessionStartedEvent is emitted when a session resolves its question set
// and becomes playable.
type SessionStartedEvent struct {
	SessionID          string            `json:"session_id"`
	SourceMode         models.SourceMode `json:"source_mode"`
	LearningObjectCode string            `json:"learning_object_code,omitempty"`
	TotalQuestions     int               `json:"total_questions"`
	FellBack           bool              `json:"fell_back"`
}

// AnswerSubmittedEvent is emitted per evaluated answer.
type AnswerSubmittedEvent struct {
	SessionID     string `json:"session_id"`
	QuestionIndex int    `json:"question_index"`
	QuestionID    string `json:"question_id,omitempty"`
	AnswerID      string `json:"answer_id"`
	IsCorrect     bool   `json:"is_correct"`
	MascotStep    int    `json:"mascot_step"`
}

// SessionCompletedEvent is emitted when a session ends, whether by win or
// by question exhaustion.
type SessionCompletedEvent struct {
	SessionID     string `json:"session_id"`
	CorrectCount  int    `json:"correct_count"`
	MascotStep    int    `json:"mascot_step"`
	ReachedFinish bool   `json:"reached_finish"`
}

// SessionRestartedEvent is emitted on an in-place restart.
type SessionRestartedEvent struct {
	SessionID string `json:"session_id"`
}
