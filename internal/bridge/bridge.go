package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dragon-peak/quiz-game-service/internal/game"
	"github.com/dragon-peak/quiz-game-service/internal/models"
	"github.com/dragon-peak/quiz-game-service/internal/source"
)

// SendFunc delivers an outbound message to the host frame. Transports
// (websocket, watermill pub-sub) supply their own implementation.
type SendFunc func(Message) error

// Bridge drives one bridged session against a host frame: it requests
// question data, reports selected answers, signals completion, and
// reconciles host-pushed questions with the local state machine via the
// signature rule.
//
// The bridge never retries a send and carries no timeout of its own; the
// enclosing session service owns the bounded wait and the fallback to the
// local question set.
type Bridge struct {
	mu sync.Mutex

	session *game.Session
	send    SendFunc
	logger  *slog.Logger

	lastSignature    string
	awaitingQuestion bool

	// pendingQuestion parks a host-pushed next question that arrived while
	// a submit result was still owed; it is applied after the result lands.
	pendingQuestion *models.Question
}

func New(session *game.Session, send SendFunc, logger *slog.Logger) *Bridge {
	return &Bridge{
		session: session,
		send:    send,
		logger:  logger,
	}
}

// Start requests the first question from the host.
func (b *Bridge) Start() error {
	return b.RequestQuestion()
}

// RequestQuestion asks the host for the next question and arms the
// awaiting flag so its arrival is not mistaken for an unsolicited push.
func (b *Bridge) RequestQuestion() error {
	b.mu.Lock()
	b.awaitingQuestion = true
	b.mu.Unlock()

	msg, err := NewMessage(TypeRequestQuestion, nil)
	if err != nil {
		return err
	}
	return b.send(msg)
}

// ReportAnswer relays the submitted answer to the host for evaluation.
func (b *Bridge) ReportAnswer(answerID string) error {
	msg, err := NewMessage(TypeReportAnswer, ReportAnswerPayload{AnswerID: answerID})
	if err != nil {
		return err
	}
	return b.send(msg)
}

// Finished signals session completion to the host.
func (b *Bridge) Finished() error {
	msg, err := NewMessage(TypeFinished, nil)
	if err != nil {
		return err
	}
	return b.send(msg)
}

// HandleInbound processes one host message. Unknown types are logged and
// dropped; the protocol has no error channel back to the host.
func (b *Bridge) HandleInbound(msg Message) {
	switch msg.Type {
	case TypeDeliverQuestion:
		var payload QuestionPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			b.logger.Warn("Malformed question payload from host", "error", err)
			return
		}
		b.handleQuestion(&payload)

	case TypeDeliverAnswerResult:
		var payload AnswerResultPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			b.logger.Warn("Malformed answer result payload from host", "error", err)
			return
		}
		b.handleAnswerResult(&payload)

	default:
		b.logger.Debug("Ignoring host message", "type", msg.Type)
	}
}

func (b *Bridge) handleQuestion(payload *QuestionPayload) {
	sig := buildSignature(payload)
	q := normalizeQuestion(payload)

	b.mu.Lock()
	isNew := sig != b.lastSignature
	unsolicited := isNew && !b.awaitingQuestion
	b.lastSignature = sig
	b.awaitingQuestion = false

	if unsolicited && b.session.InFlight() {
		// The submit result is still owed; park the question and advance
		// once it lands so the outcome hits the right slot.
		b.pendingQuestion = &q
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	if unsolicited && b.session.Answered() {
		b.logger.Info("Host pushed a new question before continue, forcing advance")
		b.session.ForceAdvance()
	}

	b.session.SetCurrentQuestion(q)
}

func (b *Bridge) handleAnswerResult(payload *AnswerResultPayload) {
	b.session.CompleteSubmit(payload.IsCorrect, payload.IsLastQuestion)

	b.mu.Lock()
	pending := b.pendingQuestion
	b.pendingQuestion = nil
	b.mu.Unlock()

	if pending != nil {
		b.session.ForceAdvance()
		b.session.SetCurrentQuestion(*pending)
	}
}

// Continue runs the session's continue transition and performs the
// bridge's share of it: requesting the next question or signalling the
// finish.
func (b *Bridge) Continue() error {
	result := b.session.Continue()
	switch {
	case result.Completed:
		return b.Finished()
	case result.NeedsQuestion:
		return b.RequestQuestion()
	}
	return nil
}

// Submit runs the session's submit transition and reports the selection
// when the host owes us the result.
func (b *Bridge) Submit() error {
	pending, answer := b.session.Submit()
	if !pending || answer == nil {
		return nil
	}
	if err := b.ReportAnswer(answer.ID); err != nil {
		return fmt.Errorf("failed to report answer: %w", err)
	}
	return nil
}

// normalizeQuestion converts the loose host payload into the canonical
// question via the shared source-boundary normalization.
func normalizeQuestion(payload *QuestionPayload) models.Question {
	loose := source.LooseQuestion{
		ID:       payload.ID,
		Question: firstNonEmpty(payload.Question, payload.Text, payload.Content),
		ImageURL: payload.AudioURL,
		Answers:  payload.Answers,
	}
	return source.NormalizeQuestions([]source.LooseQuestion{loose})[0]
}
