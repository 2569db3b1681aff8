package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dragon-peak/quiz-game-service/internal/bridge"
	"github.com/dragon-peak/quiz-game-service/internal/config"
	"github.com/dragon-peak/quiz-game-service/internal/events"
	"github.com/dragon-peak/quiz-game-service/internal/game"
	"github.com/dragon-peak/quiz-game-service/internal/models"
	"github.com/dragon-peak/quiz-game-service/internal/source"
	"github.com/dragon-peak/quiz-game-service/internal/validator"
)

// CreateSessionRequest carries everything a session needs at creation.
// A bridged request or a non-empty custom question list wins over the
// config computed from the embedding page's parameters.
type CreateSessionRequest struct {
	Config    config.SessionConfig
	Questions []source.LooseQuestion
	Bridged   bool
}

// GameService owns the live sessions: it resolves question sets, runs the
// state machine transitions and publishes game events. Presentational
// clients see only snapshots and the four actions.
type GameService interface {
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*models.SessionSnapshot, error)
	// CreateCustomSession starts a session over an already-normalized
	// question list (e.g. an Excel import).
	CreateCustomSession(ctx context.Context, questions []models.Question) (*models.SessionSnapshot, error)
	GetSnapshot(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)
	SelectAnswer(ctx context.Context, sessionID, answerID string) (*models.SessionSnapshot, error)
	Submit(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)
	Continue(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)
	Restart(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)

	// Session, Cues and AttachBridge serve the websocket transport, which
	// needs direct access to drive a bridged session and relay cues.
	Session(sessionID string) (*game.Session, error)
	Cues(sessionID string) (*game.CueDispatcher, error)
	AttachBridge(sessionID string, b *bridge.Bridge) error
	RemoveSession(sessionID string)
}

type sessionEntry struct {
	engine *game.Session
	bridge *bridge.Bridge
	cues   *game.CueDispatcher
	custom []models.Question
}

type gameService struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	resolver  *source.Resolver
	evaluator *game.Evaluator
	validator *validator.Validator
	publisher events.EventPublisher
	logger    *slog.Logger

	// hostTimeout bounds every wait on a bridged session's host. A host
	// that stays silent past it forfeits the session to the built-in set.
	hostTimeout time.Duration
}

func NewGameService(resolver *source.Resolver, v *validator.Validator, publisher events.EventPublisher, hostTimeout time.Duration, logger *slog.Logger) GameService {
	return &gameService{
		sessions:    make(map[string]*sessionEntry),
		resolver:    resolver,
		evaluator:   game.NewEvaluator(logger),
		validator:   v,
		publisher:   publisher,
		hostTimeout: hostTimeout,
		logger:      logger,
	}
}

func (s *gameService) CreateSession(ctx context.Context, req *CreateSessionRequest) (*models.SessionSnapshot, error) {
	custom := source.NormalizeQuestions(req.Questions)

	// Source selection policy lives in SessionConfigFromParams; here only
	// the two channels that bypass the embedding parameters take over.
	var cfg config.SessionConfig
	switch {
	case req.Bridged:
		cfg = config.SessionConfig{Source: models.SourceBridged}
	case len(custom) > 0:
		cfg = config.SessionConfig{Source: models.SourceCustom}
	default:
		cfg = req.Config
		if cfg.Source == "" {
			cfg.Source = models.SourceSample
		}
	}

	return s.createSession(ctx, cfg, custom)
}

func (s *gameService) CreateCustomSession(ctx context.Context, questions []models.Question) (*models.SessionSnapshot, error) {
	return s.createSession(ctx, config.SessionConfig{Source: models.SourceCustom}, questions)
}

func (s *gameService) createSession(ctx context.Context, cfg config.SessionConfig, custom []models.Question) (*models.SessionSnapshot, error) {
	sessionID := uuid.NewString()

	var set *models.QuestionSet
	var sourceErr error

	switch cfg.Source {
	case models.SourceBridged:
		set = &models.QuestionSet{Mode: models.SourceBridged}
	case models.SourceCustom:
		set = &models.QuestionSet{Questions: custom, Mode: models.SourceCustom}
	default:
		set, sourceErr = s.resolver.Resolve(ctx, cfg, nil)
	}

	if cfg.Source != models.SourceBridged {
		if errs := s.validator.ValidateQuestionSet(set); len(errs) > 0 {
			s.logger.Warn("Resolved question set failed validation, playing it anyway",
				"session_id", sessionID,
				"errors", errs.Error())
		}
		if set.Len() == 0 {
			return nil, ErrQuestionSetEmpty
		}
	}

	cues := game.NewCueDispatcher()
	engine := game.NewSession(sessionID, cfg, set, s.evaluator, cues, s.logger)
	if sourceErr != nil {
		// Recovered failure: the session runs on the fallback set and the
		// error slot only carries diagnostics.
		engine.SetSourceError(sourceErr.Error())
	}

	s.mu.Lock()
	entry := &sessionEntry{engine: engine, cues: cues, custom: custom}
	s.sessions[sessionID] = entry
	s.mu.Unlock()

	// A bridged session is born waiting for its first question.
	s.armHostWatch(sessionID, entry)

	s.publish(ctx, events.NewGameEvent(events.EventSessionStarted, events.SessionStartedEvent{
		SessionID:          sessionID,
		SourceMode:         set.Mode,
		LearningObjectCode: cfg.LearningObjectCode,
		TotalQuestions:     set.Len(),
		FellBack:           sourceErr != nil,
	}))

	s.logger.Info("Game session created",
		"session_id", sessionID,
		"source_mode", set.Mode,
		"questions", set.Len(),
		"fell_back", sourceErr != nil)

	snap := engine.Snapshot()
	return &snap, nil
}

// armHostWatch bounds a bridged session's current wait on its host. When
// the timer fires with neither question nor result delivered, the session
// swaps onto the built-in sample set and plays on locally, mirroring the
// resolver's remote fallback: the game keeps going and the failure only
// reaches the snapshot's diagnostic error slot.
func (s *gameService) armHostWatch(sessionID string, entry *sessionEntry) {
	waiting, token := entry.engine.WaitToken()
	if !waiting || s.hostTimeout <= 0 {
		return
	}

	time.AfterFunc(s.hostTimeout, func() {
		if !entry.engine.FallBackToSet(source.SampleQuestionSet(), token) {
			return
		}
		entry.engine.SetSourceError(fmt.Sprintf("host did not respond within %s, playing the built-in set", s.hostTimeout))

		s.mu.Lock()
		entry.bridge = nil
		s.mu.Unlock()

		s.logger.Warn("Host stopped responding, session fell back to the built-in set",
			"session_id", sessionID,
			"timeout", s.hostTimeout)
	})
}

// sessionBridge reads the entry's bridge under the lock; the host watch
// detaches it concurrently when the host is forfeited.
func (s *gameService) sessionBridge(entry *sessionEntry) *bridge.Bridge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entry.bridge
}

func (s *gameService) GetSnapshot(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	snap := entry.engine.Snapshot()
	return &snap, nil
}

func (s *gameService) SelectAnswer(ctx context.Context, sessionID, answerID string) (*models.SessionSnapshot, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	if entry.engine.Completed() {
		return nil, ErrSessionCompleted
	}
	entry.engine.Select(answerID)
	snap := entry.engine.Snapshot()
	return &snap, nil
}

func (s *gameService) Submit(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}

	if entry.engine.Completed() {
		return nil, ErrSessionCompleted
	}

	before := entry.engine.Snapshot()

	if b := s.sessionBridge(entry); b != nil {
		if err := b.Submit(); err != nil {
			return nil, fmt.Errorf("failed to submit through bridge: %w", err)
		}
		s.armHostWatch(sessionID, entry)
	} else {
		if entry.engine.Config().Source == models.SourceBridged {
			// The host socket created the session but never attached its
			// bridge; nobody can evaluate this answer.
			return nil, ErrBridgeNotAttached
		}
		entry.engine.Submit()
	}

	snap := entry.engine.Snapshot()

	// A local submit resolves synchronously; emit the outcome event only
	// when this call actually produced a result.
	if snap.IsAnswered && !before.IsAnswered && snap.LastCorrect != nil {
		questionID := ""
		if before.CurrentQuestion != nil {
			questionID = before.CurrentQuestion.ID
		}
		s.publish(ctx, events.NewGameEvent(events.EventAnswerSubmitted, events.AnswerSubmittedEvent{
			SessionID:     sessionID,
			QuestionIndex: snap.CurrentQuestionIndex,
			QuestionID:    questionID,
			AnswerID:      snap.SelectedAnswerID,
			IsCorrect:     *snap.LastCorrect,
			MascotStep:    snap.MascotStep,
		}))
	}

	return &snap, nil
}

func (s *gameService) Continue(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}

	if entry.engine.Completed() {
		return nil, ErrSessionCompleted
	}

	var completed bool
	if b := s.sessionBridge(entry); b != nil {
		if err := b.Continue(); err != nil {
			return nil, fmt.Errorf("failed to continue through bridge: %w", err)
		}
		completed = entry.engine.Completed()
		s.armHostWatch(sessionID, entry)
	} else {
		result := entry.engine.Continue()
		completed = result.Completed
	}

	snap := entry.engine.Snapshot()
	if completed {
		s.publish(ctx, events.NewGameEvent(events.EventSessionCompleted, events.SessionCompletedEvent{
			SessionID:     sessionID,
			CorrectCount:  snap.CorrectCount,
			MascotStep:    snap.MascotStep,
			ReachedFinish: snap.ReachedFinish,
		}))
		s.logger.Info("Game session completed",
			"session_id", sessionID,
			"correct_count", snap.CorrectCount,
			"reached_finish", snap.ReachedFinish)
	}

	return &snap, nil
}

func (s *gameService) Restart(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}

	restartErr := entry.engine.Restart()
	if restartErr == nil {
		s.publish(ctx, events.NewGameEvent(events.EventSessionRestarted, events.SessionRestartedEvent{
			SessionID: sessionID,
		}))
		snap := entry.engine.Snapshot()
		return &snap, nil
	}

	if !errors.Is(restartErr, game.ErrRestartRequiresReload) {
		return nil, restartErr
	}

	cfg := entry.engine.Config()
	if cfg.Source == models.SourceBridged {
		// The host owns the question stream; it has to tear the session
		// down and start a fresh one.
		return nil, fmt.Errorf("bridged sessions restart from the host side: %w", ErrValidationFailed)
	}

	// Live sources cannot rewind in place: recreate the session under the
	// same id so the client keeps its handle.
	set, sourceErr := s.resolver.Resolve(ctx, cfg, entry.custom)
	engine := game.NewSession(sessionID, cfg, set, s.evaluator, entry.cues, s.logger)
	if sourceErr != nil {
		engine.SetSourceError(sourceErr.Error())
	}

	s.mu.Lock()
	s.sessions[sessionID] = &sessionEntry{engine: engine, cues: entry.cues, custom: entry.custom}
	s.mu.Unlock()

	s.publish(ctx, events.NewGameEvent(events.EventSessionRestarted, events.SessionRestartedEvent{
		SessionID: sessionID,
	}))

	snap := engine.Snapshot()
	return &snap, nil
}

func (s *gameService) Session(sessionID string) (*game.Session, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	return entry.engine, nil
}

func (s *gameService) Cues(sessionID string) (*game.CueDispatcher, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	return entry.cues, nil
}

func (s *gameService) AttachBridge(sessionID string, b *bridge.Bridge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if entry.bridge != nil {
		return ErrBridgeAlreadyAttached
	}
	entry.bridge = b
	return nil
}

func (s *gameService) RemoveSession(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

func (s *gameService) entry(sessionID string) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

func (s *gameService) publish(ctx context.Context, event *events.GameEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishGameEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish game event",
			"event_type", event.Type,
			"error", err)
	}
}
