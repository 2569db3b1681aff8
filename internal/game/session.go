package game

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/dragon-peak/quiz-game-service/internal/config"
	"github.com/dragon-peak/quiz-game-service/internal/models"
)

// ErrRestartRequiresReload is returned when an in-place restart is not
// possible: a live (remote or bridged) source owns session state that
// cannot be rewound locally, so the caller must recreate the session.
var ErrRestartRequiresReload = errors.New("live session cannot restart in place, recreate it")

// Session is the authoritative per-game state machine:
//
//	Idle → Loading → Presenting → Selected → Submitting → Answered →
//	{Presenting(next) | Completed}
//
// All transitions are synchronous. Animation pacing (mascot bounce,
// transition delays) belongs to the presentation layer; shortening those
// timers to zero must never change the final state, and nothing in here
// depends on wall-clock time.
type Session struct {
	mu sync.Mutex

	id   string
	cfg  config.SessionConfig
	set  *models.QuestionSet
	cues CueSink

	evaluator *Evaluator
	logger    *slog.Logger

	// deferred marks bridged sessions: Submit reports to the host and the
	// result lands later via CompleteSubmit.
	deferred bool

	phase         models.SessionPhase
	index         int
	selected      *models.Answer
	answered      bool
	lastCorrect   *bool
	outcomes      []models.Outcome
	mascotStep    int
	mascotMoving  bool
	complete      bool
	reachedFinish bool
	hostSaysLast  bool

	// waitSeq increments every time a deferred session starts waiting on
	// its host, so a fallback armed for one wait cannot fire against a
	// later one.
	waitSeq uint64

	// sourceErr records a recovered source failure for diagnosis. It never
	// blocks gameplay; the session is already running on the fallback set.
	sourceErr string
}

// NewSession creates a session over an already-resolved question set.
func NewSession(id string, cfg config.SessionConfig, set *models.QuestionSet, evaluator *Evaluator, cues CueSink, logger *slog.Logger) *Session {
	if cues == nil {
		cues = NoopCues{}
	}
	s := &Session{
		id:        id,
		cfg:       cfg,
		set:       set,
		cues:      cues,
		evaluator: evaluator,
		logger:    logger,
		deferred:  set.Mode == models.SourceBridged,
		phase:     models.PhasePresenting,
		outcomes:  make([]models.Outcome, models.DisplayTotal),
	}
	for i := range s.outcomes {
		s.outcomes[i] = models.OutcomePending
	}
	if s.deferred {
		// Bridged sessions start without question data; the host delivers
		// it after the first request.
		s.phase = models.PhaseLoading
		s.waitSeq++
	}
	return s
}

// SetSourceError records the recovered failure that forced the fallback
// set, surfaced through the snapshot's diagnostic error slot.
func (s *Session) SetSourceError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourceErr = msg
}

// Config returns the session configuration. It is fixed at creation
// except for a host fallback, which rewrites the source mode.
func (s *Session) Config() config.SessionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// WaitToken reports whether the session is waiting on its host, either
// for question data or for an in-flight submit result, and returns a
// token identifying this particular wait.
func (s *Session) WaitToken() (bool, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	waiting := s.deferred && (s.phase == models.PhaseLoading || s.phase == models.PhaseSubmitting)
	return waiting, s.waitSeq
}

// FallBackToSet abandons a host that stopped responding: the session
// leaves deferred mode and plays on over the given local set, keeping
// the score accumulated so far. The token must match the wait it was
// armed for; a stale token, a host answer that already landed, or a
// finished game all make this a no-op.
func (s *Session) FallBackToSet(set *models.QuestionSet, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.deferred || s.complete || token != s.waitSeq {
		return false
	}
	if s.phase != models.PhaseLoading && s.phase != models.PhaseSubmitting {
		return false
	}

	s.set = set
	s.cfg.Source = set.Mode
	s.deferred = false
	s.hostSaysLast = false
	s.selected = nil
	s.answered = false
	s.lastCorrect = nil
	s.phase = models.PhasePresenting
	s.logger.Warn("Abandoning unresponsive host, continuing on local question set",
		"session_id", s.id,
		"question_index", s.index)
	return true
}

// Select records the chosen answer without evaluating it. Legal while
// presenting or re-selecting; a no-op once the result is known.
func (s *Session) Select(answerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.answered || s.complete || s.phase == models.PhaseSubmitting {
		return
	}
	q := s.currentQuestion()
	if q == nil {
		return
	}
	for i := range q.Answers {
		if q.Answers[i].ID == answerID {
			s.selected = &q.Answers[i]
			s.phase = models.PhaseSelected
			s.cues.ButtonClick()
			return
		}
	}
	s.logger.Debug("Ignoring selection of unknown answer",
		"session_id", s.id,
		"answer_id", answerID)
}

// Submit evaluates the current selection. No-op without a selection and
// idempotent once answered. For bridged sessions it only reports intent;
// the caller relays the selection to the host and the outcome arrives via
// CompleteSubmit.
//
// The returned pending flag is true when the result is owed by the host.
func (s *Session) Submit() (pending bool, answer *models.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == nil || s.answered || s.complete || s.phase == models.PhaseSubmitting {
		return false, nil
	}

	if s.deferred {
		s.phase = models.PhaseSubmitting
		s.waitSeq++
		return true, s.selected
	}

	correct := s.evaluator.IsCorrect(s.currentQuestion(), s.selected)
	s.applyResult(correct)
	return false, s.selected
}

// CompleteSubmit lands a host-delivered result for a bridged session. The
// host also tells us whether this was the final question, which overrides
// local index arithmetic on Continue.
func (s *Session) CompleteSubmit(correct, isLast bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseSubmitting {
		return
	}
	s.hostSaysLast = isLast
	s.applyResult(correct)
}

// applyResult records the outcome slot, advances the mascot on a correct
// answer and emits the matching cue. Caller holds the lock.
func (s *Session) applyResult(correct bool) {
	if s.index < len(s.outcomes) {
		if correct {
			s.outcomes[s.index] = models.OutcomeCorrect
		} else {
			s.outcomes[s.index] = models.OutcomeWrong
		}
	}

	if correct {
		s.cues.CorrectAnswer()
		s.mascotMoving = true
		if s.mascotStep < models.MaxMascotPosition {
			s.mascotStep++
		}
	} else {
		s.cues.WrongAnswer()
	}

	s.answered = true
	s.lastCorrect = &correct
	s.phase = models.PhaseAnswered
}

// ContinueResult reports what Continue did, so the transport layer knows
// whether to request the next question from a host.
type ContinueResult struct {
	Completed     bool
	Advanced      bool
	NeedsQuestion bool
}

// Continue moves past an answered question. Stopping conditions, in
// order: mascot at its cap ends the game as a win; the last available
// index ends it without the finish bonus; otherwise the next question is
// presented.
func (s *Session) Continue() ContinueResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.answered || s.complete {
		return ContinueResult{}
	}

	if s.mascotStep >= models.MaxMascotPosition {
		s.finish(true)
		return ContinueResult{Completed: true}
	}
	if s.isLastIndex() {
		s.finish(false)
		return ContinueResult{Completed: true}
	}

	s.index++
	s.selected = nil
	s.answered = false
	s.lastCorrect = nil
	s.mascotMoving = false
	if s.deferred {
		s.phase = models.PhaseLoading
		s.waitSeq++
		return ContinueResult{Advanced: true, NeedsQuestion: true}
	}
	s.phase = models.PhasePresenting
	return ContinueResult{Advanced: true}
}

// finish completes the session. Caller holds the lock.
func (s *Session) finish(reachedFinish bool) {
	s.cues.FinishGame()
	s.reachedFinish = reachedFinish
	s.complete = true
	s.mascotMoving = false
	s.phase = models.PhaseCompleted
}

// Restart resets all mutable state for a fresh attempt. Sessions on a
// live source cannot be rewound here; the caller recreates them instead.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Source.Live() || s.set.Mode.Live() {
		return ErrRestartRequiresReload
	}

	s.index = 0
	s.selected = nil
	s.answered = false
	s.lastCorrect = nil
	s.mascotStep = 0
	s.mascotMoving = false
	s.complete = false
	s.reachedFinish = false
	s.hostSaysLast = false
	for i := range s.outcomes {
		s.outcomes[i] = models.OutcomePending
	}
	s.phase = models.PhasePresenting
	return nil
}

// ClearMascotMoving drops the transient movement flag. The presentation
// layer calls this when its animation window elapses; game logic never
// depends on it.
func (s *Session) ClearMascotMoving() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mascotMoving = false
}

// SetCurrentQuestion places host-delivered question data at the current
// index of a bridged session and presents it. Once the session has fallen
// back to a local set, late host deliveries are ignored.
func (s *Session) SetCurrentQuestion(q models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete || !s.deferred {
		return
	}
	for len(s.set.Questions) <= s.index && len(s.set.Questions) < models.DisplayTotal {
		s.set.Questions = append(s.set.Questions, models.Question{})
	}
	if s.index < len(s.set.Questions) {
		s.set.Questions[s.index] = q
	}
	if s.phase == models.PhaseLoading {
		s.phase = models.PhasePresenting
	}
}

// ForceAdvance handles a host that pushed the next question before our
// own continue fired: the bridge detected a changed question signature
// while a result was already recorded, so the local index catches up.
func (s *Session) ForceAdvance() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete || !s.deferred || s.index+1 >= models.DisplayTotal {
		return
	}
	s.index++
	s.selected = nil
	s.answered = false
	s.lastCorrect = nil
	s.phase = models.PhaseLoading
	s.waitSeq++
}

// InFlight reports whether a bridged submit is still awaiting its result.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == models.PhaseSubmitting
}

// Answered reports whether the current question's result is known.
func (s *Session) Answered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answered
}

// Completed reports whether the game has ended.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

func (s *Session) currentQuestion() *models.Question {
	if s.deferred {
		if s.index < len(s.set.Questions) {
			return &s.set.Questions[s.index]
		}
		return nil
	}
	return s.set.At(s.index)
}

func (s *Session) isLastIndex() bool {
	if s.deferred {
		// The host owns question count; trust its is-last flag, bounded by
		// the fixed display total either way.
		return s.hostSaysLast || s.index >= models.DisplayTotal-1
	}
	return s.index >= s.set.Len()-1
}

// Snapshot computes the render-facing view of the session. Derived values
// (score envelopes, correct count, is-last) are recomputed here, never
// stored.
func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.SessionSnapshot{
		SessionID:            s.id,
		Phase:                s.phase,
		IsLoading:            s.phase == models.PhaseLoading,
		Error:                s.sourceErr,
		CurrentQuestionIndex: s.index,
		IsAnswered:           s.answered,
		LastCorrect:          s.lastCorrect,
		MascotStep:           s.mascotStep,
		IsMascotMoving:       s.mascotMoving,
		GameComplete:         s.complete,
		ReachedFinish:        s.reachedFinish,
		IsLastQuestion:       s.isLastIndex(),
		TotalQuestions:       models.DisplayTotal,
		SourceMode:           s.set.Mode,
	}

	if s.selected != nil {
		snap.SelectedAnswerID = s.selected.ID
	}

	for i, outcome := range s.outcomes {
		snap.ScoreState[i] = outcome
		if outcome == models.OutcomeCorrect {
			snap.CorrectCount++
		}
	}

	if q := s.currentQuestion(); q != nil && !s.complete {
		snap.CurrentQuestion = &models.QuestionView{
			ID:       q.ID,
			Prompt:   q.Prompt,
			MediaURL: q.MediaURL,
			Answers:  q.Answers,
		}
	}

	return snap
}
