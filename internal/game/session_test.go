package game

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dragon-peak/quiz-game-service/internal/config"
	"github.com/dragon-peak/quiz-game-service/internal/models"
	"github.com/dragon-peak/quiz-game-service/internal/source"
)

// recordingCues captures emitted cues in order.
type recordingCues struct {
	cues []Cue
}

func (r *recordingCues) ButtonClick()   { r.cues = append(r.cues, CueButtonClick) }
func (r *recordingCues) CorrectAnswer() { r.cues = append(r.cues, CueCorrectAnswer) }
func (r *recordingCues) WrongAnswer()   { r.cues = append(r.cues, CueWrongAnswer) }
func (r *recordingCues) FinishGame()    { r.cues = append(r.cues, CueFinishGame) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(i int) *int { return &i }

// fixedQuestions builds n questions whose first answer is always correct.
func fixedQuestions(n int) []models.Question {
	questions := make([]models.Question, n)
	for i := range questions {
		questions[i] = models.Question{
			ID:     fmt.Sprintf("q%d", i+1),
			Prompt: fmt.Sprintf("Question %d", i+1),
			Answers: []models.Answer{
				{ID: "1", Text: "right"},
				{ID: "2", Text: "wrong"},
			},
			CorrectIndex: intPtr(0),
		}
	}
	return questions
}

func newTestSession(questions []models.Question, cues CueSink) *Session {
	logger := testLogger()
	set := &models.QuestionSet{Questions: questions, Mode: models.SourceSample}
	cfg := config.SessionConfig{Source: models.SourceSample}
	return NewSession("test-session", cfg, set, NewEvaluator(logger), cues, logger)
}

func TestSession_SelectAndSubmitCorrect(t *testing.T) {
	cues := &recordingCues{}
	s := newTestSession(fixedQuestions(5), cues)

	s.Select("1")
	snap := s.Snapshot()
	assert.Equal(t, "1", snap.SelectedAnswerID)
	assert.Equal(t, models.PhaseSelected, snap.Phase)
	assert.False(t, snap.IsAnswered)

	pending, answer := s.Submit()
	require.False(t, pending)
	require.NotNil(t, answer)
	assert.Equal(t, "1", answer.ID)

	snap = s.Snapshot()
	assert.True(t, snap.IsAnswered)
	require.NotNil(t, snap.LastCorrect)
	assert.True(t, *snap.LastCorrect)
	assert.Equal(t, models.OutcomeCorrect, snap.ScoreState[0])
	assert.Equal(t, 1, snap.MascotStep)
	assert.True(t, snap.IsMascotMoving)
	assert.Equal(t, 1, snap.CorrectCount)
	assert.Equal(t, []Cue{CueButtonClick, CueCorrectAnswer}, cues.cues)
}

func TestSession_SubmitWrongKeepsMascot(t *testing.T) {
	cues := &recordingCues{}
	s := newTestSession(fixedQuestions(5), cues)

	s.Select("2")
	s.Submit()

	snap := s.Snapshot()
	require.NotNil(t, snap.LastCorrect)
	assert.False(t, *snap.LastCorrect)
	assert.Equal(t, models.OutcomeWrong, snap.ScoreState[0])
	assert.Equal(t, 0, snap.MascotStep)
	assert.False(t, snap.IsMascotMoving)
	assert.Equal(t, []Cue{CueButtonClick, CueWrongAnswer}, cues.cues)
}

func TestSession_SubmitWithoutSelection(t *testing.T) {
	s := newTestSession(fixedQuestions(5), nil)

	pending, answer := s.Submit()
	assert.False(t, pending)
	assert.Nil(t, answer)
	assert.False(t, s.Snapshot().IsAnswered)
}

func TestSession_SubmitIsIdempotent(t *testing.T) {
	s := newTestSession(fixedQuestions(5), nil)

	s.Select("1")
	s.Submit()
	first := s.Snapshot()

	s.Submit()
	s.Submit()
	second := s.Snapshot()

	assert.Equal(t, first.MascotStep, second.MascotStep)
	assert.Equal(t, first.ScoreState, second.ScoreState)
	assert.Equal(t, first.CorrectCount, second.CorrectCount)
}

func TestSession_SelectIgnoredAfterAnswer(t *testing.T) {
	s := newTestSession(fixedQuestions(5), nil)

	s.Select("1")
	s.Submit()
	s.Select("2")

	assert.Equal(t, "1", s.Snapshot().SelectedAnswerID)
}

func TestSession_SelectUnknownAnswerIgnored(t *testing.T) {
	s := newTestSession(fixedQuestions(5), nil)

	s.Select("nope")

	snap := s.Snapshot()
	assert.Empty(t, snap.SelectedAnswerID)
	assert.Equal(t, models.PhasePresenting, snap.Phase)
}

func TestSession_ContinueRequiresAnswer(t *testing.T) {
	s := newTestSession(fixedQuestions(5), nil)

	result := s.Continue()
	assert.Equal(t, ContinueResult{}, result)
	assert.Equal(t, 0, s.Snapshot().CurrentQuestionIndex)
}

func TestSession_ContinueAdvances(t *testing.T) {
	s := newTestSession(fixedQuestions(5), nil)

	s.Select("2")
	s.Submit()
	result := s.Continue()

	assert.True(t, result.Advanced)
	assert.False(t, result.Completed)

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.CurrentQuestionIndex)
	assert.False(t, snap.IsAnswered)
	assert.Empty(t, snap.SelectedAnswerID)
	assert.False(t, snap.IsMascotMoving)
	assert.Equal(t, models.PhasePresenting, snap.Phase)
	require.NotNil(t, snap.CurrentQuestion)
	assert.Equal(t, "q2", snap.CurrentQuestion.ID)
}

func TestSession_AllWrongEndsWithoutFinish(t *testing.T) {
	cues := &recordingCues{}
	s := newTestSession(fixedQuestions(5), cues)

	var last ContinueResult
	for i := 0; i < 5; i++ {
		s.Select("2")
		s.Submit()
		last = s.Continue()
	}

	assert.True(t, last.Completed)

	snap := s.Snapshot()
	assert.True(t, snap.GameComplete)
	assert.False(t, snap.ReachedFinish)
	assert.Equal(t, 0, snap.MascotStep)
	assert.Equal(t, 0, snap.CorrectCount)
	assert.Equal(t, models.PhaseCompleted, snap.Phase)
	assert.Nil(t, snap.CurrentQuestion)
	assert.Equal(t, CueFinishGame, cues.cues[len(cues.cues)-1])
}

func TestSession_MascotCapWinsEarly(t *testing.T) {
	s := newTestSession(fixedQuestions(5), nil)

	// Four correct answers reach the final mascot position; the next
	// continue ends the game as a win before the fifth question.
	var last ContinueResult
	for i := 0; i < 4; i++ {
		s.Select("1")
		s.Submit()
		last = s.Continue()
	}

	assert.True(t, last.Completed)

	snap := s.Snapshot()
	assert.True(t, snap.GameComplete)
	assert.True(t, snap.ReachedFinish)
	assert.Equal(t, models.MaxMascotPosition, snap.MascotStep)
	assert.Equal(t, 3, snap.CurrentQuestionIndex)
}

func TestSession_MascotStepNeverExceedsCap(t *testing.T) {
	// Ten available questions still cap play and the mascot at the
	// display total.
	s := newTestSession(fixedQuestions(10), nil)

	for i := 0; i < 5; i++ {
		s.Select("1")
		s.Submit()
		snap := s.Snapshot()
		assert.LessOrEqual(t, snap.MascotStep, models.MaxMascotPosition)
		if s.Continue().Completed {
			break
		}
	}

	assert.True(t, s.Snapshot().GameComplete)
}

func TestSession_ClearMascotMoving(t *testing.T) {
	s := newTestSession(fixedQuestions(5), nil)

	s.Select("1")
	s.Submit()
	require.True(t, s.Snapshot().IsMascotMoving)

	s.ClearMascotMoving()
	snap := s.Snapshot()
	assert.False(t, snap.IsMascotMoving)
	assert.Equal(t, 1, snap.MascotStep)
}

func TestSession_RestartResetsEverything(t *testing.T) {
	s := newTestSession(fixedQuestions(5), nil)

	s.Select("1")
	s.Submit()
	s.Continue()
	s.Select("2")
	s.Submit()

	require.NoError(t, s.Restart())

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.CurrentQuestionIndex)
	assert.Equal(t, 0, snap.MascotStep)
	assert.False(t, snap.IsAnswered)
	assert.False(t, snap.GameComplete)
	assert.Empty(t, snap.SelectedAnswerID)
	for _, outcome := range snap.ScoreState {
		assert.Equal(t, models.OutcomePending, outcome)
	}
	assert.Equal(t, models.PhasePresenting, snap.Phase)
}

func TestSession_RestartAfterCompletion(t *testing.T) {
	s := newTestSession(fixedQuestions(5), nil)

	for !s.Snapshot().GameComplete {
		s.Select("2")
		s.Submit()
		s.Continue()
	}

	require.NoError(t, s.Restart())
	assert.False(t, s.Snapshot().GameComplete)
}

func TestSession_RestartLiveSourceFails(t *testing.T) {
	logger := testLogger()
	set := &models.QuestionSet{Questions: fixedQuestions(5), Mode: models.SourceRemote}
	cfg := config.SessionConfig{Source: models.SourceRemote, LearningObjectCode: "MATH-1"}
	s := NewSession("remote-session", cfg, set, NewEvaluator(logger), nil, logger)

	err := s.Restart()
	assert.ErrorIs(t, err, ErrRestartRequiresReload)
}

func TestSession_SourceErrorIsDiagnosticOnly(t *testing.T) {
	s := newTestSession(fixedQuestions(5), nil)
	s.SetSourceError("remote endpoint timed out")

	snap := s.Snapshot()
	assert.Equal(t, "remote endpoint timed out", snap.Error)

	// Gameplay is unaffected.
	s.Select("1")
	s.Submit()
	assert.True(t, s.Snapshot().IsAnswered)
}

func newBridgedSession() *Session {
	logger := testLogger()
	set := &models.QuestionSet{Mode: models.SourceBridged}
	cfg := config.SessionConfig{Source: models.SourceBridged}
	return NewSession("bridged-session", cfg, set, NewEvaluator(logger), nil, logger)
}

func hostQuestion(id string) models.Question {
	return models.Question{
		ID:     id,
		Prompt: "From the host",
		Answers: []models.Answer{
			{ID: "A", Text: "first"},
			{ID: "B", Text: "second"},
		},
	}
}

func TestSession_BridgedStartsLoading(t *testing.T) {
	s := newBridgedSession()

	snap := s.Snapshot()
	assert.Equal(t, models.PhaseLoading, snap.Phase)
	assert.True(t, snap.IsLoading)
	assert.Nil(t, snap.CurrentQuestion)
}

func TestSession_BridgedQuestionDelivery(t *testing.T) {
	s := newBridgedSession()

	s.SetCurrentQuestion(hostQuestion("h1"))

	snap := s.Snapshot()
	assert.Equal(t, models.PhasePresenting, snap.Phase)
	require.NotNil(t, snap.CurrentQuestion)
	assert.Equal(t, "h1", snap.CurrentQuestion.ID)
}

func TestSession_BridgedSubmitDefersToHost(t *testing.T) {
	s := newBridgedSession()
	s.SetCurrentQuestion(hostQuestion("h1"))

	s.Select("A")
	pending, answer := s.Submit()
	require.True(t, pending)
	require.NotNil(t, answer)
	assert.Equal(t, "A", answer.ID)
	assert.True(t, s.InFlight())
	assert.False(t, s.Snapshot().IsAnswered)

	s.CompleteSubmit(true, false)

	snap := s.Snapshot()
	assert.False(t, s.InFlight())
	assert.True(t, snap.IsAnswered)
	require.NotNil(t, snap.LastCorrect)
	assert.True(t, *snap.LastCorrect)
	assert.Equal(t, 1, snap.MascotStep)
}

func TestSession_CompleteSubmitOutsideFlightIgnored(t *testing.T) {
	s := newBridgedSession()
	s.SetCurrentQuestion(hostQuestion("h1"))

	s.CompleteSubmit(true, false)

	snap := s.Snapshot()
	assert.False(t, snap.IsAnswered)
	assert.Equal(t, 0, snap.MascotStep)
}

func TestSession_BridgedHostSaysLast(t *testing.T) {
	s := newBridgedSession()
	s.SetCurrentQuestion(hostQuestion("h1"))

	s.Select("A")
	s.Submit()
	s.CompleteSubmit(false, true)

	result := s.Continue()
	assert.True(t, result.Completed)

	snap := s.Snapshot()
	assert.True(t, snap.GameComplete)
	assert.False(t, snap.ReachedFinish)
}

func TestSession_BridgedContinueRequestsNextQuestion(t *testing.T) {
	s := newBridgedSession()
	s.SetCurrentQuestion(hostQuestion("h1"))

	s.Select("A")
	s.Submit()
	s.CompleteSubmit(false, false)

	result := s.Continue()
	assert.True(t, result.Advanced)
	assert.True(t, result.NeedsQuestion)
	assert.Equal(t, models.PhaseLoading, s.Snapshot().Phase)
}

func TestSession_ForceAdvance(t *testing.T) {
	s := newBridgedSession()
	s.SetCurrentQuestion(hostQuestion("h1"))
	s.Select("A")
	s.Submit()
	s.CompleteSubmit(true, false)

	s.ForceAdvance()

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.CurrentQuestionIndex)
	assert.False(t, snap.IsAnswered)
	assert.Equal(t, models.PhaseLoading, snap.Phase)
	// The earlier outcome is preserved.
	assert.Equal(t, models.OutcomeCorrect, snap.ScoreState[0])
}

func TestSession_HostFallbackWhileLoading(t *testing.T) {
	s := newBridgedSession()

	waiting, token := s.WaitToken()
	require.True(t, waiting)

	require.True(t, s.FallBackToSet(source.SampleQuestionSet(), token))

	snap := s.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Equal(t, models.SourceSample, snap.SourceMode)
	require.NotNil(t, snap.CurrentQuestion)
	assert.Equal(t, 0, snap.CurrentQuestionIndex)
}

func TestSession_HostFallbackWhileSubmitInFlight(t *testing.T) {
	s := newBridgedSession()
	s.SetCurrentQuestion(hostQuestion("10"))
	s.Select("A")
	pending, _ := s.Submit()
	require.True(t, pending)

	waiting, token := s.WaitToken()
	require.True(t, waiting)

	require.True(t, s.FallBackToSet(source.SampleQuestionSet(), token))

	snap := s.Snapshot()
	assert.Equal(t, models.SourceSample, snap.SourceMode)
	assert.False(t, snap.IsAnswered)
	assert.Empty(t, snap.SelectedAnswerID)
	assert.Equal(t, models.PhasePresenting, snap.Phase)

	// The fallback question at the same index now evaluates locally.
	set := source.SampleQuestionSet()
	q := set.Questions[snap.CurrentQuestionIndex]
	s.Select(q.Answers[*q.CorrectIndex].ID)
	pending, _ = s.Submit()
	assert.False(t, pending)
	snap = s.Snapshot()
	assert.True(t, snap.IsAnswered)
	require.NotNil(t, snap.LastCorrect)
	assert.True(t, *snap.LastCorrect)
}

func TestSession_HostFallbackStaleTokenIgnored(t *testing.T) {
	s := newBridgedSession()

	_, loadToken := s.WaitToken()
	s.SetCurrentQuestion(hostQuestion("10"))

	// The question arrived, so the wait this token belonged to is over.
	assert.False(t, s.FallBackToSet(source.SampleQuestionSet(), loadToken))

	s.Select("A")
	pending, _ := s.Submit()
	require.True(t, pending)
	_, submitToken := s.WaitToken()
	assert.NotEqual(t, loadToken, submitToken)
	assert.False(t, s.FallBackToSet(source.SampleQuestionSet(), loadToken))

	s.CompleteSubmit(true, false)
	assert.False(t, s.FallBackToSet(source.SampleQuestionSet(), submitToken))

	snap := s.Snapshot()
	assert.Equal(t, models.SourceBridged, snap.SourceMode)
	assert.True(t, snap.IsAnswered)
}

func TestSession_RestartAfterHostFallback(t *testing.T) {
	s := newBridgedSession()

	_, token := s.WaitToken()
	require.True(t, s.FallBackToSet(source.SampleQuestionSet(), token))

	// Off the host, the session can rewind in place again.
	require.NoError(t, s.Restart())
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.CurrentQuestionIndex)
	assert.Equal(t, models.PhasePresenting, snap.Phase)
}

func TestSession_LateHostDeliveryIgnoredAfterFallback(t *testing.T) {
	s := newBridgedSession()

	_, token := s.WaitToken()
	require.True(t, s.FallBackToSet(source.SampleQuestionSet(), token))
	before := s.Snapshot()

	s.SetCurrentQuestion(hostQuestion("99"))
	s.ForceAdvance()

	snap := s.Snapshot()
	require.NotNil(t, snap.CurrentQuestion)
	assert.Equal(t, before.CurrentQuestion.ID, snap.CurrentQuestion.ID)
	assert.Equal(t, before.CurrentQuestionIndex, snap.CurrentQuestionIndex)
}
