package models

const (
	// DisplayTotal is the fixed number of question slots shown to the
	// player; sources returning more questions are trimmed, sources
	// returning fewer simply end early.
	DisplayTotal = 5

	// MaxMascotPosition caps the mascot progress counter. One step per
	// correct answer; reaching the cap ends the game as a win.
	MaxMascotPosition = 4
)

// Outcome is one slot of the per-question outcome history.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeCorrect Outcome = "correct"
	OutcomeWrong   Outcome = "wrong"
)

// SessionPhase is the lifecycle phase of a game session.
type SessionPhase string

const (
	PhaseIdle       SessionPhase = "idle"
	PhaseLoading    SessionPhase = "loading"
	PhasePresenting SessionPhase = "presenting"
	PhaseSelected   SessionPhase = "selected"
	PhaseSubmitting SessionPhase = "submitting"
	PhaseAnswered   SessionPhase = "answered"
	PhaseCompleted  SessionPhase = "completed"
)

// QuestionView is the render-facing projection of the current question.
// Presentational clients bind to this and never see the correctness
// designators.
type QuestionView struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	MediaURL string   `json:"media_url,omitempty"`
	Answers  []Answer `json:"answers"`
}

// SessionSnapshot is the full render-facing state contract: everything a
// presentational layer may depend on, recomputed on every transition.
type SessionSnapshot struct {
	SessionID string       `json:"session_id"`
	Phase     SessionPhase `json:"phase"`

	IsLoading bool   `json:"is_loading"`
	Error     string `json:"error,omitempty"`

	CurrentQuestionIndex int           `json:"current_question_index"`
	CurrentQuestion      *QuestionView `json:"current_question,omitempty"`

	SelectedAnswerID string `json:"selected_answer_id,omitempty"`
	IsAnswered       bool   `json:"is_answered"`
	LastCorrect      *bool  `json:"last_correct,omitempty"`

	ScoreState     [DisplayTotal]Outcome `json:"score_state"`
	MascotStep     int                   `json:"mascot_step"`
	IsMascotMoving bool                  `json:"is_mascot_moving"`

	GameComplete   bool `json:"game_complete"`
	ReachedFinish  bool `json:"reached_finish"`
	IsLastQuestion bool `json:"is_last_question"`
	CorrectCount   int  `json:"correct_count"`
	TotalQuestions int  `json:"total_questions"`

	SourceMode SourceMode `json:"source_mode"`
}
