package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/dragon-peak/quiz-game-service/internal/cache"
	"github.com/dragon-peak/quiz-game-service/internal/models"
)

// Remote quiz API envelope. Options arrive unordered; they are sorted by
// option code before exposure so "A","B","C","D" maps deterministically to
// display order.
type apiResponse struct {
	Status  bool      `json:"status"`
	Quizzes []apiQuiz `json:"quizzes"`
}

type apiQuiz struct {
	QuizCode        string      `json:"quiz_code"`
	Content         string      `json:"content"`
	PossibleOptions []apiOption `json:"quiz_possible_options"`
	Answers         apiAnswers  `json:"quiz_answers"`
}

type apiOption struct {
	OptionCode  string `json:"option_code"`
	OptionValue string `json:"option_value"`
}

type apiAnswers struct {
	OptionCode string `json:"option_code"`
}

// RemoteSource loads question sets from the quiz-loading endpoint, with a
// redis-backed cache in front keyed by learning object code. One GET per
// resolution, no retries.
type RemoteSource struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.QuestionCache
	cacheTTL   time.Duration
	logger     *slog.Logger
}

func NewRemoteSource(baseURL string, httpClient *http.Client, questionCache cache.QuestionCache, cacheTTL time.Duration, logger *slog.Logger) *RemoteSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if questionCache == nil {
		questionCache = cache.NoopQuestionCache{}
	}
	return &RemoteSource{
		baseURL:    baseURL,
		httpClient: httpClient,
		cache:      questionCache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

func (s *RemoteSource) Load(ctx context.Context, learningObjectCode string) (*models.QuestionSet, error) {
	if cached, err := s.cache.Get(ctx, learningObjectCode); err == nil {
		s.logger.Debug("Question set served from cache",
			"learning_object_code", learningObjectCode,
			"questions", len(cached.Questions))
		return cached, nil
	}

	set, err := s.fetch(ctx, learningObjectCode)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, learningObjectCode, set, s.cacheTTL); err != nil {
		// Caching is best effort; the fetched set is still good.
		s.logger.Warn("Failed to cache question set",
			"learning_object_code", learningObjectCode,
			"error", err)
	}

	return set, nil
}

func (s *RemoteSource) fetch(ctx context.Context, learningObjectCode string) (*models.QuestionSet, error) {
	apiURL := fmt.Sprintf("%s?learning_object_code=%s", s.baseURL, url.QueryEscape(learningObjectCode))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, &SourceError{Reason: "failed to build quiz API request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &SourceError{Reason: "quiz API request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SourceError{Reason: fmt.Sprintf("quiz API request failed: status %d", resp.StatusCode)}
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &SourceError{Reason: "malformed quiz API response", Err: err}
	}

	return convertAPIResponse(&payload)
}

// convertAPIResponse normalizes the remote envelope into canonical
// questions. Correctness stays identifier-based (the option code); no
// positional designator is synthesized, so an unknown code resolves to
// "incorrect" at the evaluator instead of silently favoring option 1.
func convertAPIResponse(payload *apiResponse) (*models.QuestionSet, error) {
	if !payload.Status || payload.Quizzes == nil {
		return nil, &SourceError{Reason: "quiz API reported failure status"}
	}

	questions := make([]models.Question, 0, len(payload.Quizzes))
	for i, quiz := range payload.Quizzes {
		options := make([]apiOption, len(quiz.PossibleOptions))
		copy(options, quiz.PossibleOptions)
		sort.Slice(options, func(a, b int) bool {
			return options[a].OptionCode < options[b].OptionCode
		})

		answers := make([]models.Answer, len(options))
		for j, opt := range options {
			answers[j] = models.Answer{ID: opt.OptionCode, Text: opt.OptionValue}
		}

		id := quiz.QuizCode
		if id == "" {
			id = fmt.Sprintf("%d", i+1)
		}

		questions = append(questions, models.Question{
			ID:        id,
			Prompt:    quiz.Content,
			Answers:   answers,
			CorrectID: quiz.Answers.OptionCode,
		})
	}

	return &models.QuestionSet{Questions: questions, Mode: models.SourceRemote}, nil
}
