package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dragon-peak/quiz-game-service/internal/config"
	"github.com/dragon-peak/quiz-game-service/internal/models"
)

// QuestionLoader loads a question set for one learning object code.
// Implementations must not mutate shared state; the resolved set is
// treated as immutable for the whole session.
type QuestionLoader interface {
	Load(ctx context.Context, learningObjectCode string) (*models.QuestionSet, error)
}

// SourceError marks a failed resolution: remote fetch failure, malformed
// payload, or a missing required parameter. Callers recover by
// substituting the sample set; a SourceError never blocks gameplay.
type SourceError struct {
	Reason string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("question source failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("question source failed: %s", e.Reason)
}

func (e *SourceError) Unwrap() error { return e.Err }

// IsSourceError reports whether err is a question source failure.
func IsSourceError(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}

// Resolver applies the source selection policy: a non-empty custom list
// wins, then an explicit sample request, then the remote API bounded by
// the configured timeout. Any remote failure falls back to the sample
// set silently.
type Resolver struct {
	remote  QuestionLoader
	timeout time.Duration
	logger  *slog.Logger
}

func NewResolver(remote QuestionLoader, timeout time.Duration, logger *slog.Logger) *Resolver {
	return &Resolver{
		remote:  remote,
		timeout: timeout,
		logger:  logger,
	}
}

// Resolve picks the question set for a session created with cfg and the
// optional caller-supplied custom list. It always returns a playable set;
// the error slot only ever carries the recovered source failure for
// diagnosis, never a blocking condition.
func (r *Resolver) Resolve(ctx context.Context, cfg config.SessionConfig, custom []models.Question) (*models.QuestionSet, error) {
	if len(custom) > 0 {
		return &models.QuestionSet{Questions: custom, Mode: models.SourceCustom}, nil
	}

	if cfg.Source != models.SourceRemote {
		return SampleQuestionSet(), nil
	}

	set, err := r.resolveRemote(ctx, cfg)
	if err != nil {
		r.logger.Warn("Remote question source failed, falling back to sample set",
			"learning_object_code", cfg.LearningObjectCode,
			"error", err)
		return SampleQuestionSet(), err
	}
	return set, nil
}

// resolveRemote races the remote fetch against the bounded wait. The
// context deadline cancels whichever side loses, so a late response can
// never mutate a session already running on the fallback set.
func (r *Resolver) resolveRemote(ctx context.Context, cfg config.SessionConfig) (*models.QuestionSet, error) {
	if cfg.LearningObjectCode == "" {
		return nil, &SourceError{Reason: "learning_object_code missing from URL"}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	set, err := r.remote.Load(fetchCtx, cfg.LearningObjectCode)
	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return nil, &SourceError{Reason: "remote quiz API did not respond within the bounded wait", Err: err}
		}
		return nil, err
	}
	if set.Len() == 0 {
		return nil, &SourceError{Reason: "remote quiz API returned no questions"}
	}
	return set, nil
}
