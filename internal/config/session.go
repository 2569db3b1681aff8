package config

import (
	"net/url"

	"github.com/dragon-peak/quiz-game-service/internal/models"
)

// SessionConfig is computed exactly once when a session is created and
// passed into the engine; source selection is never re-derived from
// request state afterwards.
type SessionConfig struct {
	Source             models.SourceMode `json:"source" validate:"required,source_mode"`
	LearningObjectCode string            `json:"learning_object_code,omitempty"`
	SampleRequested    bool              `json:"sample_requested"`
}

// SessionConfigFromParams derives the session configuration from the
// embedding page's query parameters. Priority order: an explicit sample
// request wins, then a learning object code selects remote mode, and
// with neither present the sample set is all we can play.
func SessionConfigFromParams(params url.Values) SessionConfig {
	sample := params.Get("sample") == "true"
	code := params.Get("learning_object_code")

	cfg := SessionConfig{
		LearningObjectCode: code,
		SampleRequested:    sample,
	}
	switch {
	case sample:
		cfg.Source = models.SourceSample
	case code != "":
		cfg.Source = models.SourceRemote
	default:
		cfg.Source = models.SourceSample
	}
	return cfg
}
