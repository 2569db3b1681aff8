package models

// Answer is the canonical answer option shape. Every question source
// normalizes its own option records into this type before the rest of the
// system sees them.
type Answer struct {
	// ID is assigned by the source: a remote option code ("A".."D"), a
	// 1-based ordinal, or synthesized from position. Uniqueness within a
	// question is assumed, not enforced by the source systems.
	ID string `json:"id"`

	// Text may contain inline markup, audio triggers and zoomable images.
	Text string `json:"text"`
}

// Question is the canonical question shape exposed to the game engine.
//
// Correctness is designated either positionally (CorrectIndex, zero-based)
// or by identifier (CorrectID, compared as a string) — the remote source
// and the fallback set disagree on which scheme they use, so a question
// may carry one, both, or neither.
type Question struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	MediaURL string   `json:"media_url,omitempty"`
	Answers  []Answer `json:"answers"`

	CorrectIndex *int   `json:"correct_index,omitempty"`
	CorrectID    string `json:"correct_id,omitempty"`
}

// QuestionSet is an ordered, finite, non-empty sequence of questions.
// Display-facing counters are capped at DisplayTotal regardless of how
// many questions the source actually returned.
type QuestionSet struct {
	Questions []Question `json:"questions"`

	// Mode records which source channel produced the set.
	Mode SourceMode `json:"mode"`
}

// SourceMode identifies the channel the active question set came from.
type SourceMode string

const (
	SourceCustom SourceMode = "custom"
	SourceSample SourceMode = "sample"
	SourceRemote SourceMode = "remote"
	// SourceBridged marks sets driven by a host frame; question data
	// arrives over the bridge instead of being resolved up front.
	SourceBridged SourceMode = "bridged"
)

// Live reports whether the mode is backed by external session state that
// cannot be rewound locally. Restarting a live session recreates it
// instead of resetting in place.
func (m SourceMode) Live() bool {
	return m == SourceRemote || m == SourceBridged
}

// Len returns the number of questions available for play, bounded by the
// fixed display total.
func (qs *QuestionSet) Len() int {
	if len(qs.Questions) > DisplayTotal {
		return DisplayTotal
	}
	return len(qs.Questions)
}

// At returns the question at index i, or nil when out of range.
func (qs *QuestionSet) At(i int) *Question {
	if i < 0 || i >= qs.Len() {
		return nil
	}
	return &qs.Questions[i]
}
