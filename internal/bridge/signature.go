package bridge

import (
	"encoding/json"
)

// Question signatures guard against out-of-order or unsolicited question
// pushes from the host. A question is "new" when its structural signature
// (identifier + text + options) differs from the last one seen; the
// bridge turns an unsolicited new signature into a forced advance.

type signatureShape struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Answers []string `json:"answers"`
}

// buildSignature derives the structural signature of a question payload.
// Only identity-bearing fields participate; presentation extras like
// audio references do not.
func buildSignature(p *QuestionPayload) string {
	if p == nil {
		return ""
	}

	shape := signatureShape{
		ID:   p.ID.String(),
		Text: firstNonEmpty(p.Text, p.Content, p.Question),
	}
	for _, a := range p.Answers {
		shape.Answers = append(shape.Answers, a.ID+"\x00"+a.Text)
	}

	raw, err := json.Marshal(shape)
	if err != nil {
		return ""
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
