package slack

import (
	"encoding/json"
	"fmt"
)

// Envelope is the common part of every Web API response body.
type Envelope struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Warning  string `json:"warning,omitempty"`
	Message  string `json:"message,omitempty"`
	Needed   string `json:"needed,omitempty"`
	Provided string `json:"provided,omitempty"`
}

// Reason returns the provider supplied failure reason: the error code when
// present, otherwise the human readable message.
func (e *Envelope) Reason() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// ParseEnvelope decodes the envelope fields of body. The body must be a JSON object.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &env, nil
}
