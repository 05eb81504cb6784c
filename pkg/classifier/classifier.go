// Package classifier defines the remote classifier contract consumed by the
// decision pipeline, plus the HTTP clients that implement it. The pipeline
// does not depend on the classifier's internal scoring: a successful
// response is evidence the message is worth a synthesized risk score, a
// failure is a signal to degrade to the local heuristic.
package classifier

import (
	"context"
	"errors"
)

// ErrUnavailable marks any classifier failure: network error, timeout,
// non-success status, or malformed body. The pipeline recovers from it
// locally and never surfaces it to the requester.
var ErrUnavailable = errors.New("classifier unavailable")

// Turn is one prior message in the conversation history.
type Turn struct {
	Role    string `json:"role"`    // "user" (scammer) or "assistant" (decoy)
	Content string `json:"content"`
}

// Request is one classification call. Message must already be redacted;
// handing raw text to a Classifier is a privacy-boundary violation.
type Request struct {
	SessionID string
	Message   string
	History   []Turn
	Persona   string

	// Per-request backend override from the settings snapshot. Empty
	// values fall back to the client's configured defaults.
	BaseURL string
	APIKey  string
}

// Outcome is a successful classification. A non-empty reply is the decoy
// response the backend wants delivered.
type Outcome struct {
	Reply string
}

// Classifier is the remote classification contract.
type Classifier interface {
	// Classify sends redacted text to the backend. Implementations must
	// bound the call with a timeout; an expired deadline is a failure.
	Classify(ctx context.Context, req Request) (*Outcome, error)
}

// Prober checks backend reachability. Not part of the analysis pipeline;
// consumed by the UI collaborator's connectivity indicator.
type Prober interface {
	Probe(ctx context.Context, baseURL string) error
}
