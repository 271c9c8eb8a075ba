// ABOUTME: Generic result envelope shared by every transport.
// ABOUTME: Either {status:"ok", result} or {status:"error", kind, message}.
package tools

import "encoding/json"

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Envelope is the serialized outcome of one invocation.
type Envelope struct {
	Status  string `json:"status"`
	Result  any    `json:"result,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// Success wraps a handler result.
func Success(result any) Envelope {
	return Envelope{Status: StatusOK, Result: result}
}

// Failure wraps an error, classifying it if it is not already a tool error.
func Failure(err error) Envelope {
	toolErr := Classify(err)
	msg := toolErr.Message
	if toolErr.Field != "" {
		msg = toolErr.Field + " " + msg
	}
	return Envelope{
		Status:  StatusError,
		Kind:    toolErr.Kind,
		Message: msg,
		Field:   toolErr.Field,
	}
}

// MarshalJSON always emits result on success, as null when the handler
// returned nothing. Error envelopes never carry it.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type wire Envelope
	if !e.OK() {
		return json.Marshal(wire(e))
	}
	return json.Marshal(struct {
		wire
		Result any `json:"result"`
	}{wire(e), e.Result})
}

// OK reports whether the envelope carries a result.
func (e Envelope) OK() bool {
	return e.Status == StatusOK
}
