// Package types holds the wire envelopes shared by every HTTP response.
package types

// SuccessEnvelope wraps successful payloads under a single data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorBody is the public shape of a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope mirrors SuccessEnvelope for failures.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
