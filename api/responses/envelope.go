package responses

// Envelope wraps every successful user-facing payload.
type Envelope struct {
	Data any `json:"data"`
}

// ErrorBody is the public shape of a failed request. RequestID matches the
// request_id field in the server logs.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
