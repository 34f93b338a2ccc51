package types

// Error taxonomy exposed to callers.
const (
	ErrorTypeUpstream       = "upstream_error"
	ErrorTypeInternal       = "internal_error"
	ErrorTypeInvalidRequest = "invalid_request_error"
)

// Error is the detail inside the uniform {"error":{...}} envelope.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Error implements the error interface for Error, returning the message.
func (e *Error) Error() string {
	return e.Message
}

// ErrorResponse is the envelope every externally visible error is wrapped in.
// It implements error so adapter failures can travel as plain error values and
// be recovered by handlers via errors.As.
type ErrorResponse struct {
	Err Error `json:"error"`

	// StatusCode is the HTTP status the upstream reported, when known.
	// Zero means the writer should derive the status from Err.Type.
	StatusCode int `json:"-"`
}

// Error implements the error interface, returning the underlying message.
func (e *ErrorResponse) Error() string {
	return e.Err.Message
}
