package api

// FieldError describes one request-shape validation failure.
// Index is the position of the offending operation in the batch, or -1
// for request-level fields.
type FieldError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-200 response.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}
