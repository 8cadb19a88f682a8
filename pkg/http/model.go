package http

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string            `json:"error" example:"Invalid table name"`
	Details []ValidationError `json:"details,omitempty"`
}

// MessageBody is returned by mutations that have nothing else to report.
type MessageBody struct {
	ID      int64  `json:"id,omitempty"`
	Message string `json:"message"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"name"`
	Message string                 `json:"message,omitempty" example:"Name is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
