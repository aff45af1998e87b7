package responses

// Success wraps every 2xx payload.
type Success struct {
	Data any `json:"data"`
}

// Failure wraps every error payload.
type Failure struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries a stable code for clients to branch on. Details are only
// set for codes whose metadata allows them, e.g. the reason of a rejected
// cart mutation.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
