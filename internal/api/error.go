package api

type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
	ErrorLog   error
}

func (e *HTTPError) Error() string {
	return e.Message
}

// ApiError is the wire shape of every failed request. Code is a stable
// machine-readable identifier the widget and console key their retry and
// fallback behavior on.
type ApiError struct {
	Code  string `json:"code"`
	Error string `json:"message"`
}
