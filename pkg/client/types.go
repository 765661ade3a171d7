package client

// StatusResponse is the daemon's status projection.
type StatusResponse struct {
	State        string `json:"state"`
	Message      string `json:"message"`
	Bootstrapped bool   `json:"bootstrapped"`
}

// DepStatus is the readiness of one declared dependency.
type DepStatus struct {
	Name      string `json:"name"`
	Mandatory bool   `json:"mandatory"`
	Ready     bool   `json:"ready"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
