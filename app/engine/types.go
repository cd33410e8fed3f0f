package engine

import "net/http"

// Auth applies the configured engine authentication to a request. Exactly one
// strategy is configured per deployment; the client never guesses between
// header conventions.
type Auth interface {
	Apply(req *http.Request)
}

// BearerToken sends the shared secret as "Authorization: Bearer <token>".
type BearerToken struct {
	Token string
}

func (a BearerToken) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// CustomHeader sends the shared secret under a deployment-specific header
// name.
type CustomHeader struct {
	Name  string
	Value string
}

func (a CustomHeader) Apply(req *http.Request) {
	req.Header.Set(a.Name, a.Value)
}

// PushResult reports the outcome of one batch delivery, including how many
// attempts were spent on it.
type PushResult struct {
	Success    bool
	StatusCode int
	Message    string
	Attempts   int
}
