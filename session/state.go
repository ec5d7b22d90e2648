package session

import "github.com/jrsteele09/go-session-auth/identity"

// Status is the logical state of a session.
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
	StatusFailed         Status = "failed"
)

// State is a point-in-time copy of the session record.
// Empty strings and a nil User mean "absent".
type State struct {
	Token     string
	User      *identity.User
	IsLoading bool
	Error     string
}

// IsAuthenticated reports whether a token is held.
func (s State) IsAuthenticated() bool {
	return s.Token != ""
}

func (s State) Status() Status {
	switch {
	case s.IsLoading:
		return StatusAuthenticating
	case s.Token != "":
		return StatusAuthenticated
	case s.Error != "":
		return StatusFailed
	default:
		return StatusAnonymous
	}
}
