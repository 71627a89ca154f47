package session

import (
	"fmt"
)

// Snapshot is an atomic read of the session triple. Every transition in the
// Store produces a fully-formed Snapshot; observers never see intermediate
// states.
type Snapshot struct {
	User    *User
	Token   string
	Pending *PendingLogin
}

// IsAuthenticated reports whether a user is set, whether from a real login
// or a mock one. Real logins additionally carry a token.
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil
}

// Role returns the authenticated user's role, empty when unauthenticated.
func (s Snapshot) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// Home returns the authenticated user's home path, defaulting to the admin
// area for unknown roles.
func (s Snapshot) Home() string {
	return s.Role().Home()
}

func (s Snapshot) String() string {
	user := "<nil>"
	if s.User != nil {
		user = fmt.Sprintf("%d:%s", s.User.ID, s.User.Email)
	}
	pending := "none"
	if s.Pending != nil {
		pending = fmt.Sprintf("user=%d", s.Pending.UserID)
	}
	return fmt.Sprintf(
		"user=%s role=%s token=%t pending=%s",
		user,
		s.Role(),
		s.Token != "",
		pending,
	)
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func clonePending(p *PendingLogin) *PendingLogin {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
