package model

import "time"

// Session identifies the signed-in owner for a call. It is passed
// explicitly to every service operation.
type Session struct {
	UserID    string
	Token     string
	ExpiresAt *time.Time
	Location  *time.Location
}

func (s *Session) Valid() bool {
	return s != nil && s.UserID != ""
}

// Loc returns the session's time zone, defaulting to local time.
func (s *Session) Loc() *time.Location {
	if s == nil || s.Location == nil {
		return time.Local
	}
	return s.Location
}
