package execution

import (
	"fmt"
	"time"
)

// Regular session bounds in the exchange's local zone.
const (
	sessionOpenHour   = 9
	sessionOpenMinute = 30
	sessionCloseHour  = 16
)

// SessionClock answers "may we execute right now" for an exchange with
// a Mon-Fri 09:30-16:00 regular session. With rthOnly disabled (crypto
// venues) every instant is in session. The clock function is
// injectable for tests.
type SessionClock struct {
	loc     *time.Location
	rthOnly bool
	now     func() time.Time
}

// NewSessionClock builds a clock for the given IANA zone.
func NewSessionClock(tz string, rthOnly bool) (*SessionClock, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid exchange timezone %q: %w", tz, err)
	}
	return &SessionClock{
		loc:     loc,
		rthOnly: rthOnly,
		now:     time.Now,
	}, nil
}

// SetClock overrides the time source. Test hook.
func (s *SessionClock) SetClock(now func() time.Time) {
	s.now = now
}

// InSession reports whether execution is currently permitted.
func (s *SessionClock) InSession() bool {
	if !s.rthOnly {
		return true
	}

	t := s.now().In(s.loc)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	open := time.Date(t.Year(), t.Month(), t.Day(), sessionOpenHour, sessionOpenMinute, 0, 0, s.loc)
	close := time.Date(t.Year(), t.Month(), t.Day(), sessionCloseHour, 0, 0, 0, s.loc)
	return !t.Before(open) && t.Before(close)
}
