package user

import "time"

// SetClock replaces the time source for testing purposes.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
