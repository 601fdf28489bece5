package oauth

import "time"

// SetClock replaces the time source for testing purposes.
func (s *StateSigner) SetClock(now func() time.Time) {
	s.now = now
}

// Sign exposes the signature of a raw payload for testing purposes.
func (s *StateSigner) Sign(payload string) string {
	return s.sign(payload)
}
