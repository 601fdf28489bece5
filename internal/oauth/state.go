package oauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	stateNonceSize = 16
	// DefaultStateTTL is the lifetime of a state when none is configured.
	DefaultStateTTL = 10 * time.Minute
)

var ErrEmptyStateSecret = errors.New("state secret must not be empty")

// StateSigner issues and checks self-authenticating state values of the form
// "{unix seconds}:{nonce}.{signature}". Nothing is kept server-side.
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

func NewStateSigner(secret []byte) (*StateSigner, error) {
	if len(secret) == 0 {
		return nil, ErrEmptyStateSecret
	}

	return &StateSigner{
		secret: secret,
		now:    time.Now,
	}, nil
}

// Generate returns a fresh signed state.
func (s *StateSigner) Generate() string {
	nonce := make([]byte, stateNonceSize)
	_, _ = rand.Read(nonce)

	payload := strconv.FormatInt(s.now().Unix(), 10) + ":" + base64.RawURLEncoding.EncodeToString(nonce)

	return payload + "." + s.sign(payload)
}

// Validate reports whether state was issued by this signer and is not older
// than maxAge. Any malformed input is rejected.
func (s *StateSigner) Validate(state string, maxAge time.Duration) bool {
	idx := strings.LastIndex(state, ".")
	if idx <= 0 || idx == len(state)-1 {
		return false
	}
	payload, sig := state[:idx], state[idx+1:]

	if !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return false
	}

	rawTS, _, ok := strings.Cut(payload, ":")
	if !ok {
		return false
	}
	ts, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return false
	}

	age := s.now().Sub(time.Unix(ts, 0))

	return age <= maxAge
}

func (s *StateSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))

	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
