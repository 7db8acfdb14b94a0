// Package session carries per-client state (active patient, in-progress
// draft, login token) in an explicit Session value resolved from a store on
// every request. Nothing is kept in process-global maps outside a Store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Session is the server-side state of one client.
type Session struct {
	ID          string                     `json:"id"`
	PatientID   string                     `json:"patient_id,omitempty"`
	AccessToken string                     `json:"access_token,omitempty"`
	UserID      string                     `json:"user_id,omitempty"`
	Username    string                     `json:"username,omitempty"`
	Role        string                     `json:"role,omitempty"`
	Values      map[string]json.RawMessage `json:"values,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`

	isNew     bool
	dirty     bool
	destroyed bool
}

// New returns an unsaved session with a random id.
func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		isNew:     true,
		dirty:     true,
	}
}

// SelectPatient records the active patient.
func (s *Session) SelectPatient(id string) {
	if s.PatientID != id {
		s.PatientID = id
		s.dirty = true
	}
}

// Login mirrors an issued token into the session.
func (s *Session) Login(token, userID, username, role string) {
	s.AccessToken = token
	s.UserID = userID
	s.Username = username
	s.Role = role
	s.dirty = true
}

// Authenticated reports whether an access token is present. It does not
// validate the token.
func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != ""
}

// Destroy marks the session for deletion at the end of the request.
func (s *Session) Destroy() {
	s.destroyed = true
	s.PatientID = ""
	s.AccessToken = ""
	s.UserID = ""
	s.Username = ""
	s.Role = ""
	s.Values = nil
}

// Set stores v under key as JSON.
func (s *Session) Set(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode session value %s: %w", key, err)
	}
	if s.Values == nil {
		s.Values = make(map[string]json.RawMessage)
	}
	s.Values[key] = raw
	s.dirty = true
	return nil
}

// Get decodes the value under key into dst. The boolean is false when the
// key is absent.
func (s *Session) Get(key string, dst interface{}) (bool, error) {
	raw, ok := s.Values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode session value %s: %w", key, err)
	}
	return true, nil
}

// Delete removes key.
func (s *Session) Delete(key string) {
	if _, ok := s.Values[key]; ok {
		delete(s.Values, key)
		s.dirty = true
	}
}

// Dirty reports whether the session must be written back.
func (s *Session) Dirty() bool { return s.dirty || s.isNew }

// Destroyed reports whether Destroy was called.
func (s *Session) Destroyed() bool { return s.destroyed }

// Store persists sessions.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type contextKey string

const sessionKey contextKey = "session"

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the request session, or nil when the middleware did
// not run.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

func encode(s *Session) ([]byte, error) {
	return json.Marshal(s)
}

func decode(raw []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}
