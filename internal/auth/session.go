package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cowboy-strava/internal/cowboy"
	"cowboy-strava/internal/store"
)

// SessionStore persists Cowboy session headers between runs.
type SessionStore interface {
	GetSession() (cowboy.Session, error)
	SaveSession(cowboy.Session) error
}

// loginClient is the slice of the Cowboy client the session source needs.
type loginClient interface {
	Login(ctx context.Context, email, password string) (cowboy.Session, error)
}

// SessionSource produces valid Cowboy sessions, reusing the cached one
// while it is still live and logging in again when it is not. Each
// refresh yields a new immutable Session value.
type SessionSource struct {
	client   loginClient
	store    SessionStore
	email    string
	password string

	mu   sync.Mutex
	sess cowboy.Session
}

// NewSessionSource creates a session source for the given account.
func NewSessionSource(client loginClient, st SessionStore, email, password string) *SessionSource {
	return &SessionSource{
		client:   client,
		store:    st,
		email:    email,
		password: password,
	}
}

// Current returns a session expected to be valid, preferring the cached
// one and falling back to a fresh login.
func (s *SessionSource) Current(ctx context.Context) (cowboy.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.sess.Valid(now) {
		return s.sess, nil
	}

	stored, err := s.store.GetSession()
	if err == nil && stored.Valid(now) {
		s.sess = stored
		return stored, nil
	}
	if err != nil && !errors.Is(err, store.ErrNoSession) {
		return cowboy.Session{}, fmt.Errorf("loading session: %w", err)
	}

	return s.login(ctx)
}

// Refresh discards any cached session and logs in again. It is called
// when the provider rejects headers that looked valid locally.
func (s *SessionSource) Refresh(ctx context.Context) (cowboy.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login(ctx)
}

func (s *SessionSource) login(ctx context.Context) (cowboy.Session, error) {
	sess, err := s.client.Login(ctx, s.email, s.password)
	if err != nil {
		return cowboy.Session{}, fmt.Errorf("cowboy login: %w", err)
	}
	if err := s.store.SaveSession(sess); err != nil {
		return cowboy.Session{}, fmt.Errorf("saving session: %w", err)
	}
	s.sess = sess
	return sess, nil
}
