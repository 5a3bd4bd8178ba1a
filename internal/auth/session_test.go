package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"cowboy-strava/internal/cowboy"
	"cowboy-strava/internal/store"
)

type fakeLogin struct {
	calls int
	err   error
}

func (f *fakeLogin) Login(ctx context.Context, email, password string) (cowboy.Session, error) {
	f.calls++
	if f.err != nil {
		return cowboy.Session{}, f.err
	}
	return cowboy.Session{
		UID:         email,
		AccessToken: "fresh",
		Client:      "client-id",
		Expiry:      time.Now().Add(time.Hour),
	}, nil
}

type fakeSessionStore struct {
	sess  *cowboy.Session
	saves int
}

func (f *fakeSessionStore) GetSession() (cowboy.Session, error) {
	if f.sess == nil {
		return cowboy.Session{}, store.ErrNoSession
	}
	return *f.sess, nil
}

func (f *fakeSessionStore) SaveSession(sess cowboy.Session) error {
	f.sess = &sess
	f.saves++
	return nil
}

func TestCurrentPrefersStoredSession(t *testing.T) {
	client := &fakeLogin{}
	st := &fakeSessionStore{sess: &cowboy.Session{
		UID:         "rider@example.com",
		AccessToken: "stored",
		Expiry:      time.Now().Add(time.Hour),
	}}

	src := NewSessionSource(client, st, "rider@example.com", "secret")
	sess, err := src.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}

	if sess.AccessToken != "stored" {
		t.Errorf("AccessToken = %q, want the stored session", sess.AccessToken)
	}
	if client.calls != 0 {
		t.Errorf("login calls = %d, want 0 when the stored session is valid", client.calls)
	}
}

func TestCurrentLogsInWhenStoreEmpty(t *testing.T) {
	client := &fakeLogin{}
	st := &fakeSessionStore{}

	src := NewSessionSource(client, st, "rider@example.com", "secret")
	sess, err := src.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}

	if sess.AccessToken != "fresh" {
		t.Errorf("AccessToken = %q, want fresh login result", sess.AccessToken)
	}
	if client.calls != 1 || st.saves != 1 {
		t.Errorf("login calls = %d, saves = %d, want 1 and 1", client.calls, st.saves)
	}

	// The session is now cached; a second call must not log in again.
	if _, err := src.Current(context.Background()); err != nil {
		t.Fatalf("Current() second call error = %v", err)
	}
	if client.calls != 1 {
		t.Errorf("login calls after second Current = %d, want 1", client.calls)
	}
}

func TestCurrentIgnoresExpiredStoredSession(t *testing.T) {
	client := &fakeLogin{}
	st := &fakeSessionStore{sess: &cowboy.Session{
		AccessToken: "stale",
		Expiry:      time.Now().Add(-time.Hour),
	}}

	src := NewSessionSource(client, st, "rider@example.com", "secret")
	sess, err := src.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}

	if sess.AccessToken != "fresh" {
		t.Errorf("AccessToken = %q, want fresh login past the stale session", sess.AccessToken)
	}
}

func TestRefreshForcesLogin(t *testing.T) {
	client := &fakeLogin{}
	st := &fakeSessionStore{sess: &cowboy.Session{
		AccessToken: "stored",
		Expiry:      time.Now().Add(time.Hour),
	}}

	src := NewSessionSource(client, st, "rider@example.com", "secret")
	if _, err := src.Current(context.Background()); err != nil {
		t.Fatalf("Current() error = %v", err)
	}

	sess, err := src.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if sess.AccessToken != "fresh" {
		t.Errorf("AccessToken = %q, want a fresh login despite the valid cache", sess.AccessToken)
	}
	if client.calls != 1 {
		t.Errorf("login calls = %d, want 1", client.calls)
	}
	if st.saves != 1 {
		t.Errorf("saves = %d, want the refreshed session persisted", st.saves)
	}
}

func TestLoginFailureSurfaces(t *testing.T) {
	wantErr := errors.New("bad credentials")
	client := &fakeLogin{err: wantErr}

	src := NewSessionSource(client, &fakeSessionStore{}, "rider@example.com", "wrong")
	if _, err := src.Current(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Current() error = %v, want wrapped login failure", err)
	}
}
