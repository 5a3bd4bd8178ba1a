package store

import (
	"errors"
	"testing"
	"time"

	"cowboy-strava/internal/cowboy"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := OpenTest()
	if err != nil {
		t.Fatalf("OpenTest() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAuthRoundtrip(t *testing.T) {
	s := openTest(t)

	if _, err := s.GetAuth(); !errors.Is(err, ErrNoAuth) {
		t.Fatalf("GetAuth() on empty store error = %v, want ErrNoAuth", err)
	}

	expires := time.Date(2023, 5, 10, 12, 0, 0, 0, time.UTC)
	if err := s.SaveAuth(&Auth{AccessToken: "at", RefreshToken: "rt", ExpiresAt: expires}); err != nil {
		t.Fatalf("SaveAuth() error = %v", err)
	}

	auth, err := s.GetAuth()
	if err != nil {
		t.Fatalf("GetAuth() error = %v", err)
	}
	if auth.AccessToken != "at" || auth.RefreshToken != "rt" {
		t.Errorf("GetAuth() = %+v, want at/rt", auth)
	}
	if !auth.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", auth.ExpiresAt, expires)
	}
}

func TestUpdateTokens(t *testing.T) {
	s := openTest(t)

	if err := s.UpdateTokens("a", "r", time.Now()); !errors.Is(err, ErrNoAuth) {
		t.Fatalf("UpdateTokens() with no row error = %v, want ErrNoAuth", err)
	}

	if err := s.SaveAuth(&Auth{AccessToken: "old", RefreshToken: "old", ExpiresAt: time.Unix(0, 0)}); err != nil {
		t.Fatalf("SaveAuth() error = %v", err)
	}
	expires := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := s.UpdateTokens("new-at", "new-rt", expires); err != nil {
		t.Fatalf("UpdateTokens() error = %v", err)
	}

	auth, err := s.GetAuth()
	if err != nil {
		t.Fatalf("GetAuth() error = %v", err)
	}
	if auth.AccessToken != "new-at" || auth.RefreshToken != "new-rt" || !auth.ExpiresAt.Equal(expires) {
		t.Errorf("GetAuth() after update = %+v", auth)
	}
}

func TestSessionRoundtrip(t *testing.T) {
	s := openTest(t)

	if _, err := s.GetSession(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("GetSession() on empty store error = %v, want ErrNoSession", err)
	}

	sess := cowboy.Session{
		UID:         "rider@example.com",
		AccessToken: "tok",
		Client:      "client-id",
		Expiry:      time.Date(2023, 5, 10, 14, 0, 0, 0, time.UTC),
	}
	if err := s.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	got, err := s.GetSession()
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.UID != sess.UID || got.AccessToken != sess.AccessToken || got.Client != sess.Client {
		t.Errorf("GetSession() = %+v, want %+v", got, sess)
	}
	if !got.Expiry.Equal(sess.Expiry) {
		t.Errorf("Expiry = %v, want %v", got.Expiry, sess.Expiry)
	}

	// Saving again replaces the singleton row.
	sess.AccessToken = "tok2"
	if err := s.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession() replace error = %v", err)
	}
	got, err = s.GetSession()
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.AccessToken != "tok2" {
		t.Errorf("AccessToken after replace = %q, want tok2", got.AccessToken)
	}
}

func TestProcessedHistory(t *testing.T) {
	s := openTest(t)

	processed, err := s.LoadProcessed()
	if err != nil {
		t.Fatalf("LoadProcessed() error = %v", err)
	}
	if len(processed) != 0 {
		t.Fatalf("LoadProcessed() on empty store = %v, want empty", processed)
	}

	if err := s.MarkProcessed("b2", 43, ModeSimple); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}
	if err := s.MarkProcessed("a1", 42, ModeTrack); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}
	// Marking an already marked uid is a no-op.
	if err := s.MarkProcessed("a1", 42, ModeSimple); err != nil {
		t.Fatalf("MarkProcessed() duplicate error = %v", err)
	}

	processed, err = s.LoadProcessed()
	if err != nil {
		t.Fatalf("LoadProcessed() error = %v", err)
	}
	if len(processed) != 2 {
		t.Errorf("LoadProcessed() = %v, want 2 uids", processed)
	}
	if _, ok := processed["a1"]; !ok {
		t.Error("a1 missing from processed set")
	}

	trips, err := s.ListProcessed()
	if err != nil {
		t.Fatalf("ListProcessed() error = %v", err)
	}
	if len(trips) != 2 {
		t.Fatalf("ListProcessed() = %d trips, want 2", len(trips))
	}
	if trips[0].UID != "a1" || trips[1].UID != "b2" {
		t.Errorf("ListProcessed() order = %s, %s, want a1, b2", trips[0].UID, trips[1].UID)
	}
	// The first mark wins; the duplicate must not change the mode.
	if trips[0].Mode != ModeTrack {
		t.Errorf("a1 mode = %q, want %q", trips[0].Mode, ModeTrack)
	}
	for _, tr := range trips {
		if tr.ProcessedAt.IsZero() {
			t.Errorf("%s ProcessedAt is zero, want the insert timestamp", tr.UID)
		}
	}
}

func TestListProcessedBadTimestamp(t *testing.T) {
	s := openTest(t)

	_, err := s.db.Exec(`
		INSERT INTO processed_trips (uid, trip_id, mode, processed_at)
		VALUES ('a1', 42, 'track', 'not-a-timestamp')
	`)
	if err != nil {
		t.Fatalf("seeding row: %v", err)
	}

	if _, err := s.ListProcessed(); err == nil {
		t.Error("ListProcessed() should fail on an unparseable processed_at")
	}
}

func TestRecordRun(t *testing.T) {
	s := openTest(t)

	run := &SyncRun{
		ID:         "run-1",
		StartedAt:  time.Date(2023, 5, 10, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2023, 5, 10, 12, 1, 30, 0, time.UTC),
		Uploaded:   2,
		Simple:     1,
		Errors:     1,
	}
	if err := s.RecordRun(run); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	var uploaded, errs int
	err := s.db.QueryRow(`SELECT uploaded, errors FROM sync_runs WHERE id = ?`, "run-1").Scan(&uploaded, &errs)
	if err != nil {
		t.Fatalf("querying sync_runs: %v", err)
	}
	if uploaded != 2 || errs != 1 {
		t.Errorf("stored run = uploaded %d, errors %d, want 2 and 1", uploaded, errs)
	}
}
