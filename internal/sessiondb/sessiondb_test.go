package sessiondb

import (
	"testing"
	"time"
)

func newDB(t *testing.T, ttl time.Duration) (*DB, *time.Time) {
	t.Helper()
	db, err := New(ttl)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return now }
	return db, &now
}

func TestNewRejectsZeroTTL(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("New(0) error = nil, want error")
	}
}

func TestCreateAndLookup(t *testing.T) {
	db, _ := newDB(t, time.Hour)

	raw, ses, err := db.Create(7)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if raw == "" || ses.TokenHash == raw {
		t.Fatalf("Create() raw = %q, hash = %q; token must be stored hashed", raw, ses.TokenHash)
	}

	got, ok := db.Lookup(raw)
	if !ok || got.UserID != 7 {
		t.Errorf("Lookup() = %+v, %v, want user 7", got, ok)
	}

	tests := []string{"", "unknown", ses.TokenHash}
	for _, tok := range tests {
		if _, ok := db.Lookup(tok); ok {
			t.Errorf("Lookup(%q) found a session", tok)
		}
	}
}

func TestLookupExpired(t *testing.T) {
	db, now := newDB(t, time.Minute)
	raw, _, _ := db.Create(1)

	*now = now.Add(2 * time.Minute)
	if _, ok := db.Lookup(raw); ok {
		t.Error("Lookup() returned an expired session")
	}
}

func TestTerminate(t *testing.T) {
	db, _ := newDB(t, time.Hour)
	raw, _, _ := db.Create(1)
	other, _, _ := db.Create(1)

	if err := db.Terminate(raw); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}
	if _, ok := db.Lookup(raw); ok {
		t.Error("session still valid after Terminate()")
	}
	if _, ok := db.Lookup(other); !ok {
		t.Error("Terminate() removed an unrelated session")
	}
	if err := db.Terminate("unknown"); err != nil {
		t.Errorf("Terminate(unknown) error = %v", err)
	}
}

func TestTerminateByUserID(t *testing.T) {
	db, _ := newDB(t, time.Hour)
	_, _, _ = db.Create(1)
	_, _, _ = db.Create(1)
	keep, _, _ := db.Create(2)

	n, err := db.TerminateByUserID(1)
	if err != nil {
		t.Fatalf("TerminateByUserID() error = %v", err)
	}
	if n != 2 {
		t.Errorf("TerminateByUserID() = %d, want 2", n)
	}
	if _, ok := db.Lookup(keep); !ok {
		t.Error("TerminateByUserID() removed another user's session")
	}
}

func TestTerminateExpired(t *testing.T) {
	db, now := newDB(t, time.Hour)
	_, _, _ = db.Create(1)
	_, _, _ = db.Create(2)

	*now = now.Add(30 * time.Minute)
	fresh, _, _ := db.Create(3)

	*now = now.Add(45 * time.Minute)
	n, err := db.TerminateExpired()
	if err != nil {
		t.Fatalf("TerminateExpired() error = %v", err)
	}
	if n != 2 {
		t.Errorf("TerminateExpired() = %d, want 2", n)
	}
	if c := db.Count(); c != 1 {
		t.Errorf("Count() = %d, want 1", c)
	}
	if _, ok := db.Lookup(fresh); !ok {
		t.Error("TerminateExpired() removed a live session")
	}
}
