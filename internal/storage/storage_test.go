package storage

import (
	"testing"
	"time"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorageAt(t.TempDir())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConfigRoundTrip(t *testing.T) {
	s := openTestStorage(t)

	cfg, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if cfg.HashMB != 64 {
		t.Errorf("default HashMB = %d, want 64", cfg.HashMB)
	}

	cfg.HashMB = 256
	cfg.MoveOverheadMS = 50
	if err := s.SaveConfig(cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	loaded, err := s.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if loaded.HashMB != 256 || loaded.MoveOverheadMS != 50 {
		t.Errorf("got HashMB=%d MoveOverheadMS=%d, want 256, 50",
			loaded.HashMB, loaded.MoveOverheadMS)
	}
	if loaded.MoveOverhead() != 50*time.Millisecond {
		t.Errorf("MoveOverhead() = %v, want 50ms", loaded.MoveOverhead())
	}
}

func TestRecordSession(t *testing.T) {
	s := openTestStorage(t)

	id, err := s.RecordSession(SessionStats{
		Started:  time.Now().Add(-time.Minute),
		Ended:    time.Now(),
		Searches: 12,
		Nodes:    3400000,
		MaxDepth: 14,
	})
	if err != nil {
		t.Fatalf("record session: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated session ID")
	}

	if _, err := s.RecordSession(SessionStats{Searches: 1}); err != nil {
		t.Fatalf("record second session: %v", err)
	}

	sessions, err := s.Sessions()
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}

	found := false
	for _, sess := range sessions {
		if sess.ID == id {
			found = true
			if sess.Searches != 12 || sess.MaxDepth != 14 {
				t.Errorf("session %s: got Searches=%d MaxDepth=%d, want 12, 14",
					sess.ID, sess.Searches, sess.MaxDepth)
			}
		}
	}
	if !found {
		t.Errorf("session %s not in listing", id)
	}
}
