package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStoreWithoutPool(t *testing.T) {
	var s *Store
	ctx := context.Background()

	if _, err := s.InsertReading(ctx, Reading{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("insert: expected ErrNotConfigured, got %v", err)
	}
	if _, err := s.ListRecentReadings(ctx, "20", 10); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("list recent: expected ErrNotConfigured, got %v", err)
	}
	if _, err := s.ListReadingsBetween(ctx, "20", time.Now().Add(-time.Hour), time.Now()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("list between: expected ErrNotConfigured, got %v", err)
	}
	if _, _, err := s.TryAdvisoryLock(ctx, 1); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("lock: expected ErrNotConfigured, got %v", err)
	}
	s.Close()
}
