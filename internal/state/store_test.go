package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/lumen/internal/imgapi"
)

func TestStore_UpdateAndSnapshot(t *testing.T) {
	var s Store

	before := time.Now()
	s.Update(&imgapi.Health{Status: "healthy", Version: "1.0.0", ModelsLoaded: true}, 12*time.Millisecond, nil)

	snap := s.Snapshot()
	if !snap.HasHealth || snap.Health.Version != "1.0.0" {
		t.Fatalf("snapshot health = %#v, want version 1.0.0 HasHealth=true", snap.Health)
	}
	if snap.Latency != 12*time.Millisecond {
		t.Fatalf("Latency = %v, want 12ms", snap.Latency)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if !snap.Ready() {
		t.Fatalf("Ready() = false for healthy server with models")
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.Update(&imgapi.Health{Status: "healthy", Version: "2"}, time.Millisecond, nil)
	prev := s.Snapshot()

	origErr := errors.New("boom")
	s.Update(nil, 0, origErr)

	snap := s.Snapshot()
	if snap.HasHealth != prev.HasHealth || snap.Health.Version != prev.Health.Version {
		t.Fatalf("health changed on error: got %#v want %#v", snap.Health, prev.Health)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}

	s.Update(nil, 0, errors.New("fail 1"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after 1 failure: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Update(nil, 0, errors.New("fail 2"))
	if snap := s.Snapshot(); !snap.IsOffline() {
		t.Fatal("IsOffline() = false, want true with 2 failures")
	}

	s.Update(&imgapi.Health{Status: "healthy"}, 0, nil)
	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("after success: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}
	if snap.Ready() {
		t.Fatalf("Ready() = true without models loaded")
	}
}
