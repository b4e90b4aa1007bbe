package websocket

import (
	"testing"

	"github.com/google/uuid"
)

func TestPresenceOnlineOffline(t *testing.T) {
	tracker := NewPresenceTracker()
	consultation := uuid.NewString()
	conn := uuid.New()

	if !tracker.SetOnline(consultation, "doctor", conn) {
		t.Fatal("first SetOnline should report a transition")
	}
	if !tracker.IsOnline(consultation, "doctor") {
		t.Fatal("doctor should be online")
	}
	if tracker.IsOnline(consultation, "patient") {
		t.Fatal("patient should not be online")
	}

	if !tracker.SetOffline(consultation, "doctor") {
		t.Fatal("SetOffline should report removal")
	}
	if tracker.IsOnline(consultation, "doctor") {
		t.Fatal("doctor should be offline after SetOffline")
	}
	if tracker.SetOffline(consultation, "doctor") {
		t.Fatal("second SetOffline should be a no-op")
	}
}

func TestPresenceRepeatOnlineIsNotATransition(t *testing.T) {
	tracker := NewPresenceTracker()
	consultation := uuid.NewString()

	if !tracker.SetOnline(consultation, "patient", uuid.New()) {
		t.Fatal("first SetOnline should report a transition")
	}
	if tracker.SetOnline(consultation, "patient", uuid.New()) {
		t.Fatal("repeat SetOnline should not report a transition")
	}
}

func TestPresenceLastWriterWins(t *testing.T) {
	tracker := NewPresenceTracker()
	consultation := uuid.NewString()
	oldConn := uuid.New()
	newConn := uuid.New()

	tracker.SetOnline(consultation, "doctor", oldConn)
	tracker.SetOnline(consultation, "doctor", newConn)

	// Stale connection disconnecting must not knock the replacement offline.
	if tracker.SetOfflineIfOwner(consultation, "doctor", oldConn) {
		t.Fatal("stale connection should not own the entry anymore")
	}
	if !tracker.IsOnline(consultation, "doctor") {
		t.Fatal("doctor should still be online via the replacement connection")
	}

	if !tracker.SetOfflineIfOwner(consultation, "doctor", newConn) {
		t.Fatal("current owner should be able to remove the entry")
	}
	if tracker.IsOnline(consultation, "doctor") {
		t.Fatal("doctor should be offline once the owner disconnects")
	}
}

func TestPresenceOnlineTypes(t *testing.T) {
	tracker := NewPresenceTracker()
	consultation := uuid.NewString()

	if got := tracker.OnlineTypes(consultation); len(got) != 0 {
		t.Fatalf("expected no online roles, got %v", got)
	}

	tracker.SetOnline(consultation, "doctor", uuid.New())
	tracker.SetOnline(consultation, "patient", uuid.New())

	types := tracker.OnlineTypes(consultation)
	if len(types) != 2 {
		t.Fatalf("expected 2 online roles, got %v", types)
	}
	seen := map[string]bool{}
	for _, userType := range types {
		seen[userType] = true
	}
	if !seen["doctor"] || !seen["patient"] {
		t.Fatalf("expected doctor and patient, got %v", types)
	}
}

func TestPresenceIsolatedPerConsultation(t *testing.T) {
	tracker := NewPresenceTracker()
	a := uuid.NewString()
	b := uuid.NewString()

	tracker.SetOnline(a, "doctor", uuid.New())

	if tracker.IsOnline(b, "doctor") {
		t.Fatal("presence must not leak across consultations")
	}
	if tracker.SetOffline(b, "doctor") {
		t.Fatal("removing from another consultation should be a no-op")
	}
	if !tracker.IsOnline(a, "doctor") {
		t.Fatal("original consultation presence should be untouched")
	}
}
