package presence

import "testing"

func TestSelfResolver_NoMatchIsNotCached(t *testing.T) {
	snap := newFakeSnapshot(Occupant{ID: "a", Name: "Ana"})
	r := NewSelfResolver("Me")

	if _, ok := r.Resolve(snap); ok {
		t.Fatal("Resolve() found self before it joined")
	}
	if r.SelfID() != "" {
		t.Errorf("SelfID() = %q, want empty after a miss", r.SelfID())
	}

	snap.occupants = append(snap.occupants, Occupant{ID: "me", Name: "Me"})

	self, ok := r.Resolve(snap)
	if !ok || self.ID != "me" {
		t.Fatalf("Resolve() = (%+v, %v), want me", self, ok)
	}
	if r.SelfID() != "me" {
		t.Errorf("SelfID() = %q, want me", r.SelfID())
	}
}

func TestSelfResolver_DuplicateNamesPickFirst(t *testing.T) {
	snap := newFakeSnapshot(
		Occupant{ID: "x", Name: "Other"},
		Occupant{ID: "me-1", Name: "Me"},
		Occupant{ID: "me-2", Name: "Me"},
	)
	r := NewSelfResolver("Me")

	for i := 0; i < 2; i++ {
		self, ok := r.Resolve(snap)
		if !ok || self.ID != "me-1" {
			t.Fatalf("Resolve() = (%q, %v), want me-1", self.ID, ok)
		}
	}
}

func TestSelfResolver_ReadsCurrentRecord(t *testing.T) {
	snap := newFakeSnapshot(Occupant{ID: "me", Name: "Me"})
	r := NewSelfResolver("Me")
	r.Resolve(snap)

	snap.setAlone("me", true)

	self, _ := r.Resolve(snap)
	if !self.IsAlone {
		t.Error("Resolve() returned a stale record")
	}
}

func TestSelfResolver_CachedHandleSurvivesRename(t *testing.T) {
	snap := newFakeSnapshot(Occupant{ID: "me", Name: "Me"})
	r := NewSelfResolver("Me")
	r.Resolve(snap)

	snap.occupants[0].Name = "Me (busy)"

	self, ok := r.Resolve(snap)
	if !ok || self.ID != "me" {
		t.Errorf("Resolve() = (%q, %v), want cached me", self.ID, ok)
	}
}

func TestSelfResolver_OccupantLeft(t *testing.T) {
	snap := newFakeSnapshot(Occupant{ID: "me", Name: "Me"})
	r := NewSelfResolver("Me")
	r.Resolve(snap)

	snap.occupants = []Occupant{{ID: "me-again", Name: "Me"}}

	self, ok := r.Resolve(snap)
	if !ok || self.ID != "me-again" {
		t.Errorf("Resolve() = (%q, %v), want me-again", self.ID, ok)
	}
}

func TestSelfResolver_ResetAndRename(t *testing.T) {
	snap := newFakeSnapshot(
		Occupant{ID: "me", Name: "Me"},
		Occupant{ID: "ana", Name: "Ana"},
	)
	r := NewSelfResolver("Me")
	r.Resolve(snap)

	r.SetAvatarName("Ana")
	self, ok := r.Resolve(snap)
	if !ok || self.ID != "ana" {
		t.Errorf("after SetAvatarName, Resolve() = (%q, %v), want ana", self.ID, ok)
	}

	r.Reset()
	if r.AvatarName() != "" || r.SelfID() != "" {
		t.Errorf("Reset() left avatar=%q id=%q", r.AvatarName(), r.SelfID())
	}
	if _, ok := r.Resolve(snap); ok {
		t.Error("Resolve() after Reset() should not match anything")
	}
}
