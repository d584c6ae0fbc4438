package presence

// SelfResolver finds the occupant the integration tracks by exact display
// name and remembers which one it picked.
//
// Only the occupant id is cached. Each Resolve reads the current record from
// the snapshot so alone/away flags are never stale. A miss is not cached:
// the snapshot may still be populating.
type SelfResolver struct {
	avatarName string
	selfID     string
}

// NewSelfResolver creates a resolver for the given avatar name.
func NewSelfResolver(avatarName string) *SelfResolver {
	return &SelfResolver{avatarName: avatarName}
}

// AvatarName returns the configured display name.
func (r *SelfResolver) AvatarName() string {
	return r.avatarName
}

// SetAvatarName changes the name to match. A different name drops the cached handle.
func (r *SelfResolver) SetAvatarName(name string) {
	if name != r.avatarName {
		r.avatarName = name
		r.selfID = ""
	}
}

// Resolve returns the self occupant.
//
// When several occupants share the avatar name the first in snapshot order
// is picked and kept; there is no further disambiguation. If the cached
// occupant has left the space the handle is dropped and the name is matched
// again.
func (r *SelfResolver) Resolve(snapshot Snapshot) (Occupant, bool) {
	if snapshot == nil {
		return Occupant{}, false
	}

	if r.selfID != "" {
		if o, ok := snapshot.Occupant(r.selfID); ok {
			return o, true
		}
		r.selfID = ""
	}

	if r.avatarName == "" {
		return Occupant{}, false
	}

	name := r.avatarName
	matches := snapshot.FilterOccupants(func(o Occupant) bool {
		return o.Name == name
	})
	if len(matches) == 0 {
		return Occupant{}, false
	}

	r.selfID = matches[0].ID
	return matches[0], true
}

// SelfID returns the cached occupant id, or "" when nothing is cached.
func (r *SelfResolver) SelfID() string {
	return r.selfID
}

// Invalidate drops the cached handle but keeps the avatar name.
func (r *SelfResolver) Invalidate() {
	r.selfID = ""
}

// Reset drops the cached handle and the avatar name.
func (r *SelfResolver) Reset() {
	r.selfID = ""
	r.avatarName = ""
}
