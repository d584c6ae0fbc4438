package presence

import "strings"

// personsSeparator joins co-occupant names in presence-status payloads.
const personsSeparator = ", "

// unknownOccupant names a wave target that cannot be identified.
const unknownOccupant = "unknown"

// Evaluator turns occupant events into presence notifications for the self
// occupant.
//
// It owns the two pieces of cached derived state: the self handle (through
// SelfResolver) and self's private area id. The area belongs to the occupant
// it was computed for: it is invalidated by OccupantMoved for self and
// whenever a different occupant is resolved as self. Reset clears both.
type Evaluator struct {
	self     *SelfResolver
	areaID   string
	areaFor  string
	notifier Notifier
	logger   Logger
}

// NewEvaluator creates an evaluator that reports through notifier.
// logger may be nil.
func NewEvaluator(notifier Notifier, logger Logger) *Evaluator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Evaluator{
		self:     NewSelfResolver(""),
		notifier: notifier,
		logger:   logger,
	}
}

// Configure sets the avatar name used to find self. Cached state from a
// previous name is discarded.
func (e *Evaluator) Configure(avatarName string) {
	if avatarName != e.self.AvatarName() {
		e.clearArea()
	}
	e.self.SetAvatarName(avatarName)
}

// AvatarName returns the configured avatar name.
func (e *Evaluator) AvatarName() string {
	return e.self.AvatarName()
}

// Reset clears the self handle, the cached area and the avatar name.
// Called when the realtime session ends.
func (e *Evaluator) Reset() {
	e.self.Reset()
	e.clearArea()
}

// Self returns the self occupant, resolving it if needed.
func (e *Evaluator) Self(snapshot Snapshot) (Occupant, bool) {
	return e.resolveSelf(snapshot)
}

// resolveSelf resolves self and drops the cached area when it was computed
// for another occupant or self cannot be resolved.
func (e *Evaluator) resolveSelf(snapshot Snapshot) (Occupant, bool) {
	self, ok := e.self.Resolve(snapshot)
	if !ok || self.ID != e.areaFor {
		e.clearArea()
	}
	return self, ok
}

func (e *Evaluator) clearArea() {
	e.areaID = ""
	e.areaFor = ""
}

// SelfArea returns self's private area id, using the cached value when present.
// A miss is not cached.
func (e *Evaluator) SelfArea(snapshot Snapshot) (string, bool) {
	self, ok := e.resolveSelf(snapshot)
	if !ok {
		return "", false
	}
	if e.areaID != "" {
		return e.areaID, true
	}

	areaID, ok := ResolvePrivateArea(&self, snapshot)
	if ok {
		e.areaID = areaID
		e.areaFor = self.ID
	}
	return areaID, ok
}

// AreaCached reports whether self's private area is currently cached.
func (e *Evaluator) AreaCached() bool {
	return e.areaID != ""
}

// OccupantMoved handles a movement event. Only a move by self invalidates
// the cached area.
func (e *Evaluator) OccupantMoved(snapshot Snapshot, occupantID string) {
	self, ok := e.resolveSelf(snapshot)
	if !ok || self.ID != occupantID {
		return
	}
	if e.areaID != "" {
		e.logger.Debug("self moved, private area invalidated", "area", e.areaID)
	}
	e.clearArea()
}

// OccupantSetsAlone handles an alone/away change for occupant and emits
// presence-status when it concerns self.
//
// The change concerns self when occupant is self, or when self is inside a
// private area and occupant is in the same area on the same map. Two
// occupants that are both outside any area are not co-located.
func (e *Evaluator) OccupantSetsAlone(snapshot Snapshot, occupant Occupant) {
	self, ok := e.resolveSelf(snapshot)
	if !ok {
		e.logger.Debug("self not resolved yet, ignoring alone change", "occupant_id", occupant.ID)
		return
	}

	selfArea, inArea := e.SelfArea(snapshot)

	if occupant.ID != self.ID {
		if !inArea {
			e.logger.Debug("ignoring alone change outside private areas", "occupant", occupant.Name)
			return
		}
		area, found := ResolvePrivateArea(&occupant, snapshot)
		if !found || occupant.MapID != self.MapID || area != selfArea {
			e.logger.Debug("ignoring alone change in another area",
				"occupant", occupant.Name,
				"area", area,
			)
			return
		}
	}

	var persons string
	if inArea {
		persons = strings.Join(e.Roster(snapshot, self, selfArea), personsSeparator)
	}

	if self.IsAlone {
		e.logger.Info("self is now alone", "area", selfArea)
	} else {
		e.logger.Info("self is joined", "persons", persons, "area", selfArea)
	}

	e.notify(EventPresenceStatus, PresenceStatus{
		Alone:   self.IsAlone,
		Away:    self.Away,
		Persons: persons,
	})
}

// Roster returns the names of everyone except self standing in areaID on
// self's map, in snapshot order.
func (e *Evaluator) Roster(snapshot Snapshot, self Occupant, areaID string) []string {
	if snapshot == nil || areaID == "" {
		return nil
	}

	others := snapshot.FilterOccupants(func(o Occupant) bool {
		if o.ID == self.ID || o.MapID != self.MapID {
			return false
		}
		id, ok := ResolvePrivateArea(&o, snapshot)
		return ok && id == areaID
	})

	names := make([]string, 0, len(others))
	for _, o := range others {
		names = append(names, o.Name)
	}
	return names
}

// OccupantRings emits doorbell-rings for any ringing occupant.
func (e *Evaluator) OccupantRings(ringer Occupant) {
	e.logger.Info("occupant is ringing", "person", ringer.Name)
	e.notify(EventDoorbellRings, DoorbellRings{Person: ringer.Name})
}

// OccupantWaves emits incoming-wave when the wave targets self. Waves at
// anyone else are only logged, naming the target or "unknown" when the
// target id matches zero or several occupants.
func (e *Evaluator) OccupantWaves(snapshot Snapshot, from Occupant, targetID string) {
	self, ok := e.resolveSelf(snapshot)
	if ok && targetID != "" && self.ID == targetID {
		e.logger.Info("occupant waves at self", "person", from.Name)
		e.notify(EventIncomingWave, IncomingWave{Person: from.Name})
		return
	}

	target := unknownOccupant
	if snapshot != nil {
		matches := snapshot.FilterOccupants(func(o Occupant) bool {
			return o.ID == targetID
		})
		if len(matches) == 1 {
			target = matches[0].Name
		}
	}
	e.logger.Info("occupant waves", "person", from.Name, "target", target)
}

func (e *Evaluator) notify(event string, payload any) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(Notification{Event: event, Payload: payload})
}
