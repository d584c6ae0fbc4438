package realtime

import (
	"sync"

	"github.com/tidwall/gjson"

	"github.com/nerrad567/gray-logic-gather/internal/presence"
)

// store is the live view of one space.
//
// Occupants keep join order and maps keep the key order of the frame that
// delivered them, so "first match wins" lookups are stable.
type store struct {
	mu      sync.RWMutex
	order   []string
	players map[string]presence.Occupant
	maps    map[string]presence.Map
	events  uint64
}

func newStore() *store {
	return &store{
		players: make(map[string]presence.Occupant),
		maps:    make(map[string]presence.Map),
	}
}

// reset empties the store at the start of a new session.
func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.players = make(map[string]presence.Occupant)
	s.maps = make(map[string]presence.Map)
	s.events = 0
}

// applySpace merges a "space" frame. Known occupants are updated in place,
// new ones are appended. Each map in the frame replaces the stored one.
func (s *store) applySpace(frame gjson.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame.Get("players").ForEach(func(key, value gjson.Result) bool {
		s.upsertLocked(key.String(), value)
		return true
	})
	frame.Get("maps").ForEach(func(key, value gjson.Result) bool {
		id := key.String()
		s.maps[id] = mapFromJSON(id, value)
		return true
	})
}

// applyEvent updates the snapshot for one event and returns the affected
// occupant as it stands afterwards.
func (s *store) applyEvent(name, playerID string, data gjson.Result) (presence.Occupant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events++

	if playerID == "" {
		return presence.Occupant{}, false
	}

	switch name {
	case EventPlayerJoins, EventPlayerMoves, EventPlayerSetsIsAlone, EventPlayerSetsAway:
		return s.upsertLocked(playerID, data), true
	case EventPlayerExits:
		o, ok := s.players[playerID]
		s.removeLocked(playerID)
		return o, ok
	default:
		o, ok := s.players[playerID]
		return o, ok
	}
}

func (s *store) upsertLocked(id string, value gjson.Result) presence.Occupant {
	base, known := s.players[id]
	o := occupantFromJSON(id, value, base)
	if !known {
		s.order = append(s.order, id)
	}
	s.players[id] = o
	return o
}

func (s *store) removeLocked(id string) {
	if _, ok := s.players[id]; !ok {
		return
	}
	delete(s.players, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// Occupant returns the occupant with the given id.
func (s *store) Occupant(id string) (presence.Occupant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.players[id]
	return o, ok
}

// FilterOccupants returns the occupants accepted by keep, in join order.
// keep runs without the store lock held.
func (s *store) FilterOccupants(keep func(presence.Occupant) bool) []presence.Occupant {
	s.mu.RLock()
	all := make([]presence.Occupant, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.players[id])
	}
	s.mu.RUnlock()

	out := all[:0]
	for _, o := range all {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

// Map returns the map with the given id.
func (s *store) Map(id string) (presence.Map, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.maps[id]
	return m, ok
}

func (s *store) counts() (occupants, maps int, events uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players), len(s.maps), s.events
}

// occupantFromJSON overlays the fields present in value onto base.
func occupantFromJSON(id string, value gjson.Result, base presence.Occupant) presence.Occupant {
	o := base
	o.ID = id
	if v := value.Get("name"); v.Exists() {
		o.Name = v.String()
	}
	if v := value.Get("map"); v.Exists() {
		o.MapID = v.String()
	}
	if v := value.Get("x"); v.Exists() {
		o.X = int(v.Int())
	}
	if v := value.Get("y"); v.Exists() {
		o.Y = int(v.Int())
	}
	if v := value.Get("isAlone"); v.Exists() {
		o.IsAlone = v.Bool()
	}
	if v := value.Get("away"); v.Exists() {
		o.Away = v.Bool()
	}
	return o
}

// mapFromJSON reads a map's private areas. An area may carry a single
// polygon under nookCoords.coords, further polygons under
// nookCoords.polygons, or both.
func mapFromJSON(id string, value gjson.Result) presence.Map {
	m := presence.Map{ID: id}
	value.Get("nooks").ForEach(func(key, nook gjson.Result) bool {
		area := presence.Area{ID: key.String()}
		if coords := nook.Get("nookCoords.coords"); coords.IsArray() {
			area.Polygons = append(area.Polygons, polygonFromJSON(coords))
		}
		nook.Get("nookCoords.polygons").ForEach(func(_, pg gjson.Result) bool {
			area.Polygons = append(area.Polygons, polygonFromJSON(pg))
			return true
		})
		m.Areas = append(m.Areas, area)
		return true
	})
	return m
}

func polygonFromJSON(coords gjson.Result) presence.Polygon {
	var pg presence.Polygon
	coords.ForEach(func(_, c gjson.Result) bool {
		pg = append(pg, presence.Point{X: int(c.Get("x").Int()), Y: int(c.Get("y").Int())})
		return true
	})
	return pg
}
