package presence

// fakeSnapshot is an in-memory Snapshot for tests.
type fakeSnapshot struct {
	occupants []Occupant
	maps      map[string]Map
}

func newFakeSnapshot(occupants ...Occupant) *fakeSnapshot {
	return &fakeSnapshot{
		occupants: occupants,
		maps:      make(map[string]Map),
	}
}

func (s *fakeSnapshot) withMap(m Map) *fakeSnapshot {
	s.maps[m.ID] = m
	return s
}

func (s *fakeSnapshot) Occupant(id string) (Occupant, bool) {
	for _, o := range s.occupants {
		if o.ID == id {
			return o, true
		}
	}
	return Occupant{}, false
}

func (s *fakeSnapshot) FilterOccupants(keep func(Occupant) bool) []Occupant {
	var out []Occupant
	for _, o := range s.occupants {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (s *fakeSnapshot) Map(id string) (Map, bool) {
	m, ok := s.maps[id]
	return m, ok
}

// move updates an occupant's position in place.
func (s *fakeSnapshot) move(id string, x, y int) {
	for i := range s.occupants {
		if s.occupants[i].ID == id {
			s.occupants[i].X = x
			s.occupants[i].Y = y
		}
	}
}

// remove drops an occupant, as when they leave the space.
func (s *fakeSnapshot) remove(id string) {
	for i := range s.occupants {
		if s.occupants[i].ID == id {
			s.occupants = append(s.occupants[:i:i], s.occupants[i+1:]...)
			return
		}
	}
}

func (s *fakeSnapshot) setAlone(id string, alone bool) {
	for i := range s.occupants {
		if s.occupants[i].ID == id {
			s.occupants[i].IsAlone = alone
		}
	}
}

func (s *fakeSnapshot) get(id string) Occupant {
	o, _ := s.Occupant(id)
	return o
}

// recordingNotifier captures notifications synchronously.
type recordingNotifier struct {
	got []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.got = append(r.got, n)
}

// officeMap has two nooks on map M1.
func officeMap() Map {
	return Map{
		ID: "M1",
		Areas: []Area{
			{ID: "nook-1", Polygons: []Polygon{{{X: 3, Y: 4}, {X: 3, Y: 5}, {X: 4, Y: 4}}}},
			{ID: "nook-2", Polygons: []Polygon{{{X: 10, Y: 10}}, {{X: 11, Y: 10}}}},
		},
	}
}
