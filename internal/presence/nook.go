package presence

// ResolvePrivateArea returns the id of the private area the occupant stands in.
//
// ok is false when occupant is nil, when its map is absent or has no areas
// yet, or when no area lists the occupant's cell. Areas are tested in map
// order and the first match wins.
func ResolvePrivateArea(occupant *Occupant, snapshot Snapshot) (areaID string, ok bool) {
	if occupant == nil || snapshot == nil {
		return "", false
	}

	m, found := snapshot.Map(occupant.MapID)
	if !found || len(m.Areas) == 0 {
		return "", false
	}

	pos := occupant.Position()
	for _, area := range m.Areas {
		if area.Contains(pos) {
			return area.ID, true
		}
	}
	return "", false
}
