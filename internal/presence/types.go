package presence

// Point is an integer grid coordinate on a space map.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Polygon lists the grid cells that make up part of a private area.
// Membership is exact: a point is inside only when it is listed.
type Polygon []Point

// Contains reports whether p is one of the polygon's cells.
func (pg Polygon) Contains(p Point) bool {
	for _, c := range pg {
		if c == p {
			return true
		}
	}
	return false
}

// Area is a named private sub-area ("nook") of a map.
type Area struct {
	ID       string    `json:"id"`
	Polygons []Polygon `json:"polygons"`
}

// Contains reports whether any of the area's polygons lists p.
func (a Area) Contains(p Point) bool {
	for _, pg := range a.Polygons {
		if pg.Contains(p) {
			return true
		}
	}
	return false
}

// Map is one map of a space. Areas keep the order the service sent them in.
type Map struct {
	ID    string `json:"id"`
	Areas []Area `json:"areas"`
}

// Occupant is a participant currently present in the space.
// The snapshot owns occupant records; this package only reads copies.
type Occupant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	MapID   string `json:"map_id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	IsAlone bool   `json:"is_alone"`
	Away    bool   `json:"away"`
}

// Position returns the occupant's grid cell.
func (o Occupant) Position() Point {
	return Point{X: o.X, Y: o.Y}
}

// Snapshot is a read-only view of the live space state.
type Snapshot interface {
	// Occupant returns the occupant with the given id.
	Occupant(id string) (Occupant, bool)

	// FilterOccupants returns the occupants for which keep returns true,
	// in snapshot order.
	FilterOccupants(keep func(Occupant) bool) []Occupant

	// Map returns the map with the given id. ok is false while the map is
	// absent, which is normal during startup.
	Map(id string) (Map, bool)
}

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
