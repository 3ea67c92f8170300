package model

// MapID identifies a map in the config and in client-facing URLs.
type MapID string

// OfficeID identifies a loot delivery office within a map.
type OfficeID string

// Point is an integer grid point. Road endpoints, buildings and offices
// live on the integer grid.
type Point struct {
	X int
	Y int
}

// Position is a real-valued point. Dogs and lost items move in
// continuous coordinates on top of the integer road grid.
type Position struct {
	X float64
	Y float64
}

// Offset is the rendering offset of an office relative to its position.
type Offset struct {
	DX int
	DY int
}

// Building is an axis-aligned decorative rectangle.
type Building struct {
	X int
	Y int
	W int
	H int
}

// Orientation tells whether a road runs along the X or the Y axis.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)
