package models

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Point represents a single detected punctum with metadata
type Point struct {
	// Index is the row of this point in its table and the index of its tile
	Index int

	// NodeIndex is the position of the point set in the source file
	NodeIndex int

	// Marker is the detection channel the point belongs to, e.g. "CtBP2"
	Marker string

	// Position is the physical position of the point
	Position r3.Vec

	// Radius is the physical radius along each axis
	Radius r3.Vec

	// Voxel is the position in voxel indices, computed from Position.
	// It may lie outside the volume.
	Voxel [3]int
}

// PointTable is an ordered sequence of points. Row order defines the
// canonical point index used by tiles, labels and selection.
type PointTable []Point

// TileStack holds one tile per point, sharing the point table's index space
type TileStack []*Volume

// TileShape returns the shape of the tiles in the stack, or zeros when empty
func (s TileStack) TileShape() [4]int {
	if len(s) == 0 {
		return [4]int{}
	}
	return s[0].Shape()
}

// Selection is the snapshot of the selected point handed to consumers
type Selection struct {
	// Index is the selected point index
	Index int

	// Point is a copy of the selected row
	Point Point
}
