package tiles

import (
	"math"

	"synaptogram/internal/models"
)

// cellSize returns the pixel pitch of one grid cell, tile plus gutter
func (s *Store) cellSize() (int, int) {
	shape := s.tiles.TileShape()
	return shape[0] + s.grid.Padding, shape[1] + s.grid.Padding
}

// Rows returns the number of grid rows needed for all tiles
func (s *Store) Rows() int {
	return (len(s.tiles) + s.grid.NCols - 1) / s.grid.NCols
}

// Extent returns the bounding box of the rendered grid
func (s *Store) Extent() models.Extent {
	cw, ch := s.cellSize()
	return models.Extent{
		XMin: 0,
		XMax: float64(cw*s.grid.NCols + s.grid.Padding),
		YMin: 0,
		YMax: float64(ch*s.Rows() + s.grid.Padding),
	}
}

// TileIndex returns the point index of the tile drawn at display coordinates
// (x, y), or models.NoTile when the location falls in a gutter, outside the
// grid or past the last occupied cell.
func (s *Store) TileIndex(x, y float64) int {
	pos := s.ScreenPosition(x, y)
	if pos == models.NoTile {
		return models.NoTile
	}
	return s.At(pos)
}

// ScreenPosition returns the display position of the cell containing (x, y),
// or models.NoTile.
func (s *Store) ScreenPosition(x, y float64) int {
	if len(s.tiles) == 0 || math.IsNaN(x) || math.IsNaN(y) {
		return models.NoTile
	}

	shape := s.tiles.TileShape()
	cw, ch := s.cellSize()
	pad := float64(s.grid.Padding)

	xi := math.Floor((x - pad) / float64(cw))
	yi := math.Floor((y - pad) / float64(ch))
	if xi < 0 || yi < 0 || xi >= float64(s.grid.NCols) || yi >= float64(s.Rows()) {
		return models.NoTile
	}

	// Inside the cell pitch but in the gutter after the tile
	if x-pad-xi*float64(cw) >= float64(shape[0]) || y-pad-yi*float64(ch) >= float64(shape[1]) {
		return models.NoTile
	}

	pos := int(yi)*s.grid.NCols + int(xi)
	if pos >= len(s.tiles) {
		return models.NoTile
	}
	return pos
}

// CellBounds returns the pixel rectangle of the tile at display position pos
func (s *Store) CellBounds(pos int) models.Extent {
	shape := s.tiles.TileShape()
	cw, ch := s.cellSize()
	col := pos % s.grid.NCols
	row := pos / s.grid.NCols
	x := float64(s.grid.Padding + col*cw)
	y := float64(s.grid.Padding + row*ch)
	return models.Extent{
		XMin: x,
		XMax: x + float64(shape[0]),
		YMin: y,
		YMax: y + float64(shape[1]),
	}
}
