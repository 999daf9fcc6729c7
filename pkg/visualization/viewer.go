// Package visualization defines what renderers can ask of the things they draw
// and provides the single-image variant over a volume.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"synaptogram/internal/models"
)

// Renderable is anything drawn into a view with known bounds
type Renderable interface {
	// Extent returns the bounds of the drawing in display coordinates
	Extent() models.Extent
}

// TiledRenderable is a grid of tiles drawn in display order
type TiledRenderable interface {
	Renderable

	// Ordering returns the point index drawn at each grid position
	Ordering() []int

	// TileIndex returns the point index under (x, y), or models.NoTile
	TileIndex(x, y float64) int

	// CellBounds returns the bounds of the tile at a grid position
	CellBounds(pos int) models.Extent
}

// Viewer presents a single volume as an image in physical coordinates
type Viewer struct {
	// volume holds the multichannel volume data
	volume *models.Volume

	// info holds the physical calibration of the volume
	info models.VolumeInfo
}

var _ Renderable = (*Viewer)(nil)

// NewViewer creates a new single-image viewer
func NewViewer(volume *models.Volume, info models.VolumeInfo) *Viewer {
	return &Viewer{
		volume: volume,
		info:   info,
	}
}

// Extent returns the x/y footprint of the volume in physical units
func (v *Viewer) Extent() models.Extent {
	return models.Extent{
		XMin: v.info.Lower.X,
		XMax: v.info.Lower.X + float64(v.volume.Width)*v.info.VoxelSize.X,
		YMin: v.info.Lower.Y,
		YMax: v.info.Lower.Y + float64(v.volume.Height)*v.info.VoxelSize.Y,
	}
}

// Focus returns a square window of half-width span centered on a point, used
// to zoom the overview onto the selection.
func Focus(p models.Point, span float64) models.Extent {
	return models.Extent{
		XMin: p.Position.X - span,
		XMax: p.Position.X + span,
		YMin: p.Position.Y - span,
		YMax: p.Position.Y + span,
	}
}

// ExtractSlice extracts the XY plane at depth z of one channel, scaled so the
// brightest voxel of the plane is white.
func (v *Viewer) ExtractSlice(channel string, z int) (*image.Gray16, error) {
	c, err := v.info.ChannelIndex(channel)
	if err != nil {
		return nil, err
	}
	if z < 0 || z >= v.volume.Depth {
		return nil, fmt.Errorf("position %d exceeds depth %d", z, v.volume.Depth)
	}

	plane := make([]float64, v.volume.Width*v.volume.Height)
	for y := 0; y < v.volume.Height; y++ {
		for x := 0; x < v.volume.Width; x++ {
			plane[y*v.volume.Width+x] = v.volume.At(x, y, z, c)
		}
	}
	return toGray16(plane, v.volume.Width, v.volume.Height), nil
}

// Project returns the maximum projection along z of one channel of a tile
func Project(tile *models.Volume, c int) (*image.Gray16, error) {
	if c < 0 || c >= tile.Channels {
		return nil, fmt.Errorf("channel %d out of range [0, %d)", c, tile.Channels)
	}

	plane := make([]float64, tile.Width*tile.Height)
	for i := range plane {
		plane[i] = math.Inf(-1)
	}
	for z := 0; z < tile.Depth; z++ {
		for y := 0; y < tile.Height; y++ {
			for x := 0; x < tile.Width; x++ {
				i := y*tile.Width + x
				plane[i] = math.Max(plane[i], tile.At(x, y, z, c))
			}
		}
	}
	return toGray16(plane, tile.Width, tile.Height), nil
}

func toGray16(plane []float64, width, height int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, width, height))
	if len(plane) == 0 {
		return img
	}
	hi := floats.Max(plane)
	if hi <= 0 {
		return img
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			value := uint16(math.Max(0, math.Min(65535, plane[y*width+x]/hi*65535)))
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img
}

// SaveSlice saves an extracted slice as a JPEG image
func SaveSlice(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}
