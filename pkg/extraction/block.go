// Package extraction crops fixed-size blocks around points of a volume.
package extraction

import (
	"synaptogram/internal/models"
)

// ExtractBlock extracts a cube of side 2*halfSize centered on center.
//
// The window is clipped to the volume independently along each axis and the
// result is zero-padded on the high side, so the returned block always has
// shape (2*halfSize, 2*halfSize, 2*halfSize, channels). Centers outside the
// volume never fail; they yield a partially or fully zero block.
func ExtractBlock(volume *models.Volume, center [3]int, halfSize int) *models.Volume {
	size := 2 * halfSize
	block := models.NewVolume(size, size, size, volume.Channels)

	dims := [3]int{volume.Width, volume.Height, volume.Depth}
	var lower, extent [3]int
	for axis := 0; axis < 3; axis++ {
		lb := clip(center[axis]-halfSize, 0, dims[axis])
		ub := clip(center[axis]+halfSize, 0, dims[axis])
		lower[axis] = lb
		extent[axis] = ub - lb
	}

	// Copy the clipped window into the low corner of the block
	for c := 0; c < volume.Channels; c++ {
		for z := 0; z < extent[2]; z++ {
			for y := 0; y < extent[1]; y++ {
				src := volume.Index(lower[0], lower[1]+y, lower[2]+z, c)
				dst := block.Index(0, y, z, c)
				copy(block.Data[dst:dst+extent[0]], volume.Data[src:src+extent[0]])
			}
		}
	}

	return block
}

// ExtractStack extracts one block per point in table order. The optional
// progress callback is invoked after each block.
func ExtractStack(volume *models.Volume, points models.PointTable, halfSize int, progress func()) models.TileStack {
	stack := make(models.TileStack, len(points))
	for i, p := range points {
		stack[i] = ExtractBlock(volume, p.Voxel, halfSize)
		if progress != nil {
			progress()
		}
	}
	return stack
}

func clip(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
