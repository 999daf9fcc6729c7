package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// NoTile is the index returned when a screen location or a selection does not
// resolve to any tile.
const NoTile = -1

// Volume represents a 4D intensity array laid out as [x, y, z, channel]
type Volume struct {
	// Data is the volume data as a 1D array, x varying fastest and channel slowest
	Data []float64

	// Width, Height, Depth are the spatial dimensions in voxels
	Width, Height, Depth int

	// Channels is the number of channels
	Channels int
}

// NewVolume allocates a zero-filled volume
func NewVolume(width, height, depth, channels int) *Volume {
	return &Volume{
		Data:     make([]float64, width*height*depth*channels),
		Width:    width,
		Height:   height,
		Depth:    depth,
		Channels: channels,
	}
}

// Shape returns the spatial dimensions followed by the channel count
func (v *Volume) Shape() [4]int {
	return [4]int{v.Width, v.Height, v.Depth, v.Channels}
}

// Index returns the offset of voxel (x, y, z) in channel c
func (v *Volume) Index(x, y, z, c int) int {
	return ((c*v.Depth+z)*v.Height+y)*v.Width + x
}

// At returns the value of voxel (x, y, z) in channel c
func (v *Volume) At(x, y, z, c int) float64 {
	return v.Data[v.Index(x, y, z, c)]
}

// Set stores the value of voxel (x, y, z) in channel c
func (v *Volume) Set(x, y, z, c int, value float64) {
	v.Data[v.Index(x, y, z, c)] = value
}

// Channel returns the contiguous data of a single channel
func (v *Volume) Channel(c int) []float64 {
	n := v.Width * v.Height * v.Depth
	return v.Data[c*n : (c+1)*n]
}

// Channel describes one acquisition channel of a volume
type Channel struct {
	Name string `yaml:"name"`
}

// VolumeInfo holds the physical calibration of a volume
type VolumeInfo struct {
	// Lower is the physical position of the first voxel
	Lower r3.Vec

	// VoxelSize is the physical size of a voxel along each axis
	VoxelSize r3.Vec

	// NVoxels is the number of voxels along x, y and z
	NVoxels [3]int

	// Channels lists the channels in storage order
	Channels []Channel
}

// ChannelNames returns the channel names in storage order
func (info VolumeInfo) ChannelNames() []string {
	names := make([]string, len(info.Channels))
	for i, c := range info.Channels {
		names[i] = c.Name
	}
	return names
}

// ChannelIndex returns the storage position of the named channel
func (info VolumeInfo) ChannelIndex(name string) (int, error) {
	for i, c := range info.Channels {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("channel %q not found in %v", name, info.ChannelNames())
}

// VoxelSizeAlong returns the voxel size along axis "x", "y" or "z"
func (info VolumeInfo) VoxelSizeAlong(axis string) (float64, error) {
	switch axis {
	case "x", "X":
		return info.VoxelSize.X, nil
	case "y", "Y":
		return info.VoxelSize.Y, nil
	case "z", "Z":
		return info.VoxelSize.Z, nil
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}

// ToVoxel converts a physical position into the nearest voxel index.
// The result may fall outside the volume.
func (info VolumeInfo) ToVoxel(p r3.Vec) [3]int {
	return [3]int{
		toVoxel(p.X, info.Lower.X, info.VoxelSize.X),
		toVoxel(p.Y, info.Lower.Y, info.VoxelSize.Y),
		toVoxel(p.Z, info.Lower.Z, info.VoxelSize.Z),
	}
}

func toVoxel(p, lower, size float64) int {
	if size == 0 {
		return 0
	}
	return int(math.RoundToEven((p - lower) / size))
}

// Extent is an axis-aligned rectangle in display coordinates
type Extent struct {
	XMin, XMax, YMin, YMax float64
}
