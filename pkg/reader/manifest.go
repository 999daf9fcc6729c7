package reader

import (
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"synaptogram/internal/models"
)

// Manifest describes a dataset on disk: the physical extent of the volume,
// one z-plane image stack per channel and one CSV file per point set.
type Manifest struct {
	// ExtMin and ExtMax are the physical bounds of the volume
	ExtMin [3]float64 `yaml:"extMin"`
	ExtMax [3]float64 `yaml:"extMax"`

	// NVoxels is the number of voxels along x, y and z
	NVoxels [3]int `yaml:"nVoxels"`

	// Channels lists the channels in storage order
	Channels []ChannelSource `yaml:"channels"`

	// Points lists the point sets
	Points []PointSource `yaml:"points"`

	// MarkerAliases renames point sets to marker names
	MarkerAliases map[string]string `yaml:"markerAliases"`
}

// ChannelSource locates the z-planes of one channel
type ChannelSource struct {
	Name string `yaml:"name"`

	// Planes is a glob, relative to the manifest, matching one image per
	// z-plane. Matches are read in lexical order.
	Planes string `yaml:"planes"`
}

// PointSource locates one point set
type PointSource struct {
	Name string `yaml:"name"`

	// File is a CSV file relative to the manifest with columns
	// x, y, z, radius_x and optionally radius_y, radius_z
	File string `yaml:"file"`
}

// LoadManifest reads and validates a manifest file
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}

	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("error parsing manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that the manifest describes a usable volume
func (m *Manifest) Validate() error {
	for d, n := range m.NVoxels {
		if n <= 0 {
			return fmt.Errorf("nVoxels[%d] must be positive, got %d", d, n)
		}
		if m.ExtMax[d] == m.ExtMin[d] {
			return fmt.Errorf("extent along axis %d is empty", d)
		}
	}
	if len(m.Channels) == 0 {
		return fmt.Errorf("manifest lists no channels")
	}
	seen := make(map[string]bool)
	for _, c := range m.Channels {
		if c.Name == "" || c.Planes == "" {
			return fmt.Errorf("channel entries need a name and a planes pattern")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate channel %q", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Info returns the volume calibration. The voxel size is the extent divided
// by the voxel count along each axis.
func (m *Manifest) Info() models.VolumeInfo {
	channels := make([]models.Channel, len(m.Channels))
	for i, c := range m.Channels {
		channels[i] = models.Channel{Name: c.Name}
	}
	size := func(d int) float64 {
		return math.Abs(m.ExtMax[d]-m.ExtMin[d]) / float64(m.NVoxels[d])
	}
	return models.VolumeInfo{
		Lower:     r3.Vec{X: m.ExtMin[0], Y: m.ExtMin[1], Z: m.ExtMin[2]},
		VoxelSize: r3.Vec{X: size(0), Y: size(1), Z: size(2)},
		NVoxels:   m.NVoxels,
		Channels:  channels,
	}
}

// Marker returns the marker name of a point set
func (m *Manifest) Marker(name string) string {
	if alias, ok := m.MarkerAliases[name]; ok {
		return alias
	}
	return name
}
