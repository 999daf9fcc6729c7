// Package reader loads a dataset described by a manifest: the multichannel
// volume, the detected points and the tiles around them.
package reader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"synaptogram/internal/models"
	"synaptogram/pkg/extraction"
)

// Reader loads a dataset from the directory holding its manifest
type Reader struct {
	manifest *Manifest
	fsys     fs.FS
	workers  int

	volume *models.Volume
}

// Open reads the manifest at path. Workers bounds how many channels are
// decoded at once; values below 1 decode one channel at a time.
func Open(path string, workers int) (*Reader, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return New(m, os.DirFS(filepath.Dir(path)), workers), nil
}

// New creates a reader over fsys, which holds the files the manifest names
func New(m *Manifest, fsys fs.FS, workers int) *Reader {
	if workers < 1 {
		workers = 1
	}
	return &Reader{manifest: m, fsys: fsys, workers: workers}
}

// Info returns the volume calibration
func (r *Reader) Info() models.VolumeInfo {
	return r.manifest.Info()
}

// LoadVolume decodes every channel of the volume. The result is cached.
func (r *Reader) LoadVolume(ctx context.Context) (*models.Volume, models.VolumeInfo, error) {
	info := r.Info()
	if r.volume != nil {
		return r.volume, info, nil
	}

	nx, ny, nz := info.NVoxels[0], info.NVoxels[1], info.NVoxels[2]
	volume := models.NewVolume(nx, ny, nz, len(r.manifest.Channels))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for c, source := range r.manifest.Channels {
		c, source := c, source
		g.Go(func() error {
			if err := r.loadChannel(ctx, volume, c, source); err != nil {
				return fmt.Errorf("channel %q: %w", source.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, info, err
	}

	r.volume = volume
	return volume, info, nil
}

// loadChannel fills channel c of volume from its z-plane images. Planes
// larger than the volume are cropped to it.
func (r *Reader) loadChannel(ctx context.Context, volume *models.Volume, c int, source ChannelSource) error {
	planes, err := doublestar.Glob(r.fsys, source.Planes)
	if err != nil {
		return fmt.Errorf("invalid planes pattern %q: %w", source.Planes, err)
	}
	sort.Strings(planes)
	if len(planes) < volume.Depth {
		return fmt.Errorf("pattern %q matched %d planes, need %d", source.Planes, len(planes), volume.Depth)
	}

	for z := 0; z < volume.Depth; z++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := r.decode(planes[z])
		if err != nil {
			return err
		}
		b := img.Bounds()
		if b.Dx() < volume.Width || b.Dy() < volume.Height {
			return fmt.Errorf("plane %s is %dx%d, need at least %dx%d", planes[z], b.Dx(), b.Dy(), volume.Width, volume.Height)
		}
		for y := 0; y < volume.Height; y++ {
			for x := 0; x < volume.Width; x++ {
				volume.Set(x, y, z, c, intensity(img, b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return nil
}

func (r *Reader) decode(name string) (image.Image, error) {
	f, err := r.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	if ext := strings.ToLower(filepath.Ext(name)); ext == ".tif" || ext == ".tiff" {
		img, err = tiff.Decode(f)
	} else {
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return img, nil
}

// intensity returns the 16-bit gray value of a pixel
func intensity(img image.Image, x, y int) float64 {
	switch im := img.(type) {
	case *image.Gray16:
		return float64(im.Gray16At(x, y).Y)
	case *image.Gray:
		return float64(im.GrayAt(x, y).Y) * 257
	default:
		return float64(color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y)
	}
}

// LoadPoints returns the points of every point set whose marker matches.
// Voxel indices are computed from the physical coordinates.
func (r *Reader) LoadPoints(marker string) (models.PointTable, error) {
	info := r.Info()
	var table models.PointTable
	found := false

	for node, source := range r.manifest.Points {
		if r.manifest.Marker(source.Name) != marker {
			continue
		}
		found = true

		points, err := r.readPoints(source.File)
		if err != nil {
			return nil, fmt.Errorf("point set %q: %w", source.Name, err)
		}
		for _, p := range points {
			p.Index = len(table)
			p.NodeIndex = node
			p.Marker = marker
			p.Voxel = info.ToVoxel(p.Position)
			table = append(table, p)
		}
	}

	if !found {
		return nil, fmt.Errorf("no point set for marker %q", marker)
	}
	return table, nil
}

// Markers returns the distinct marker names in manifest order
func (r *Reader) Markers() []string {
	var markers []string
	seen := make(map[string]bool)
	for _, source := range r.manifest.Points {
		m := r.manifest.Marker(source.Name)
		if !seen[m] {
			seen[m] = true
			markers = append(markers, m)
		}
	}
	return markers
}

func (r *Reader) readPoints(name string) ([]models.Point, error) {
	f, err := r.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"x", "y", "z"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var points []models.Point
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		value := func(col string) (float64, error) {
			i, ok := cols[col]
			if !ok {
				return 0, nil
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return 0, fmt.Errorf("line %d column %s: %w", line, col, err)
			}
			return v, nil
		}

		var p models.Point
		for _, field := range []struct {
			col string
			dst *float64
		}{
			{"x", &p.Position.X},
			{"y", &p.Position.Y},
			{"z", &p.Position.Z},
			{"radius_x", &p.Radius.X},
			{"radius_y", &p.Radius.Y},
			{"radius_z", &p.Radius.Z},
		} {
			v, err := value(field.col)
			if err != nil {
				return nil, err
			}
			*field.dst = v
		}
		// A single radius applies to every axis
		if _, ok := cols["radius_y"]; !ok {
			p.Radius = r3.Vec{X: p.Radius.X, Y: p.Radius.X, Z: p.Radius.X}
		}
		points = append(points, p)
	}
	return points, nil
}

// ExtractTileStack crops a tile of side 2*halfSize around every point.
// Progress, when not nil, is called once per tile.
func (r *Reader) ExtractTileStack(ctx context.Context, points models.PointTable, halfSize int, progress func()) (models.TileStack, error) {
	volume, _, err := r.LoadVolume(ctx)
	if err != nil {
		return nil, err
	}
	return extraction.ExtractStack(volume, points, halfSize, progress), nil
}
