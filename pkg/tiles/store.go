// Package tiles holds the stack of extracted tiles, ranks them for display
// and maps between display positions and grid coordinates.
package tiles

import (
	"errors"
	"fmt"
	"sort"

	"synaptogram/internal/models"
)

// ErrUnknownChannel is returned when a ranking channel is not part of the volume
var ErrUnknownChannel = errors.New("unknown channel")

// Ranking holds the parameters of the tile ordering
type Ranking struct {
	// Channel is the channel ranked on; empty ranks on all channels jointly
	Channel string

	// Value is the aggregation applied to the masked tile
	Value Aggregation

	// Radius is the physical radius of the sphere mask
	Radius float64
}

// Grid describes the on-screen tile layout
type Grid struct {
	// NCols is the number of tiles per grid row
	NCols int

	// Padding is the gutter in pixels around and between tiles
	Padding int
}

// OrderingListener is called with the new ordering after each recompute
type OrderingListener func(ordering []int)

// Store holds the tiles of a point table and their display ordering.
// It is not safe for concurrent use.
type Store struct {
	tiles models.TileStack
	info  models.VolumeInfo
	grid  Grid

	ranking Ranking

	// ordering is the cached permutation; nil means stale
	ordering  []int
	positions []int

	listeners []OrderingListener
}

// NewStore creates a store over tiles. The ranking parameters are validated
// immediately; the ordering itself is computed on first use.
func NewStore(tiles models.TileStack, info models.VolumeInfo, grid Grid, ranking Ranking) (*Store, error) {
	if grid.NCols <= 0 {
		return nil, fmt.Errorf("grid must have at least one column, got %d", grid.NCols)
	}
	if grid.Padding < 0 {
		return nil, fmt.Errorf("grid padding must be non-negative, got %d", grid.Padding)
	}
	if info.VoxelSize.X <= 0 {
		return nil, fmt.Errorf("voxel size along x must be positive, got %f", info.VoxelSize.X)
	}

	s := &Store{
		tiles: tiles,
		info:  info,
		grid:  grid,
	}
	if err := s.validate(ranking); err != nil {
		return nil, err
	}
	s.ranking = ranking
	return s, nil
}

// Tiles returns the tile stack
func (s *Store) Tiles() models.TileStack {
	return s.tiles
}

// Len returns the number of tiles
func (s *Store) Len() int {
	return len(s.tiles)
}

// ChannelNames returns the channel names of the tiles
func (s *Store) ChannelNames() []string {
	return s.info.ChannelNames()
}

// Grid returns the grid layout
func (s *Store) Grid() Grid {
	return s.grid
}

// Ranking returns the current ranking parameters
func (s *Store) Ranking() Ranking {
	return s.ranking
}

// OnOrderingChanged registers a listener called after every recompute.
// Listeners run in registration order.
func (s *Store) OnOrderingChanged(listener OrderingListener) {
	s.listeners = append(s.listeners, listener)
}

// SetRanking replaces all ranking parameters at once
func (s *Store) SetRanking(ranking Ranking) error {
	if err := s.validate(ranking); err != nil {
		return err
	}
	s.ranking = ranking
	s.invalidate()
	return nil
}

// SetSortChannel changes the ranked channel; empty ranks all channels jointly
func (s *Store) SetSortChannel(channel string) error {
	r := s.ranking
	r.Channel = channel
	return s.SetRanking(r)
}

// SetSortValue changes the aggregation by name
func (s *Store) SetSortValue(name string) error {
	a, err := ParseAggregation(name)
	if err != nil {
		return err
	}
	r := s.ranking
	r.Value = a
	return s.SetRanking(r)
}

// SetSortRadius changes the physical radius of the sphere mask
func (s *Store) SetSortRadius(radius float64) error {
	r := s.ranking
	r.Radius = radius
	return s.SetRanking(r)
}

func (s *Store) validate(r Ranking) error {
	if _, err := ParseAggregation(string(r.Value)); err != nil {
		return err
	}
	if r.Channel != "" {
		if _, err := s.info.ChannelIndex(r.Channel); err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownChannel, err)
		}
	}
	if r.Radius < 0 {
		return fmt.Errorf("sort radius must be non-negative, got %f", r.Radius)
	}
	return nil
}

func (s *Store) invalidate() {
	s.ordering = nil
	s.positions = nil
}

// Ordering returns the display ordering, recomputing it if the ranking
// parameters changed since the last call.
func (s *Store) Ordering() []int {
	if s.ordering == nil {
		ordering, err := s.ComputeOrdering()
		if err != nil {
			// Parameters are validated on every mutation
			panic(fmt.Sprintf("tiles: ranking became invalid: %v", err))
		}
		s.ordering = ordering
		s.positions = make([]int, len(ordering))
		for pos, i := range ordering {
			s.positions[i] = pos
		}
		for _, listener := range s.listeners {
			listener(ordering)
		}
	}
	return s.ordering
}

// ComputeOrdering ranks every tile by the aggregation of its sphere-masked
// intensities and returns the ascending stable argsort of those scores.
func (s *Store) ComputeOrdering() ([]int, error) {
	scores, err := s.Scores()
	if err != nil {
		return nil, err
	}

	ordering := make([]int, len(scores))
	for i := range ordering {
		ordering[i] = i
	}
	sort.SliceStable(ordering, func(a, b int) bool {
		return scores[ordering[a]] < scores[ordering[b]]
	})
	return ordering, nil
}

// Scores returns the ranking score of every tile in point order
func (s *Store) Scores() ([]float64, error) {
	if err := s.validate(s.ranking); err != nil {
		return nil, err
	}
	if len(s.tiles) == 0 {
		return []float64{}, nil
	}

	shape := s.tiles.TileShape()
	mask := SphereMask(shape[0], shape[1], shape[2], s.ranking.Radius/s.info.VoxelSize.X)
	n := len(mask)

	channel := -1
	if s.ranking.Channel != "" {
		channel, _ = s.info.ChannelIndex(s.ranking.Channel)
	}

	var buf []float64
	if channel >= 0 {
		buf = make([]float64, n)
	} else {
		buf = make([]float64, n*shape[3])
	}

	scores := make([]float64, len(s.tiles))
	for i, tile := range s.tiles {
		if channel >= 0 {
			data := tile.Channel(channel)
			for j := range buf {
				buf[j] = data[j] * mask[j]
			}
		} else {
			// The mask broadcasts across channels
			for j, v := range tile.Data {
				buf[j] = v * mask[j%n]
			}
		}
		score, err := s.ranking.Value.Reduce(buf)
		if err != nil {
			return nil, err
		}
		scores[i] = score
	}
	return scores, nil
}

// Position returns the display position of point index i, or models.NoTile
func (s *Store) Position(i int) int {
	s.Ordering()
	if i < 0 || i >= len(s.positions) {
		return models.NoTile
	}
	return s.positions[i]
}

// At returns the point index shown at display position pos, or models.NoTile
func (s *Store) At(pos int) int {
	ordering := s.Ordering()
	if pos < 0 || pos >= len(ordering) {
		return models.NoTile
	}
	return ordering[pos]
}

// LabelPositions maps each label's point indices to display positions,
// sorted ascending.
func (s *Store) LabelPositions(labels map[string][]int) map[string][]int {
	result := make(map[string][]int, len(labels))
	for name, indices := range labels {
		positions := make([]int, 0, len(indices))
		for _, i := range indices {
			if pos := s.Position(i); pos != models.NoTile {
				positions = append(positions, pos)
			}
		}
		sort.Ints(positions)
		result[name] = positions
	}
	return result
}
