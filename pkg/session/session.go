// Package session ties a tile store, a label set and a selection controller
// into one curation session and persists its labels.
package session

import (
	"context"
	"fmt"

	"synaptogram/internal/models"
	"synaptogram/pkg/labels"
	"synaptogram/pkg/selection"
	"synaptogram/pkg/tiles"
)

// VolumeReader loads the data a session reviews
type VolumeReader interface {
	LoadVolume(ctx context.Context) (*models.Volume, models.VolumeInfo, error)
	LoadPoints(marker string) (models.PointTable, error)
	ExtractTileStack(ctx context.Context, points models.PointTable, halfSize int, progress func()) (models.TileStack, error)
}

// Options configures Open
type Options struct {
	Marker   string
	HalfSize int
	Grid     tiles.Grid
	Ranking  tiles.Ranking

	// Store persists labels; nil keeps them in memory only
	Store Store

	// Progress, when set, is called with the tile count before extraction
	// and returns the per-tile callback
	Progress func(total int) func()
}

// Session owns the state of one review. It is not safe for concurrent use.
type Session struct {
	Info       models.VolumeInfo
	Volume     *models.Volume
	Points     models.PointTable
	Tiles      *tiles.Store
	Labels     *labels.Set
	Controller *selection.Controller

	tracker *labels.Tracker
	store   Store
	dirty   bool

	listeners map[EventType][]EventListener
}

// Open loads the volume and points through r and builds a session
func Open(ctx context.Context, r VolumeReader, opts Options) (*Session, error) {
	volume, info, err := r.LoadVolume(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load volume: %w", err)
	}
	points, err := r.LoadPoints(opts.Marker)
	if err != nil {
		return nil, fmt.Errorf("failed to load points: %w", err)
	}

	var tick func()
	if opts.Progress != nil {
		tick = opts.Progress(len(points))
	}
	stack, err := r.ExtractTileStack(ctx, points, opts.HalfSize, tick)
	if err != nil {
		return nil, fmt.Errorf("failed to extract tiles: %w", err)
	}

	s, err := New(info, points, stack, opts.Grid, opts.Ranking, opts.Store)
	if err != nil {
		return nil, err
	}
	s.Volume = volume
	return s, nil
}

// New builds a session over already extracted tiles. Labels previously saved
// in store are restored; indices outside the point table are dropped. If the
// restored labels carry no selection, the first tile in display order is
// selected without notifications.
func New(info models.VolumeInfo, points models.PointTable, stack models.TileStack, grid tiles.Grid, ranking tiles.Ranking, store Store) (*Session, error) {
	if len(points) != len(stack) {
		return nil, fmt.Errorf("tile count %d does not match point count %d", len(stack), len(points))
	}

	tileStore, err := tiles.NewStore(stack, info, grid, ranking)
	if err != nil {
		return nil, fmt.Errorf("invalid tile ranking: %w", err)
	}

	saved := labels.Snapshot{}
	if store != nil {
		loaded, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to restore labels: %w", err)
		}
		saved = clamp(loaded, len(points))
	}

	set := labels.FromSnapshot(saved)
	controller, err := selection.NewController(tileStore, set, points)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Info:       info,
		Points:     points,
		Tiles:      tileStore,
		Labels:     set,
		Controller: controller,
		tracker:    labels.NewTracker(set.Snapshot()),
		store:      store,
		listeners:  make(map[EventType][]EventListener),
	}

	set.Subscribe(func(c labels.Change) {
		s.Emit(EventLabelsChanged, c)
		s.updateDirty()
	})
	controller.OnSelectionChanged(func(sel *models.Selection) {
		s.Emit(EventSelectionChanged, sel)
	})
	controller.OnRedraw(func() {
		s.Emit(EventRedraw, nil)
	})
	tileStore.OnOrderingChanged(func(ordering []int) {
		s.Emit(EventOrderingChanged, ordering)
	})

	if _, ok := set.Selection(); !ok {
		controller.SelectFirst()
	}
	return s, nil
}

func clamp(snap labels.Snapshot, n int) labels.Snapshot {
	out := make(labels.Snapshot, len(snap))
	for name, indices := range snap {
		for _, i := range indices {
			if i >= 0 && i < n {
				out[name] = append(out[name], i)
			}
		}
	}
	return out
}

func (s *Session) updateDirty() {
	dirty := s.Dirty()
	if dirty != s.dirty {
		s.dirty = dirty
		s.Emit(EventDirtyChanged, dirty)
	}
}

// Dirty reports whether labels changed since the last save or restore
func (s *Session) Dirty() bool {
	return s.tracker.Dirty(s.Labels.Snapshot())
}

// Snapshot returns the current labels
func (s *Session) Snapshot() labels.Snapshot {
	return s.Labels.Snapshot()
}

// Save persists the labels and makes them the clean baseline
func (s *Session) Save() error {
	snap := s.Labels.Snapshot()
	if s.store != nil {
		if err := s.store.Save(snap); err != nil {
			return fmt.Errorf("failed to save labels: %w", err)
		}
	}
	s.tracker.MarkSaved(snap)
	s.Emit(EventSaved, snap)
	s.updateDirty()
	return nil
}

// Close releases the label store
func (s *Session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// SetSortChannel changes the ranked channel and recomputes the ordering
func (s *Session) SetSortChannel(channel string) error {
	return s.rerank(func() error { return s.Tiles.SetSortChannel(channel) })
}

// SetSortValue changes the aggregation and recomputes the ordering
func (s *Session) SetSortValue(name string) error {
	return s.rerank(func() error { return s.Tiles.SetSortValue(name) })
}

// SetSortRadius changes the mask radius and recomputes the ordering
func (s *Session) SetSortRadius(radius float64) error {
	return s.rerank(func() error { return s.Tiles.SetSortRadius(radius) })
}

func (s *Session) rerank(update func() error) error {
	if err := update(); err != nil {
		return err
	}
	s.Tiles.Ordering()
	s.Emit(EventRedraw, nil)
	return nil
}

// LabelPositions returns the grid positions of every label for overlays
func (s *Session) LabelPositions() map[string][]int {
	return s.Tiles.LabelPositions(s.Labels.Snapshot())
}
