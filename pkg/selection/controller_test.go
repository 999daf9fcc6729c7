package selection

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"synaptogram/internal/models"
	"synaptogram/pkg/labels"
	"synaptogram/pkg/tiles"
)

// newTestController builds n tiles of side 2 whose ordering is the reverse of
// the point order, laid out in a grid of nCols columns.
func newTestController(t *testing.T, n, nCols int) (*Controller, *tiles.Store, *labels.Set) {
	t.Helper()

	stack := make(models.TileStack, n)
	points := make(models.PointTable, n)
	for i := 0; i < n; i++ {
		tile := models.NewVolume(2, 2, 2, 1)
		tile.Set(0, 0, 0, 0, float64(n-i))
		stack[i] = tile
		points[i] = models.Point{
			Index:    i,
			Marker:   "CtBP2",
			Position: r3.Vec{X: float64(i), Y: float64(2 * i), Z: 1},
			Voxel:    [3]int{i, 2 * i, 1},
		}
	}

	info := models.VolumeInfo{
		VoxelSize: r3.Vec{X: 1, Y: 1, Z: 1},
		Channels:  []models.Channel{{Name: "GluR2"}},
	}
	store, err := tiles.NewStore(stack, info, tiles.Grid{NCols: nCols, Padding: 2}, tiles.Ranking{
		Channel: "GluR2",
		Value:   tiles.Max,
		Radius:  10,
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	set := labels.NewSet()
	c, err := NewController(store, set, points)
	if err != nil {
		t.Fatalf("Failed to create controller: %v", err)
	}
	return c, store, set
}

// TestSelectFirstQuiet verifies the initial selection is made without notifications
func TestSelectFirstQuiet(t *testing.T) {
	c, store, set := newTestController(t, 10, 4)

	selections, changes := 0, 0
	c.OnSelectionChanged(func(*models.Selection) { selections++ })
	set.Subscribe(func(labels.Change) { changes++ })

	if c.Selected() != models.NoTile {
		t.Fatalf("Expected no initial selection, got %d", c.Selected())
	}

	c.SelectFirst()

	if c.Selected() != store.Ordering()[0] {
		t.Errorf("Expected first tile in display order %d, got %d", store.Ordering()[0], c.Selected())
	}
	if c.Selected() != 9 {
		t.Errorf("Expected reversed ordering to start with 9, got %d", c.Selected())
	}
	if selections != 0 || changes != 0 {
		t.Errorf("Expected no notifications, got %d selection and %d label events", selections, changes)
	}
}

// TestSelectByCoords verifies clicks select the tile under the cursor and misses are no-ops
func TestSelectByCoords(t *testing.T) {
	c, store, _ := newTestController(t, 10, 4)

	var events []*models.Selection
	c.OnSelectionChanged(func(sel *models.Selection) { events = append(events, sel) })

	sel := c.SelectByCoords(2, 2)
	if sel == nil || sel.Index != store.Ordering()[0] {
		t.Fatalf("Expected selection of %d, got %+v", store.Ordering()[0], sel)
	}
	if sel.Point.Position.Y != float64(2*sel.Index) {
		t.Errorf("Expected selection to carry the point row, got %+v", sel.Point)
	}

	// Second column, second row
	sel = c.SelectByCoords(6.5, 6.5)
	if sel == nil || sel.Index != store.Ordering()[5] {
		t.Fatalf("Expected selection of %d, got %+v", store.Ordering()[5], sel)
	}

	if sel := c.SelectByCoords(-1, -1); sel != nil {
		t.Errorf("Expected miss to return nil, got %+v", sel)
	}
	if c.Selected() != store.Ordering()[5] {
		t.Errorf("Expected miss to keep selection %d, got %d", store.Ordering()[5], c.Selected())
	}
	if len(events) != 2 {
		t.Errorf("Expected 2 selection events, got %d", len(events))
	}
}

// TestSelectRelative verifies navigation along the display ordering without wraparound
func TestSelectRelative(t *testing.T) {
	c, store, _ := newTestController(t, 10, 4)
	ordering := store.Ordering()

	// Without a selection the first tile is selected
	if sel := c.SelectRelative(1); sel == nil || sel.Index != ordering[0] {
		t.Fatalf("Expected first tile, got %+v", sel)
	}

	c.SelectRelative(1)
	if c.Selected() != ordering[1] {
		t.Errorf("Expected position 1, got index %d", c.Selected())
	}

	c.SelectRelative(-1)
	c.SelectRelative(-1)
	if c.Selected() != ordering[0] {
		t.Errorf("Expected to stay at position 0, got index %d", c.Selected())
	}

	c.SelectRelative(9)
	if c.Selected() != ordering[9] {
		t.Errorf("Expected last position, got index %d", c.Selected())
	}

	events := 0
	c.OnSelectionChanged(func(*models.Selection) { events++ })
	sel := c.SelectRelative(1)
	if c.Selected() != ordering[9] || sel == nil || sel.Index != ordering[9] {
		t.Errorf("Expected no wraparound past the last tile, got index %d", c.Selected())
	}
	if events != 0 {
		t.Errorf("Expected no event for an overflowing step, got %d", events)
	}
}

// TestMove verifies row jumps use the grid width
func TestMove(t *testing.T) {
	c, store, _ := newTestController(t, 10, 4)
	ordering := store.Ordering()

	c.SelectFirst()
	c.Move(Up)
	if c.Selected() != ordering[4] {
		t.Errorf("Expected Up to move to position 4, got %d", store.Position(c.Selected()))
	}
	c.Move(Right)
	if c.Selected() != ordering[5] {
		t.Errorf("Expected Right to move to position 5, got %d", store.Position(c.Selected()))
	}
	c.Move(Up)
	c.Move(Up)
	if c.Selected() != ordering[9] {
		t.Errorf("Expected Up to reach position 9 and then stop, got %d", store.Position(c.Selected()))
	}
	c.Move(Down)
	c.Move(Left)
	if c.Selected() != ordering[4] {
		t.Errorf("Expected position 4, got %d", store.Position(c.Selected()))
	}
}

// TestLabelCommands verifies labelling applies to the selection and triggers redraws
func TestLabelCommands(t *testing.T) {
	c, _, set := newTestController(t, 10, 4)

	redraws := 0
	c.OnRedraw(func() { redraws++ })

	// Without a selection labelling is a no-op
	c.Label(labels.Artifact)
	if len(set.Members(labels.Artifact)) != 0 {
		t.Error("Expected no label without a selection")
	}

	c.SelectFirst()
	selected := c.Selected()
	c.Label(labels.Artifact)
	c.Label(labels.Orphan)
	if !set.Has(selected, labels.Artifact) || !set.Has(selected, labels.Orphan) {
		t.Error("Expected labels on the selected tile")
	}

	c.Unlabel(labels.Orphan)
	if set.Has(selected, labels.Orphan) || !set.Has(selected, labels.Artifact) {
		t.Error("Expected only the orphan label removed")
	}

	c.Unlabel()
	if set.Has(selected, labels.Artifact) {
		t.Error("Expected all labels removed")
	}
	if c.Selected() != selected {
		t.Errorf("Expected selection unchanged by labelling, got %d", c.Selected())
	}
	if redraws != 5 {
		t.Errorf("Expected 5 redraws, got %d", redraws)
	}
}

// TestDispatch verifies key bindings route to commands
func TestDispatch(t *testing.T) {
	c, store, set := newTestController(t, 10, 4)
	bindings := DefaultBindings()
	if err := ValidateBindings(bindings); err != nil {
		t.Fatalf("Expected default bindings to be valid: %v", err)
	}

	c.SelectFirst()
	for _, key := range []string{"Right", "d"} {
		if ok, err := c.Dispatch(bindings, key); !ok || err != nil {
			t.Fatalf("Expected key %q to dispatch, got %v, %v", key, ok, err)
		}
	}
	if c.Selected() != store.Ordering()[1] || !set.Has(c.Selected(), labels.Artifact) {
		t.Error("Expected second tile to be labelled artifact")
	}

	if ok, _ := c.Dispatch(bindings, "x"); ok {
		t.Error("Expected unbound key to report false")
	}

	if err := ValidateBindings(map[string]string{"z": "explode"}); err == nil {
		t.Error("Expected unknown command to be rejected")
	}
	if err := ValidateBindings(map[string]string{"z": "label:"}); err == nil {
		t.Error("Expected label without name to be rejected")
	}
}

// TestNewControllerMismatch verifies tiles and points must share the index space
func TestNewControllerMismatch(t *testing.T) {
	_, store, set := newTestController(t, 3, 4)
	if _, err := NewController(store, set, make(models.PointTable, 2)); err == nil {
		t.Error("Expected error for mismatched tile and point counts")
	}
}
