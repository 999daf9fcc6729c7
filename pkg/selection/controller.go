// Package selection drives tile selection and curation over a tile store and
// a label set.
package selection

import (
	"fmt"

	"synaptogram/internal/models"
	"synaptogram/pkg/labels"
	"synaptogram/pkg/tiles"
)

// Listener receives selection changes; nil means the selection was cleared
type Listener func(*models.Selection)

// Direction is a grid navigation direction
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

// Controller keeps the selected index, its display position and its labels
// consistent across user commands.
type Controller struct {
	store  *tiles.Store
	labels *labels.Set
	points models.PointTable

	selectionListeners []Listener
	redrawListeners    []func()
}

// NewController creates a controller. The point table and the tile store must
// share the same index space.
func NewController(store *tiles.Store, set *labels.Set, points models.PointTable) (*Controller, error) {
	if store.Len() != len(points) {
		return nil, fmt.Errorf("tile count %d does not match point count %d", store.Len(), len(points))
	}
	return &Controller{
		store:  store,
		labels: set,
		points: points,
	}, nil
}

// OnSelectionChanged registers a selection listener. Listeners run in
// registration order.
func (c *Controller) OnSelectionChanged(listener Listener) {
	c.selectionListeners = append(c.selectionListeners, listener)
}

// OnRedraw registers a listener called after commands that change what the
// grid should show.
func (c *Controller) OnRedraw(listener func()) {
	c.redrawListeners = append(c.redrawListeners, listener)
}

func (c *Controller) emitSelection(sel *models.Selection) {
	for _, listener := range c.selectionListeners {
		listener(sel)
	}
}

func (c *Controller) redraw() {
	for _, listener := range c.redrawListeners {
		listener()
	}
}

// Selected returns the current selection index, or models.NoTile
func (c *Controller) Selected() int {
	i, ok := c.labels.Selection()
	if !ok {
		return models.NoTile
	}
	return i
}

// Selection returns a snapshot of the selected row
func (c *Controller) Selection() (*models.Selection, bool) {
	i := c.Selected()
	if i == models.NoTile || i >= len(c.points) {
		return nil, false
	}
	return &models.Selection{Index: i, Point: c.points[i]}, true
}

func (c *Controller) selectIndex(i int) *models.Selection {
	c.labels.Select(i)
	sel, _ := c.Selection()
	c.emitSelection(sel)
	c.redraw()
	return sel
}

// SelectByCoords selects the tile drawn at display coordinates (x, y).
// Coordinates that do not hit a tile leave the selection unchanged and
// return nil.
func (c *Controller) SelectByCoords(x, y float64) *models.Selection {
	i := c.store.TileIndex(x, y)
	if i == models.NoTile {
		return nil
	}
	return c.selectIndex(i)
}

// SelectRelative moves the selection step positions along the display
// ordering. Targets outside the ordering leave the selection unchanged and
// return the current selection. Without a selection the first tile in
// display order is selected.
func (c *Controller) SelectRelative(step int) *models.Selection {
	if c.store.Len() == 0 {
		return nil
	}
	current := c.Selected()
	if current == models.NoTile {
		return c.selectIndex(c.store.At(0))
	}

	target := c.store.Position(current) + step
	if target < 0 || target >= c.store.Len() {
		sel, _ := c.Selection()
		return sel
	}
	return c.selectIndex(c.store.At(target))
}

// Move navigates the grid. Up and Down jump a full row; the grid's y axis
// grows upward, so Up advances in display order.
func (c *Controller) Move(d Direction) *models.Selection {
	nCols := c.store.Grid().NCols
	switch d {
	case Left:
		return c.SelectRelative(-1)
	case Right:
		return c.SelectRelative(1)
	case Up:
		return c.SelectRelative(nCols)
	case Down:
		return c.SelectRelative(-nCols)
	}
	sel, _ := c.Selection()
	return sel
}

// SelectFirst selects the first tile in display order without notifying any
// listener. It is meant for the initial selection after loading.
func (c *Controller) SelectFirst() {
	if c.store.Len() == 0 {
		return
	}
	unmute := c.labels.Mute()
	defer unmute()
	c.labels.Select(c.store.At(0))
}

// Label adds the named label to the current selection
func (c *Controller) Label(name string) {
	c.labels.Label(c.Selected(), name)
	c.redraw()
}

// Unlabel removes the named labels from the current selection, or every
// label but the selection when no name is given.
func (c *Controller) Unlabel(names ...string) {
	c.labels.Unlabel(c.Selected(), names...)
	c.redraw()
}
