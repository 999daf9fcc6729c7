package main

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"synaptogram/internal/models"
	"synaptogram/pkg/session"
	"synaptogram/pkg/visualization"
)

const consoleHelp = `commands:
  key <name>              run the command bound to a key (d, o, c, left, right, up, down)
  click <x> <y>           select the tile at grid coordinates
  sort channel <name>     rank on a channel ("-" ranks all channels)
  sort value <agg>        rank by an aggregation (min, max, mean, sum, std, ...)
  sort radius <r>         set the physical radius of the ranking mask
  status                  show the selection and unsaved state
  labels                  list labelled points
  export                  write projections of the selected tile
  save                    persist labels
  quit                    leave
`

// console drives a session from line commands, standing in for the GUI
type console struct {
	s         *session.Session
	keys      map[string]string
	exportDir string
	out       io.Writer
}

func newConsole(s *session.Session, keys map[string]string, exportDir string, out io.Writer) *console {
	c := &console{s: s, keys: keys, exportDir: exportDir, out: out}

	s.On(session.EventSelectionChanged, func(data interface{}) {
		if sel, ok := data.(*models.Selection); ok && sel != nil {
			c.printSelection(sel)
		}
	})
	s.On(session.EventDirtyChanged, func(data interface{}) {
		if dirty, _ := data.(bool); dirty {
			fmt.Fprintln(c.out, "(unsaved changes)")
		}
	})
	s.On(session.EventSaved, func(interface{}) {
		fmt.Fprintln(c.out, "labels saved")
	})
	return c
}

// Run reads commands until quit or end of input
func (c *console) Run(in io.Reader) error {
	fmt.Fprint(c.out, consoleHelp)
	if sel, ok := c.s.Controller.Selection(); ok {
		c.printSelection(sel)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := c.execute(fields); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func (c *console) execute(fields []string) error {
	switch fields[0] {
	case "key":
		if len(fields) != 2 {
			return fmt.Errorf("usage: key <name>")
		}
		ok, err := c.s.Controller.Dispatch(c.keys, fields[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("key %q is not bound", fields[1])
		}

	case "click":
		if len(fields) != 3 {
			return fmt.Errorf("usage: click <x> <y>")
		}
		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("invalid x: %w", err)
		}
		y, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("invalid y: %w", err)
		}
		if c.s.Controller.SelectByCoords(x, y) == nil {
			fmt.Fprintln(c.out, "no tile there")
		}

	case "sort":
		return c.sort(fields[1:])

	case "status":
		c.printStatus()

	case "labels":
		snap := c.s.Snapshot()
		for _, name := range c.s.Labels.Names() {
			fmt.Fprintf(c.out, "%s: %v\n", name, snap[name])
		}

	case "export":
		return c.export()

	case "save":
		return c.s.Save()

	case "help":
		fmt.Fprint(c.out, consoleHelp)

	default:
		return fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	return nil
}

func (c *console) sort(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sort channel|value|radius <value>")
	}
	switch args[0] {
	case "channel":
		channel := args[1]
		if channel == "-" {
			channel = ""
		}
		return c.s.SetSortChannel(channel)
	case "value":
		return c.s.SetSortValue(args[1])
	case "radius":
		r, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid radius: %w", err)
		}
		return c.s.SetSortRadius(r)
	default:
		return fmt.Errorf("unknown sort field %q", args[0])
	}
}

func (c *console) printSelection(sel *models.Selection) {
	p := sel.Point
	fmt.Fprintf(c.out, "selected %d (position %d): x=%.3f y=%.3f z=%.3f voxel=%v labels=%v\n",
		sel.Index, c.s.Tiles.Position(sel.Index), p.Position.X, p.Position.Y, p.Position.Z,
		p.Voxel, c.s.Labels.LabelsOf(sel.Index))
}

func (c *console) printStatus() {
	if sel, ok := c.s.Controller.Selection(); ok {
		c.printSelection(sel)
	} else {
		fmt.Fprintln(c.out, "nothing selected")
	}
	r := c.s.Tiles.Ranking()
	fmt.Fprintf(c.out, "ranking: channel=%q value=%s radius=%g\n", r.Channel, r.Value, r.Radius)
	fmt.Fprintf(c.out, "unsaved changes: %v\n", c.s.Dirty())
}

// export writes the max projection of every channel of the selected tile and
// the overview plane through the selected point.
func (c *console) export() error {
	sel, ok := c.s.Controller.Selection()
	if !ok {
		return fmt.Errorf("nothing selected")
	}

	tile := c.s.Tiles.Tiles()[sel.Index]
	for ch, name := range c.s.Info.ChannelNames() {
		img, err := visualization.Project(tile, ch)
		if err != nil {
			return err
		}
		filename := filepath.Join(c.exportDir, fmt.Sprintf("point_%04d_%s.jpg", sel.Index, name))
		if err := visualization.SaveSlice(img, filename); err != nil {
			return fmt.Errorf("failed to save %s: %w", filename, err)
		}
		fmt.Fprintf(c.out, "wrote %s\n", filename)
	}

	if c.s.Volume != nil {
		viewer := visualization.NewViewer(c.s.Volume, c.s.Info)
		z := sel.Point.Voxel[2]
		if z < 0 || z >= c.s.Volume.Depth {
			return nil
		}
		for _, name := range c.s.Info.ChannelNames() {
			img, err := viewer.ExtractSlice(name, z)
			if err != nil {
				return err
			}
			filename := filepath.Join(c.exportDir, fmt.Sprintf("overview_z%03d_%s.jpg", z, name))
			if err := visualization.SaveSlice(img, filename); err != nil {
				return fmt.Errorf("failed to save %s: %w", filename, err)
			}
			fmt.Fprintf(c.out, "wrote %s\n", filename)
		}
	}
	return nil
}
