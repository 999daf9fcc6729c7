package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"synaptogram/internal/models"
	"synaptogram/pkg/config"
	"synaptogram/pkg/extraction"
	"synaptogram/pkg/labels"
	"synaptogram/pkg/selection"
	"synaptogram/pkg/session"
	"synaptogram/pkg/tiles"
)

func newTestSession(t *testing.T, store session.Store) *session.Session {
	t.Helper()

	volume := models.NewVolume(20, 20, 6, 2)
	info := models.VolumeInfo{
		VoxelSize: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5},
		NVoxels:   [3]int{20, 20, 6},
		Channels:  []models.Channel{{Name: "CtBP2"}, {Name: "GluR2"}},
	}
	points := make(models.PointTable, 6)
	for i := range points {
		voxel := [3]int{3 * i, 2 * i, 3}
		points[i] = models.Point{Index: i, Voxel: voxel}
		volume.Set(voxel[0], voxel[1], voxel[2], 1, float64(10-i))
	}
	stack := extraction.ExtractStack(volume, points, 2, nil)

	s, err := session.New(info, points, stack, tiles.Grid{NCols: 3, Padding: 2},
		tiles.Ranking{Channel: "GluR2", Value: tiles.Max, Radius: 1}, store)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	s.Volume = volume
	return s
}

// TestConsoleCommands verifies a scripted review session
func TestConsoleCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	s := newTestSession(t, session.NewYAMLStore(path))
	exportDir := filepath.Join(t.TempDir(), "exports")

	var out bytes.Buffer
	cli := newConsole(s, selection.DefaultBindings(), exportDir, &out)

	script := strings.Join([]string{
		"key right",
		"key d",
		"click 2 2",
		"click -3 -3",
		"sort value bogus",
		"bogus",
		"status",
		"export",
		"save",
		"quit",
		"key d",
	}, "\n")

	if err := cli.Run(strings.NewReader(script)); err != nil {
		t.Fatalf("Console failed: %v", err)
	}

	output := out.String()
	for _, want := range []string{"(unsaved changes)", "no tile there", "unknown aggregation", "unknown command", "labels saved"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q:\n%s", want, output)
		}
	}

	second := s.Tiles.Ordering()[1]
	if !s.Labels.Has(second, labels.Artifact) {
		t.Errorf("Expected tile %d labelled artifact, got %v", second, s.Snapshot())
	}
	if got := len(s.Labels.Members(labels.Artifact)); got != 1 {
		t.Errorf("Expected commands after quit to be ignored, got %d artifacts", got)
	}
	if s.Dirty() {
		t.Error("Expected session clean after save")
	}

	first := s.Tiles.Ordering()[0]
	entries, err := os.ReadDir(exportDir)
	if err != nil {
		t.Fatalf("Expected export directory: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("Expected 4 exported images, got %d", len(entries))
	}
	if _, err := os.Stat(filepath.Join(exportDir, "overview_z003_GluR2.jpg")); err != nil {
		t.Errorf("Expected overview export: %v", err)
	}
	if s.Controller.Selected() != first {
		t.Errorf("Expected click to select tile %d, got %d", first, s.Controller.Selected())
	}
}

// TestOpenStore verifies the session path derived from the manifest
func TestOpenStore(t *testing.T) {
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	manifest := filepath.Join(dir, "cochlea.yaml")

	store, err := openStore(cfg, manifest)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if err := store.Save(labels.Snapshot{labels.Artifact: {1}}); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "cochlea-CtBP2.session.yaml")); err != nil {
		t.Errorf("Expected derived session file: %v", err)
	}
	store.Close()

	cfg.Session.Backend = config.BackendSQLite
	store, err = openStore(cfg, manifest)
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	defer store.Close()
	if _, err := os.Stat(filepath.Join(dir, "cochlea-CtBP2.session.db")); err != nil {
		t.Errorf("Expected derived database: %v", err)
	}
}
