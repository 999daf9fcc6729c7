package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"synaptogram/pkg/config"
	"synaptogram/pkg/reader"
	"synaptogram/pkg/session"
)

func main() {
	// Parse command line arguments
	manifestPath := flag.String("manifest", "", "Dataset manifest (YAML)")
	configPath := flag.String("config", "synaptogram.yaml", "Configuration file")
	sessionPath := flag.String("session", "", "Session file (default: next to the manifest)")
	marker := flag.String("marker", "", "Point set to review (overrides config)")
	sortChannel := flag.String("sort-channel", "", "Channel to rank tiles on (overrides config)")
	sortValue := flag.String("sort-value", "", "Aggregation used for ranking (overrides config)")
	sortRadius := flag.Float64("sort-radius", -1, "Physical radius of the ranking mask (overrides config)")
	exportDir := flag.String("export-dir", "exports", "Directory for exported projections")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration file and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *manifestPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *marker != "" {
		cfg.Extraction.Marker = *marker
	}
	if *sortChannel != "" {
		cfg.Ranking.SortChannel = *sortChannel
	}
	if *sortValue != "" {
		cfg.Ranking.SortValue = *sortValue
	}
	if *sortRadius >= 0 {
		cfg.Ranking.SortRadius = *sortRadius
	}
	if *sessionPath != "" {
		cfg.Session.Path = *sessionPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.Output.Verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	store, err := openStore(cfg, *manifestPath)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}

	r, err := reader.Open(*manifestPath, cfg.Extraction.Workers)
	if err != nil {
		log.Fatalf("Failed to open dataset: %v", err)
	}

	fmt.Printf("Loading %s (marker %s)...\n", *manifestPath, cfg.Extraction.Marker)
	startTime := time.Now()
	s, err := session.Open(context.Background(), r, session.Options{
		Marker:   cfg.Extraction.Marker,
		HalfSize: cfg.Extraction.HalfSize,
		Grid:     cfg.TileGrid(),
		Ranking:  cfg.TileRanking(),
		Store:    store,
		Progress: newTileProgress(cfg.Output.Progress && progressEnabled()),
	})
	if err != nil {
		store.Close()
		log.Fatalf("Failed to open session: %v", err)
	}
	defer s.Close()

	fmt.Printf("Loaded %d points in %.2f seconds\n", len(s.Points), time.Since(startTime).Seconds())
	if cfg.Output.Verbose {
		log.Printf("Channels: %s", strings.Join(s.Info.ChannelNames(), ", "))
		log.Printf("Voxel size: %.4f x %.4f x %.4f", s.Info.VoxelSize.X, s.Info.VoxelSize.Y, s.Info.VoxelSize.Z)
	}

	cli := newConsole(s, cfg.Keys, *exportDir, os.Stdout)
	if err := cli.Run(os.Stdin); err != nil {
		log.Fatalf("Session ended with error: %v", err)
	}

	if s.Dirty() {
		log.Printf("Warning: exiting with unsaved label changes")
	}
}

// openStore picks the label store named by the configuration
func openStore(cfg *config.Config, manifestPath string) (session.Store, error) {
	path := cfg.Session.Path
	if path == "" {
		base := strings.TrimSuffix(manifestPath, filepath.Ext(manifestPath))
		ext := ".session.yaml"
		if cfg.Session.Backend == config.BackendSQLite {
			ext = ".session.db"
		}
		path = base + "-" + cfg.Extraction.Marker + ext
	}

	switch cfg.Session.Backend {
	case config.BackendSQLite:
		return session.OpenSQLiteStore(path)
	default:
		return session.NewYAMLStore(path), nil
	}
}
