// Package worldscan walks a directory tree for Minecraft save directories and summarizes
// the Anvil region files each one contains, using the region directory/reader from
// internal/anvil.
package worldscan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cobaltcrest/anvilctl/internal/anvil"
	"github.com/cobaltcrest/anvilctl/pkg/logger"
)

// RegionSummary describes one .mca file found under a world's region directory.
type RegionSummary struct {
	Path          string
	RX, RZ        int
	FileSize      int64
	PresentChunks int
	Chunks        []anvil.ChunkPresence
}

// WorldSummary describes one discovered Minecraft save directory.
type WorldSummary struct {
	Path    string
	Name    string
	Regions []RegionSummary
	// Errors collects per-region failures (corrupt headers, unreadable files) without
	// aborting the scan of the rest of the world.
	Errors []string
}

// Scanner finds world directories and builds summaries of their region files. A zero-value
// Scanner is ready to use; HeaderCache is optional and only affects performance.
type Scanner struct {
	Log         *logger.Logger
	HeaderCache *HeaderCache
}

// New constructs a Scanner. log may be nil, in which case diagnostics are discarded.
func New(log *logger.Logger, cache *HeaderCache) *Scanner {
	return &Scanner{Log: log, HeaderCache: cache}
}

// scopedLog returns a world-scoped logger for scanWorld to pass down to its region-level
// helpers, or nil if the Scanner has no logger configured.
func (s *Scanner) scopedLog(worldName string) *logger.Logger {
	if s.Log == nil {
		return nil
	}
	return s.Log.WithScope(fmt.Sprintf("world=%s", worldName))
}

// Scan walks root for directories that look like Minecraft world saves (they contain a
// level.dat file) and builds a WorldSummary for each one found.
func (s *Scanner) Scan(root string) ([]WorldSummary, error) {
	var worldDirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if _, statErr := os.Stat(filepath.Join(path, "level.dat")); statErr == nil {
			worldDirs = append(worldDirs, path)
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("worldscan: walking %s: %w", root, err)
	}

	summaries := make([]WorldSummary, 0, len(worldDirs))
	for _, dir := range worldDirs {
		summaries = append(summaries, s.scanWorld(dir))
	}
	return summaries, nil
}

func (s *Scanner) scanWorld(worldDir string) WorldSummary {
	summary := WorldSummary{Path: worldDir, Name: filepath.Base(worldDir)}
	worldLog := s.scopedLog(summary.Name)

	regionDir := filepath.Join(worldDir, "region")
	entries, err := os.ReadDir(regionDir)
	if err != nil {
		if !os.IsNotExist(err) {
			summary.Errors = append(summary.Errors, fmt.Sprintf("reading region dir: %v", err))
		}
		return summary
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mca") {
			continue
		}
		path := filepath.Join(regionDir, entry.Name())
		rx, rz, ok := parseRegionFilename(entry.Name())
		if !ok {
			summary.Errors = append(summary.Errors, fmt.Sprintf("unrecognized region filename: %s", entry.Name()))
			continue
		}

		info, err := entry.Info()
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}

		regionLog := worldLog
		if regionLog != nil {
			regionLog = regionLog.WithScope(fmt.Sprintf("region=%s", entry.Name()))
		}
		chunks, err := s.chunkPresence(path, info, regionLog)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", entry.Name(), err))
			if regionLog != nil {
				regionLog.Error("failed to open: %v", err)
			}
			continue
		}

		present := 0
		for _, c := range chunks {
			if c.Present {
				present++
			}
		}

		summary.Regions = append(summary.Regions, RegionSummary{
			Path:          path,
			RX:            rx,
			RZ:            rz,
			FileSize:      info.Size(),
			PresentChunks: present,
			Chunks:        chunks,
		})
	}

	return summary
}

func (s *Scanner) chunkPresence(path string, info fs.FileInfo, regionLog *logger.Logger) ([]anvil.ChunkPresence, error) {
	if s.HeaderCache != nil {
		if chunks, ok := s.HeaderCache.Get(path, info); ok {
			return chunks, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reg, err := anvil.Open(f)
	if err != nil {
		return nil, err
	}
	for _, w := range reg.Warnings() {
		if regionLog != nil {
			regionLog.Warn("%s", w)
		}
	}

	chunks := reg.AllChunkPresence()
	if s.HeaderCache != nil {
		s.HeaderCache.Set(path, info, chunks)
	}
	return chunks, nil
}

// parseRegionFilename extracts (rx, rz) from a standard "r.<x>.<z>.mca" filename.
func parseRegionFilename(name string) (rx, rz int, ok bool) {
	name = strings.TrimSuffix(name, ".mca")
	parts := strings.Split(name, ".")
	if len(parts) != 3 || parts[0] != "r" {
		return 0, 0, false
	}
	x, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	z, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, false
	}
	return x, z, true
}
