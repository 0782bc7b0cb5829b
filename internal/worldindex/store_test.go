package worldindex

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertWorldIsIdempotentByPath(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id1, err := store.UpsertWorld(ctx, "/worlds/overworld", "overworld")
	if err != nil {
		t.Fatalf("UpsertWorld: %v", err)
	}
	id2, err := store.UpsertWorld(ctx, "/worlds/overworld", "overworld (renamed)")
	if err != nil {
		t.Fatalf("UpsertWorld (second call): %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected the same world ID across upserts, got %s and %s", id1, id2)
	}

	worlds, err := store.ListWorlds(ctx)
	if err != nil {
		t.Fatalf("ListWorlds: %v", err)
	}
	if len(worlds) != 1 {
		t.Fatalf("expected 1 world, got %d", len(worlds))
	}
	if worlds[0].Name != "overworld (renamed)" {
		t.Fatalf("expected upsert to refresh the name, got %q", worlds[0].Name)
	}
}

func TestReplaceRegionsDropsStaleRows(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	worldID, err := store.UpsertWorld(ctx, "/worlds/overworld", "overworld")
	if err != nil {
		t.Fatalf("UpsertWorld: %v", err)
	}

	first := []ScannedRegion{{RX: 0, RZ: 0, FileSize: 1024}}
	firstChunks := [][]ScannedChunk{{{LocalX: 0, LocalZ: 0, Present: true, Timestamp: 1}}}
	if err := store.ReplaceRegions(ctx, worldID, first, firstChunks); err != nil {
		t.Fatalf("ReplaceRegions (first): %v", err)
	}

	regions, err := store.RegionsForWorld(ctx, worldID)
	if err != nil {
		t.Fatalf("RegionsForWorld: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("expected 1 region after first scan, got %d", len(regions))
	}

	second := []ScannedRegion{{RX: 1, RZ: 1, FileSize: 2048}}
	secondChunks := [][]ScannedChunk{{{LocalX: 1, LocalZ: 1, Present: true, Timestamp: 2}}}
	if err := store.ReplaceRegions(ctx, worldID, second, secondChunks); err != nil {
		t.Fatalf("ReplaceRegions (second): %v", err)
	}

	regions, err = store.RegionsForWorld(ctx, worldID)
	if err != nil {
		t.Fatalf("RegionsForWorld: %v", err)
	}
	if len(regions) != 1 || regions[0].RX != 1 || regions[0].RZ != 1 {
		t.Fatalf("expected the stale (0,0) region to be replaced by (1,1), got %+v", regions)
	}
}

func TestReplaceRegionsRejectsMismatchedSlices(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	worldID, err := store.UpsertWorld(ctx, "/worlds/overworld", "overworld")
	if err != nil {
		t.Fatalf("UpsertWorld: %v", err)
	}
	err = store.ReplaceRegions(ctx, worldID, []ScannedRegion{{RX: 0, RZ: 0}}, nil)
	if err == nil {
		t.Fatalf("expected a length-mismatch error")
	}
}
