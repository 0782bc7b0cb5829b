package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeWorldFixture(t *testing.T, root string) {
	t.Helper()
	regionDir := filepath.Join(root, "region")
	if err := os.MkdirAll(regionDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "level.dat"), []byte("fake level data"), 0o644); err != nil {
		t.Fatalf("writing level.dat: %v", err)
	}
	if err := os.WriteFile(filepath.Join(regionDir, "r.0.0.mca"), []byte("fake region data"), 0o644); err != nil {
		t.Fatalf("writing region file: %v", err)
	}
}

func TestBackupAndRestoreTarGz(t *testing.T) {
	ctx := context.Background()
	worldDir := filepath.Join(t.TempDir(), "world")
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writeWorldFixture(t, worldDir)

	archivePath := filepath.Join(t.TempDir(), "backup.tar.gz")
	if err := Backup(ctx, worldDir, archivePath); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if info, err := os.Stat(archivePath); err != nil || info.Size() == 0 {
		t.Fatalf("expected a non-empty archive at %s: %v", archivePath, err)
	}

	destDir := filepath.Join(t.TempDir(), "restored")
	if err := Restore(ctx, archivePath, destDir); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	restoredLevel := filepath.Join(destDir, "world", "level.dat")
	data, err := os.ReadFile(restoredLevel)
	if err != nil {
		t.Fatalf("reading restored level.dat: %v", err)
	}
	if string(data) != "fake level data" {
		t.Fatalf("restored level.dat content mismatch: %q", data)
	}
}

func TestBackupAndRestoreZip(t *testing.T) {
	ctx := context.Background()
	worldDir := filepath.Join(t.TempDir(), "world")
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writeWorldFixture(t, worldDir)

	archivePath := filepath.Join(t.TempDir(), "backup.zip")
	if err := Backup(ctx, worldDir, archivePath); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	destDir := filepath.Join(t.TempDir(), "restored")
	if err := Restore(ctx, archivePath, destDir); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	restoredRegion := filepath.Join(destDir, "world", "region", "r.0.0.mca")
	if _, err := os.Stat(restoredRegion); err != nil {
		t.Fatalf("expected restored region file: %v", err)
	}
}

func TestFormatForUnrecognizedExtension(t *testing.T) {
	if _, err := formatFor("backup.rar"); err == nil {
		t.Fatalf("expected an error for an unrecognized extension")
	}
}

func TestBackupRejectsUnrecognizedDestination(t *testing.T) {
	ctx := context.Background()
	worldDir := t.TempDir()
	err := Backup(ctx, worldDir, filepath.Join(t.TempDir(), "backup.rar"))
	if err == nil {
		t.Fatalf("expected an error for an unrecognized destination extension")
	}
}
