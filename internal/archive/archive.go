// Package archive bundles a Minecraft world directory into a portable archive for backup
// and unpacks one back out for restore, auto-negotiating the format from the destination's
// file extension.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
)

// Backup walks worldDir and writes its contents into destArchivePath, picking the archive
// format from destArchivePath's extension (.tar.gz or .tgz, .tar.zst, .tar.xz, .tar, or
// .zip).
func Backup(ctx context.Context, worldDir, destArchivePath string) error {
	format, err := formatFor(destArchivePath)
	if err != nil {
		return err
	}

	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		worldDir: "",
	})
	if err != nil {
		return fmt.Errorf("archive: collecting files under %s: %w", worldDir, err)
	}

	if err := os.MkdirAll(filepath.Dir(destArchivePath), 0o755); err != nil {
		return fmt.Errorf("archive: creating destination directory: %w", err)
	}

	out, err := os.Create(destArchivePath)
	if err != nil {
		return fmt.Errorf("archive: creating %s: %w", destArchivePath, err)
	}
	defer out.Close()

	if err := format.Archive(ctx, out, files); err != nil {
		return fmt.Errorf("archive: writing %s: %w", destArchivePath, err)
	}
	return nil
}

// Restore extracts archivePath into destDir, identifying the archive format from its
// contents rather than trusting the extension.
func Restore(ctx context.Context, archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("archive: opening %s: %w", archivePath, err)
	}
	defer f.Close()

	format, stream, err := archives.Identify(ctx, archivePath, f)
	if err != nil {
		return fmt.Errorf("archive: identifying format of %s: %w", archivePath, err)
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("archive: format of %s does not support extraction", archivePath)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("archive: creating destination directory: %w", err)
	}

	err = extractor.Extract(ctx, stream, func(ctx context.Context, fi archives.FileInfo) error {
		targetPath := filepath.Join(destDir, fi.NameInArchive)
		if !strings.HasPrefix(filepath.Clean(targetPath), filepath.Clean(destDir)) {
			return fmt.Errorf("archive: illegal path in archive: %s", fi.NameInArchive)
		}

		if fi.IsDir() {
			return os.MkdirAll(targetPath, 0o755)
		}
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return fmt.Errorf("archive: creating parent directory for %s: %w", targetPath, err)
		}

		rc, err := fi.Open()
		if err != nil {
			return fmt.Errorf("archive: opening %s in archive: %w", fi.NameInArchive, err)
		}
		defer rc.Close()

		out, err := os.Create(targetPath)
		if err != nil {
			return fmt.Errorf("archive: creating %s: %w", targetPath, err)
		}
		defer out.Close()

		if _, err := io.Copy(out, rc); err != nil {
			return fmt.Errorf("archive: extracting %s: %w", targetPath, err)
		}
		if fi.Mode() != 0 {
			os.Chmod(targetPath, fi.Mode())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("archive: extracting %s: %w", archivePath, err)
	}
	return nil
}

// formatFor picks an archival/compression pair from destArchivePath's suffix. Zip bundles
// its own per-file compression and needs no separate Compression value; the tar-based
// formats pair Tar with a Compression implementation.
func formatFor(destArchivePath string) (archives.Archiver, error) {
	switch {
	case strings.HasSuffix(destArchivePath, ".tar.gz") || strings.HasSuffix(destArchivePath, ".tgz"):
		return archives.CompressedArchive{Compression: archives.Gz{}, Archival: archives.Tar{}}, nil
	case strings.HasSuffix(destArchivePath, ".tar.zst"):
		return archives.CompressedArchive{Compression: archives.Zstd{}, Archival: archives.Tar{}}, nil
	case strings.HasSuffix(destArchivePath, ".tar.xz"):
		return archives.CompressedArchive{Compression: archives.Xz{}, Archival: archives.Tar{}}, nil
	case strings.HasSuffix(destArchivePath, ".tar"):
		return archives.CompressedArchive{Archival: archives.Tar{}}, nil
	case strings.HasSuffix(destArchivePath, ".zip"):
		return archives.Zip{}, nil
	default:
		return nil, fmt.Errorf("archive: unrecognized archive extension for %s", destArchivePath)
	}
}
