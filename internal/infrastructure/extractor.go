package infrastructure

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/yourusername/ytfetch-go/internal/domain"
	"go.uber.org/zap"
)

// ZipExtractor unpacks zip archives through an afero filesystem
type ZipExtractor struct {
	fs     afero.Fs
	logger *zap.Logger
}

// NewZipExtractor creates a new extractor
func NewZipExtractor(fs afero.Fs, logger *zap.Logger) *ZipExtractor {
	return &ZipExtractor{fs: fs, logger: logger}
}

// Extract unpacks archivePath into targetDir in archive order. Entries whose
// names cannot be enclosed in targetDir are skipped. A failure part way
// leaves whatever was already written.
func (e *ZipExtractor) Extract(ctx context.Context, archivePath, targetDir string) error {
	file, err := e.fs.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open archive: %w", domain.ErrIO, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat archive: %w", domain.ErrIO, err)
	}

	reader, err := zip.NewReader(file, info.Size())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrCorruptArchive, filepath.Base(archivePath), err)
	}

	if err := e.fs.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("%w: create target dir: %w", domain.ErrIO, err)
	}

	for _, entry := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, ok := enclosedName(entry.Name)
		if !ok {
			e.logger.Debug("Skipping unsafe archive entry",
				zap.String("archive", archivePath),
				zap.String("entry", entry.Name))
			continue
		}
		target := filepath.Join(targetDir, rel)

		if entry.FileInfo().IsDir() {
			if err := e.fs.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("%w: create directory %s: %w", domain.ErrIO, rel, err)
			}
			continue
		}

		if err := e.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("%w: create parent dir for %s: %w", domain.ErrIO, rel, err)
		}

		if err := e.extractFile(ctx, entry, target); err != nil {
			return err
		}
	}

	return nil
}

func (e *ZipExtractor) extractFile(ctx context.Context, entry *zip.File, target string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %w", domain.ErrCorruptArchive, entry.Name, err)
	}
	defer src.Close()

	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}

	out, err := e.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("%w: create file %s: %w", domain.ErrIO, entry.Name, err)
	}
	defer out.Close()

	if _, err := copyChunks(ctx, out, src, domain.ErrCorruptArchive, nil); err != nil {
		return err
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close file %s: %w", domain.ErrIO, entry.Name, err)
	}
	return nil
}

// enclosedName returns name as a relative, cleaned, OS-specific path, or
// false if it is empty, absolute, carries a volume, or climbs out via "..".
func enclosedName(name string) (string, bool) {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	if len(name) >= 2 && name[1] == ':' {
		return "", false
	}

	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	if filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", false
	}

	return filepath.FromSlash(cleaned), true
}
