package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// tempPrefix marks in-flight writes; it never matches a source extension or the hero prefix.
const tempPrefix = ".tmp-"

// StaleTempAge is how long a temp file must sit untouched before it counts as abandoned
const StaleTempAge = 10 * time.Minute

// FilesystemStorage stores images in one flat local directory
type FilesystemStorage struct {
	baseDir string
}

// NewFilesystemStorage creates a storage rooted at baseDir, creating the directory if needed
func NewFilesystemStorage(baseDir string) (*FilesystemStorage, error) {
	// Ensure base directory exists
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	fs := &FilesystemStorage{
		baseDir: baseDir,
	}

	// Clean up after writers that were killed mid-write
	if n, err := fs.RemoveStaleTemp(StaleTempAge); err != nil {
		log.Printf("Warning: failed to sweep temp files in %s: %v", baseDir, err)
	} else if n > 0 {
		log.Printf("Removed %d stale temp file(s) from %s", n, baseDir)
	}

	return fs, nil
}

// OpenFilesystemStorage returns a storage over an existing directory without creating it
func OpenFilesystemStorage(baseDir string) *FilesystemStorage {
	return &FilesystemStorage{baseDir: baseDir}
}

// Dir returns the root directory
func (fs *FilesystemStorage) Dir() string {
	return fs.baseDir
}

// resolve maps a key to a path inside baseDir
func (fs *FilesystemStorage) resolve(key string) (string, error) {
	path := filepath.Join(fs.baseDir, key)

	// Security: prevent directory traversal
	rel, err := filepath.Rel(filepath.Clean(fs.baseDir), filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key %q: path traversal detected", key)
	}
	return path, nil
}

// List returns the names of regular files accepted by match, sorted by name.
// Temporary files left by interrupted writes are never returned.
func (fs *FilesystemStorage) List(ctx context.Context, match func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, tempPrefix) {
			continue
		}
		if match == nil || match(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// RemoveStaleTemp deletes temp files not modified for at least age.
// Younger temp files may belong to a concurrent writer and are kept.
func (fs *FilesystemStorage) RemoveStaleTemp(age time.Duration) (int, error) {
	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	cutoff := time.Now().Add(-age)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(fs.baseDir, entry.Name())); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// GetReader returns a reader for the file at the given key
func (fs *FilesystemStorage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := fs.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// GetMetadata returns metadata for the file at the given key
func (fs *FilesystemStorage) GetMetadata(ctx context.Context, key string) (*Metadata, error) {
	path, err := fs.resolve(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", key)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &Metadata{
		Size: info.Size(),
	}, nil
}

// PutAtomic writes to a temp file next to key, syncs it and renames it over key.
// On any failure the temp file is removed and key is left untouched.
func (fs *FilesystemStorage) PutAtomic(ctx context.Context, key string, write func(w io.Writer) error) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path, err := fs.resolve(key)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), tempPrefix+"*-"+filepath.Base(path))
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	counter := &countingWriter{w: tmp}
	bw := bufio.NewWriter(counter)
	if err := write(bw); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return 0, fmt.Errorf("failed to chmod %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("failed to replace %s: %w", key, err)
	}
	committed = true

	return counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
