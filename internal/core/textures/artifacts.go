package textures

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrEmptyKey is returned when an artifact key is empty
	ErrEmptyKey = errors.New("artifact key is empty")
	// ErrUnknownArtifactKind is returned for a kind without a directory
	ErrUnknownArtifactKind = errors.New("unknown artifact kind")
)

// tmpGracePeriod is how long a temp file from Write may exist before the
// sweep treats it as left behind by an interrupted write.
const tmpGracePeriod = time.Hour

// DiskStore implements ArtifactStore on the filesystem.
// Layout: {dir(kind)}/{key}.png
type DiskStore struct {
	dirs      map[ArtifactKind]string
	maxSizeGB int
	ttlDays   int
}

// NewDiskStore creates a DiskStore using the artifact directories and sweep
// limits of cfg. Directories are created if missing.
func NewDiskStore(cfg Config) (*DiskStore, error) {
	dirs := cfg.Dirs()
	for kind, dir := range dirs {
		if dir == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingDirectory, kind)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: creating %s directory: %v", ErrStore, kind, err)
		}
	}
	return &DiskStore{
		dirs:      dirs,
		maxSizeGB: cfg.CacheMaxGB,
		ttlDays:   cfg.CacheTTLDays,
	}, nil
}

// makeKeySafe strips path separators, traversal sequences and null bytes.
func makeKeySafe(key string) string {
	s := strings.ReplaceAll(key, "/", "")
	s = strings.ReplaceAll(s, "\\", "")
	s = strings.ReplaceAll(s, "..", "")
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}

func (s *DiskStore) path(kind ArtifactKind, key string) (string, error) {
	dir, ok := s.dirs[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownArtifactKind, kind)
	}
	safe := makeKeySafe(key)
	if safe == "" {
		return "", ErrEmptyKey
	}
	return filepath.Join(dir, safe+".png"), nil
}

// Exists reports whether a published artifact is present.
func (s *DiskStore) Exists(kind ArtifactKind, key string) bool {
	path, err := s.path(kind, key)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Read returns the artifact bytes. A missing file is (nil, false, nil).
// Updates the file's modification time on access for LRU tracking.
func (s *DiskStore) Read(kind ArtifactKind, key string) ([]byte, bool, error) {
	path, err := s.path(kind, key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %v", ErrStore, err)
	}

	now := time.Now()
	if chtimesErr := os.Chtimes(path, now, now); chtimesErr != nil && !os.IsNotExist(chtimesErr) {
		slog.Warn("[ARTIFACTS] failed to update mtime for LRU tracking",
			"path", path,
			"error", chtimesErr,
		)
	}

	return data, true, nil
}

// Write publishes an artifact. Data goes to a unique temp file in the same
// directory first and is renamed into place, so readers never observe a
// partial file and concurrent writers of the same key do not collide.
func (s *DiskStore) Write(kind ArtifactKind, key string, data []byte) error {
	path, err := s.path(kind, key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		slog.Warn("[ARTIFACTS] failed to chmod artifact", "path", tmpPath, "error", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// artifactEntry represents a stored file with its metadata.
type artifactEntry struct {
	path    string
	size    int64
	modTime time.Time
}

// scan walks every artifact directory and returns all entries. Temp files
// from in-flight writes are not artifacts and are skipped.
func (s *DiskStore) scan() ([]artifactEntry, int64, error) {
	return s.walk(false)
}

// walk collects either the artifacts or, when temps is true, the temp files.
func (s *DiskStore) walk(temps bool) ([]artifactEntry, int64, error) {
	var entries []artifactEntry
	var totalSize int64

	for _, dir := range s.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if strings.HasSuffix(d.Name(), ".tmp") != temps {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				slog.Warn("[ARTIFACTS] failed to stat file during sweep scan",
					"path", path,
					"error", err,
				)
				return nil
			}

			entries = append(entries, artifactEntry{
				path:    path,
				size:    info.Size(),
				modTime: info.ModTime(),
			})
			totalSize += info.Size()
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, 0, err
		}
	}

	return entries, totalSize, nil
}

// Size returns the total size of all artifacts in bytes.
func (s *DiskStore) Size() (int64, error) {
	_, total, err := s.scan()
	return total, err
}

// EvictLRU removes the least recently used artifacts until the total size
// is under the limit. Returns the number of files removed.
func (s *DiskStore) EvictLRU() (int, error) {
	entries, totalSize, err := s.scan()
	if err != nil {
		return 0, err
	}

	maxSizeBytes := int64(s.maxSizeGB) * 1024 * 1024 * 1024
	return s.evict(entries, totalSize, maxSizeBytes), nil
}

func (s *DiskStore) evict(entries []artifactEntry, totalSize, maxSizeBytes int64) int {
	if totalSize <= maxSizeBytes {
		return 0
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime.Before(entries[j].modTime)
	})

	removed := 0
	for _, entry := range entries {
		if totalSize <= maxSizeBytes {
			break
		}
		if err := os.Remove(entry.path); err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("[ARTIFACTS] failed to remove artifact during LRU eviction",
					"path", entry.path,
					"error", err,
				)
			}
			continue
		}
		totalSize -= entry.size
		removed++
	}

	if removed > 0 {
		slog.Info("[ARTIFACTS] LRU eviction completed",
			"entries_removed", removed,
			"new_size_bytes", totalSize,
			"max_size_bytes", maxSizeBytes,
		)
	}
	return removed
}

// CleanExpired removes artifacts not used within the TTL.
// If TTL is 0 (disabled), returns 0 without scanning.
func (s *DiskStore) CleanExpired() (int, error) {
	if s.ttlDays <= 0 {
		return 0, nil
	}

	entries, _, err := s.scan()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -s.ttlDays)
	removed := 0
	for _, entry := range entries {
		if entry.modTime.After(cutoff) {
			continue
		}
		if err := os.Remove(entry.path); err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("[ARTIFACTS] failed to remove expired artifact",
					"path", entry.path,
					"error", err,
				)
			}
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("[ARTIFACTS] TTL cleanup completed",
			"entries_removed", removed,
			"ttl_days", s.ttlDays,
		)
	}
	return removed, nil
}

// CleanTempFiles removes temp files older than tmpGracePeriod. Younger ones
// may belong to a Write still in progress and are left alone.
func (s *DiskStore) CleanTempFiles() (int, error) {
	entries, _, err := s.walk(true)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-tmpGracePeriod)
	removed := 0
	for _, entry := range entries {
		if entry.modTime.After(cutoff) {
			continue
		}
		if err := os.Remove(entry.path); err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("[ARTIFACTS] failed to remove abandoned temp file",
					"path", entry.path,
					"error", err,
				)
			}
			continue
		}
		removed++
	}
	return removed, nil
}

// Sweep removes abandoned temp files, then runs TTL cleanup followed by LRU
// eviction and returns the number of files removed. Readers tolerate files
// vanishing underneath them.
func (s *DiskStore) Sweep() (int, error) {
	tmpRemoved, err := s.CleanTempFiles()
	if err != nil {
		return 0, err
	}
	ttlRemoved, err := s.CleanExpired()
	if err != nil {
		return tmpRemoved, err
	}
	lruRemoved, err := s.EvictLRU()
	if err != nil {
		return tmpRemoved + ttlRemoved, err
	}
	return tmpRemoved + ttlRemoved + lruRemoved, nil
}

// StartSweepJob runs Sweep periodically in a background goroutine.
// Returns a cancel function that should be called during graceful shutdown.
// If interval is 0 or negative, no job is started and cancel is a no-op.
func (s *DiskStore) StartSweepJob(interval time.Duration) context.CancelFunc {
	if interval <= 0 {
		slog.Info("[ARTIFACTS] sweep job disabled (interval=0)")
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("[ARTIFACTS] CRITICAL: sweep job panicked",
					"panic", r,
				)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		slog.Info("[ARTIFACTS] sweep job started",
			"interval", interval,
			"ttl_days", s.ttlDays,
			"max_size_gb", s.maxSizeGB,
		)

		for {
			select {
			case <-ctx.Done():
				slog.Info("[ARTIFACTS] sweep job stopped")
				return
			case <-ticker.C:
				removed, err := s.Sweep()
				if err != nil {
					slog.Error("[ARTIFACTS] sweep error", "error", err)
					continue
				}
				if removed > 0 {
					slog.Info("[ARTIFACTS] sweep completed", "entries_removed", removed)
				}
			}
		}
	}()

	return cancel
}
