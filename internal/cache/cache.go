// Package cache owns the on-disk layout of attribution tables and per-file
// blame text. Entries are immutable once written and every write goes
// through a temporary file and an atomic rename.
package cache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
)

const (
	partsDir = "parts"
	blameDir = "blame"

	tableExt       = ".json"
	blameExt       = ".txt"
	tmpMarker      = ".tmp."
	fingerprintDoc = ".patterns"
)

// StaleAge is how old a temporary file must be before it is considered
// abandoned by a crashed writer.
const StaleAge = time.Hour

// ErrCorrupt is returned when a cache entry exists but cannot be decoded.
var ErrCorrupt = errors.New("corrupt cache entry")

var tableName = regexp.MustCompile(`^[0-9a-f]{40}\.json$`)

// Cache is a cache directory laid out as:
//
//	<dir>/parts/<group>/<hash>.json   attribution table per group and commit
//	<dir>/blame/<path>/<hash>.txt     raw blame of one file at one commit
type Cache struct {
	dir string
}

// New creates the cache directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

// GroupDir returns the directory holding a group's tables.
func (c *Cache) GroupDir(group string) string {
	return filepath.Join(c.dir, partsDir, group)
}

// TablePath returns the path of the attribution table for group at hash.
func (c *Cache) TablePath(group, hash string) string {
	return filepath.Join(c.GroupDir(group), hash+tableExt)
}

// BlamePath returns the path of the raw blame of file at hash.
func (c *Cache) BlamePath(file, hash string) string {
	return filepath.Join(c.dir, blameDir, filepath.FromSlash(file), hash+blameExt)
}

// Groups lists group directories present on disk, sorted.
func (c *Cache) Groups() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.dir, partsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var groups []string
	for _, e := range entries {
		if e.IsDir() {
			groups = append(groups, e.Name())
		}
	}
	return groups, nil
}

// Commits lists the hashes with a stored table for group, sorted.
func (c *Cache) Commits(group string) ([]string, error) {
	entries, err := os.ReadDir(c.GroupDir(group))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var hashes []string
	for _, e := range entries {
		if e.Type().IsRegular() && tableName.MatchString(e.Name()) {
			hashes = append(hashes, strings.TrimSuffix(e.Name(), tableExt))
		}
	}
	sort.Strings(hashes)
	return hashes, nil
}

// WriteAtomic writes data to path through a sibling temporary file named
// with tag, so readers never observe a partial file. Parent directories
// are created as needed.
func WriteAtomic(path string, data []byte, tag string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + tmpMarker + tag
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

var tempSeq atomic.Uint64

// TempTag returns a temporary-file tag no other writer in any process
// shares.
func TempTag() string {
	return fmt.Sprintf("%d.%d", os.Getpid(), tempSeq.Add(1))
}

// IsTemp reports whether name is a temporary file left by WriteAtomic.
func IsTemp(name string) bool {
	return strings.Contains(filepath.Base(name), tmpMarker)
}

// CleanStale removes temporary files under dir last modified more than
// olderThan ago and returns how many were removed. A missing dir is empty.
func CleanStale(dir string, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !IsTemp(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Fingerprint identifies a group's pattern list.
func Fingerprint(patterns []string) string {
	return HashBytes([]byte(strings.Join(patterns, "\n")))
}

// CheckFingerprint compares patterns with the fingerprint recorded for
// group. The first call records it. It returns false when tables on disk
// were computed from a different pattern list.
func (c *Cache) CheckFingerprint(group string, patterns []string) (bool, error) {
	want := Fingerprint(patterns)
	path := filepath.Join(c.GroupDir(group), fingerprintDoc)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, WriteAtomic(path, []byte(want+"\n"), TempTag())
	}
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(data)) == want, nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Groups    map[string]int `json:"groups"`
	Blames    int            `json:"blames"`
	Stale     int            `json:"stale"`
	TotalSize int64          `json:"total_size"`
	OldestAge time.Duration  `json:"oldest_age"`
	NewestAge time.Duration  `json:"newest_age"`
}

// GetStats walks the cache and returns statistics about it.
func (c *Cache) GetStats() (*Stats, error) {
	stats := &Stats{Groups: make(map[string]int)}
	var oldest, newest time.Time

	partsRoot := filepath.Join(c.dir, partsDir)
	blameRoot := filepath.Join(c.dir, blameDir)

	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		stats.TotalSize += info.Size()
		switch {
		case IsTemp(path):
			stats.Stale++
			return nil
		case strings.HasPrefix(path, blameRoot+string(filepath.Separator)) && filepath.Ext(path) == blameExt:
			stats.Blames++
		case strings.HasPrefix(path, partsRoot+string(filepath.Separator)) && tableName.MatchString(info.Name()):
			stats.Groups[filepath.Base(filepath.Dir(path))]++
		default:
			return nil
		}

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}
	return stats, nil
}
