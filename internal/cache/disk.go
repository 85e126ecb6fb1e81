package cache

import (
	"container/list"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DiskCacheConfig holds configuration for the disk cache.
type DiskCacheConfig struct {
	// RootDir is the directory where cache files are stored.
	RootDir string
	// MaxSizeBytes is the maximum size of the cache in bytes.
	MaxSizeBytes int64
	// MaxConcurrentWrites limits background disk writes.
	// Defaults to 16 if <= 0.
	MaxConcurrentWrites int64
}

const (
	defaultDiskWrites = 16
	blockFileExt      = ".blk"
	// Longest directory name most filesystems accept.
	maxNameLen = 255
)

// DiskBlockCache implements BlockCache backed by the local filesystem.
// It keeps an in-memory LRU index of the files on disk and rebuilds it
// from the directory tree on startup, so a warm cache survives restarts.
//
// Files live at <root>/<kind>/x<segment>_<field>_<path>/<offset>.blk with
// the string parts hex encoded.
type DiskBlockCache struct {
	mu      sync.Mutex
	rootDir string
	maxSize int64
	size    int64
	items   map[CacheKey]*list.Element
	lru     *list.List
	pending map[CacheKey]struct{}
	closed  bool

	writeSem *semaphore.Weighted
	wg       sync.WaitGroup

	hits   atomic.Int64
	misses atomic.Int64
}

type diskEntry struct {
	key  CacheKey
	path string
	size int64
}

var _ BlockCache = (*DiskBlockCache)(nil)

// NewDiskBlockCache creates a disk-backed block cache and indexes any block
// files already present under config.RootDir.
func NewDiskBlockCache(config DiskCacheConfig) (*DiskBlockCache, error) {
	if config.RootDir == "" {
		return nil, fmt.Errorf("cache: disk cache root dir is empty")
	}
	if err := os.MkdirAll(config.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create disk cache dir: %w", err)
	}

	maxWrites := config.MaxConcurrentWrites
	if maxWrites <= 0 {
		maxWrites = defaultDiskWrites
	}

	c := &DiskBlockCache{
		rootDir:  config.RootDir,
		maxSize:  config.MaxSizeBytes,
		items:    make(map[CacheKey]*list.Element),
		lru:      list.New(),
		pending:  make(map[CacheKey]struct{}),
		writeSem: semaphore.NewWeighted(maxWrites),
	}
	c.scanExistingFiles()

	c.mu.Lock()
	c.evictLocked(0)
	c.mu.Unlock()
	return c, nil
}

func (c *DiskBlockCache) scanExistingFiles() {
	_ = filepath.Walk(c.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), "tmp-blk-") {
			// Left behind by a crash during a write.
			_ = os.Remove(path)
			return nil
		}
		key, ok := c.parsePathToKey(path)
		if !ok {
			return nil
		}
		c.pushLocked(key, path, info.Size())
		return nil
	})
}

// encodeKeyToRelPath returns the relative file path of key, or false when
// the encoded names would be too long for the filesystem.
func (c *DiskBlockCache) encodeKeyToRelPath(key CacheKey) (string, bool) {
	dir := "x" + hex.EncodeToString([]byte(key.SegmentID)) +
		"_" + hex.EncodeToString([]byte(key.Field)) +
		"_" + hex.EncodeToString([]byte(key.Path))
	if len(dir) > maxNameLen {
		return "", false
	}
	file := strconv.FormatUint(key.Offset, 10) + blockFileExt
	return filepath.Join(strconv.Itoa(int(key.Kind)), dir, file), true
}

func (c *DiskBlockCache) parsePathToKey(absPath string) (CacheKey, bool) {
	rel, err := filepath.Rel(c.rootDir, absPath)
	if err != nil {
		return CacheKey{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return CacheKey{}, false
	}

	kind, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return CacheKey{}, false
	}
	if !strings.HasPrefix(parts[1], "x") {
		return CacheKey{}, false
	}
	names := strings.Split(parts[1][1:], "_")
	if len(names) != 3 {
		return CacheKey{}, false
	}
	var decoded [3]string
	for i, n := range names {
		b, err := hex.DecodeString(n)
		if err != nil {
			return CacheKey{}, false
		}
		decoded[i] = string(b)
	}
	offStr, ok := strings.CutSuffix(parts[2], blockFileExt)
	if !ok {
		return CacheKey{}, false
	}
	off, err := strconv.ParseUint(offStr, 10, 64)
	if err != nil {
		return CacheKey{}, false
	}

	return CacheKey{
		Kind:      CacheKind(kind),
		SegmentID: decoded[0],
		Field:     decoded[1],
		Path:      decoded[2],
		Offset:    off,
	}, true
}

// Get reads a cached block from disk.
func (c *DiskBlockCache) Get(_ context.Context, key CacheKey) ([]byte, bool) {
	c.mu.Lock()
	el, ok := c.items[key]
	if ok {
		c.lru.MoveToFront(el)
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	ent := el.Value.(*diskEntry)
	data, err := os.ReadFile(ent.path)
	if err != nil {
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && cur == el {
			c.removeLocked(el)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return data, true
}

// Set writes b to disk in the background. Blocks are immutable, so a key
// that is already cached or being written is left alone. When all write
// slots are busy the block is not cached.
func (c *DiskBlockCache) Set(_ context.Context, key CacheKey, b []byte) {
	size := int64(len(b))
	if size > c.maxSize {
		return
	}
	rel, ok := c.encodeKeyToRelPath(key)
	if !ok {
		return
	}
	absPath := filepath.Join(c.rootDir, rel)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if el, ok := c.items[key]; ok {
		c.lru.MoveToFront(el)
		c.mu.Unlock()
		return
	}
	if _, ok := c.pending[key]; ok {
		c.mu.Unlock()
		return
	}
	if !c.writeSem.TryAcquire(1) {
		c.mu.Unlock()
		return
	}
	c.pending[key] = struct{}{}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer c.writeSem.Release(1)

		err := writeFileAtomic(absPath, b)

		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.pending, key)
		if err != nil {
			return
		}
		c.evictLocked(size)
		c.pushLocked(key, absPath, size)
	}()
}

func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "tmp-blk-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Invalidate removes entries matching the predicate and deletes their files.
func (c *DiskBlockCache) Invalidate(predicate func(key CacheKey) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for k, el := range c.items {
		if predicate(k) {
			toRemove = append(toRemove, el)
		}
	}
	for _, el := range toRemove {
		_ = os.Remove(el.Value.(*diskEntry).path)
		c.removeLocked(el)
	}
}

// Close waits for background writes to finish. Files stay on disk for the
// next process.
func (c *DiskBlockCache) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}

// Stats returns hit and miss counts.
func (c *DiskBlockCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the number of bytes on disk tracked by the index.
func (c *DiskBlockCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of cached blocks.
func (c *DiskBlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *DiskBlockCache) pushLocked(key CacheKey, path string, size int64) {
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
	c.items[key] = c.lru.PushFront(&diskEntry{key: key, path: path, size: size})
	c.size += size
}

// evictLocked deletes least recently used files until incoming more bytes
// fit.
func (c *DiskBlockCache) evictLocked(incoming int64) {
	for c.size+incoming > c.maxSize {
		el := c.lru.Back()
		if el == nil {
			return
		}
		_ = os.Remove(el.Value.(*diskEntry).path)
		c.removeLocked(el)
	}
}

func (c *DiskBlockCache) removeLocked(el *list.Element) {
	ent := el.Value.(*diskEntry)
	c.lru.Remove(el)
	delete(c.items, ent.key)
	c.size -= ent.size
}
