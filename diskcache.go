package termdict

import (
	"github.com/hupe1980/termdict/internal/cache"
)

// DiskCache persists verified term blocks and postings on local disk so that
// segments read from remote stores stay warm across Reader instances and
// process restarts. One DiskCache may be shared by many Readers; the caller
// closes it after the last Reader is closed.
type DiskCache struct {
	c *cache.DiskBlockCache
}

// NewDiskCache creates a disk cache under dir bounded to maxBytes. Blocks
// already in dir from an earlier run are reused.
func NewDiskCache(dir string, maxBytes int64) (*DiskCache, error) {
	c, err := cache.NewDiskBlockCache(cache.DiskCacheConfig{RootDir: dir, MaxSizeBytes: maxBytes})
	if err != nil {
		return nil, err
	}
	return &DiskCache{c: c}, nil
}

// Close waits for pending writes. Cached files stay on disk.
func (d *DiskCache) Close() error { return d.c.Close() }

// Stats returns hit and miss counts.
func (d *DiskCache) Stats() (hits, misses int64) { return d.c.Stats() }

// Size returns the number of cached bytes on disk.
func (d *DiskCache) Size() int64 { return d.c.Size() }

// Len returns the number of cached blocks.
func (d *DiskCache) Len() int { return d.c.Len() }
