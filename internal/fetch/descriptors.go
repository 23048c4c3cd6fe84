package fetch

import (
	"fmt"
	"sync"

	"github.com/vecdb/bbann/pkg/observability"
	"golang.org/x/sys/unix"
)

// descriptorCache lazily opens and caches one read-only file descriptor
// per coarse-cluster file, mirroring the original search_bbann's per-cid
// file handle reuse across the whole query batch. prefix is the index
// prefix string (a directory path, or a directory path plus a shared
// filename stem) that cluster-<cid>-raw_data.bin is appended to.
type descriptorCache struct {
	prefix string
	direct bool

	mu  sync.Mutex
	fds map[uint32]int
}

func newDescriptorCache(prefix string, direct bool) *descriptorCache {
	return &descriptorCache{prefix: prefix, direct: direct, fds: make(map[uint32]int)}
}

func clusterFilePath(prefix string, cid uint32) string {
	return fmt.Sprintf("%scluster-%d-raw_data.bin", prefix, cid)
}

// get returns the cached descriptor for cid, opening it on first use. A
// failure to open a cluster file means the index is corrupt or missing
// underlying storage; per the fetch engine's I/O contract that is fatal,
// not a recoverable error, so get aborts the process rather than
// returning one.
func (c *descriptorCache) get(cid uint32) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fd, ok := c.fds[cid]; ok {
		return fd, nil
	}

	flags := unix.O_RDONLY
	if c.direct {
		flags |= unix.O_DIRECT
	}
	path := clusterFilePath(c.prefix, cid)
	fd, err := unix.Open(path, flags, 0)
	if err != nil {
		observability.Fatalf("fetch: open %s: %v", path, err)
	}
	c.fds[cid] = fd
	return fd, nil
}

func (c *descriptorCache) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for cid, fd := range c.fds {
		if err := unix.Close(fd); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("fetch: close fd for cluster %d: %w", cid, err)
		}
	}
	c.fds = make(map[uint32]int)
	return firstErr
}
