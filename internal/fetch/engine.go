// Package fetch is the async bucket-fetch engine: it coalesces the
// candidate buckets of an entire query batch into a single deduplicated
// read set, farms those reads across a worker pool, and merges each
// completed block's scored entries into per-query top-k results.
//
// The original coalesces onto io_submit/io_getevents queues; no pack
// example binds either syscall, so this is a goroutine-native rendition:
// disjoint submit and scan worker pools connected by a channel standing in
// for the kernel completion queue, with the same per-wave concurrency cap
// and per-query mutex discipline.
package fetch

import (
	"sort"
	"sync"

	"github.com/vecdb/bbann/internal/bucket"
	"github.com/vecdb/bbann/internal/kernel"
	"github.com/vecdb/bbann/pkg/observability"
	"golang.org/x/sys/unix"
)

// Location addresses one disk block: coarse cluster id and bucket id
// within it.
type Location struct {
	Cid, Bid uint32
}

// Query is one search vector together with the candidate bucket locations
// the proximity graph probe returned for it.
type Query struct {
	Vector    []float32
	Locations []Location
}

// Result is one query's top-k answer, ascending by distance.
type Result struct {
	IDs   []uint32
	Dists []float32
}

// Engine owns the descriptor cache and worker-pool sizing for one loaded
// bbann index.
type Engine struct {
	cache     *descriptorCache
	blockSize int
	dim       int
	metric    kernel.Metric

	submitWorkers int
	waitWorkers   int
	queueDepth    int
}

// Config controls worker-pool and queue sizing.
type Config struct {
	BlockSize     int
	Dim           int
	Metric        kernel.Metric
	Direct        bool
	SubmitWorkers int
	WaitWorkers   int
	QueueDepth    int
}

// DefaultQueueDepth matches the original's fallback when
// /proc/sys/fs/aio-max-nr cannot be read.
const DefaultQueueDepth = 1024

// NewEngine creates a fetch engine reading cluster files named
// <prefix>cluster-<cid>-raw_data.bin.
func NewEngine(prefix string, cfg Config) *Engine {
	if cfg.SubmitWorkers <= 0 {
		cfg.SubmitWorkers = 8
	}
	if cfg.WaitWorkers <= 0 {
		cfg.WaitWorkers = 8
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	return &Engine{
		cache:         newDescriptorCache(prefix, cfg.Direct),
		blockSize:     cfg.BlockSize,
		dim:           cfg.Dim,
		metric:        cfg.Metric,
		submitWorkers: cfg.SubmitWorkers,
		waitWorkers:   cfg.WaitWorkers,
		queueDepth:    cfg.QueueDepth,
	}
}

// Close releases every cached file descriptor.
func (e *Engine) Close() error {
	return e.cache.closeAll()
}

type readJob struct {
	loc     Location
	queries []int
}

type readResult struct {
	loc     Location
	queries []int
	buf     []byte
	err     error
}

// Search coalesces every query's candidate locations, fetches each
// distinct block at most once, and merges scored entries into per-query
// top-k heaps under a per-query mutex.
func (e *Engine) Search(queries []Query, topk int) ([]Result, error) {
	locToQueries := make(map[Location][]int)
	var order []Location
	for qi, q := range queries {
		for _, loc := range q.Locations {
			if _, seen := locToQueries[loc]; !seen {
				order = append(order, loc)
			}
			locToQueries[loc] = append(locToQueries[loc], qi)
		}
	}

	heaps := make([]*topKHeap, len(queries))
	mus := make([]sync.Mutex, len(queries))
	for i := range heaps {
		heaps[i] = newTopKHeap(topk)
	}

	jobCh := make(chan readJob, min(e.queueDepth, max(len(order), 1)))
	resultCh := make(chan readResult, min(e.queueDepth, max(len(order), 1)))

	var submitWG sync.WaitGroup
	for w := 0; w < e.submitWorkers; w++ {
		submitWG.Add(1)
		go func() {
			defer submitWG.Done()
			for job := range jobCh {
				buf, err := e.readBlock(job.loc)
				resultCh <- readResult{loc: job.loc, queries: job.queries, buf: buf, err: err}
			}
		}()
	}

	var waitWG sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex
	for w := 0; w < e.waitWorkers; w++ {
		waitWG.Add(1)
		go func() {
			defer waitWG.Done()
			for r := range resultCh {
				if r.err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = r.err
					}
					errMu.Unlock()
					continue
				}
				e.scanAndMerge(r, queries, heaps, mus)
			}
		}()
	}

	for _, loc := range order {
		jobCh <- readJob{loc: loc, queries: locToQueries[loc]}
	}
	close(jobCh)
	submitWG.Wait()
	close(resultCh)
	waitWG.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	results := make([]Result, len(queries))
	for i, h := range heaps {
		ids, dists := h.sortedAscending()
		results[i] = Result{IDs: ids, Dists: dists}
	}
	return results, nil
}

// SearchRadius coalesces every query's candidate locations exactly like
// Search, but instead of merging into a bounded top-k heap it keeps every
// scanned entry whose distance is within threshold (min-heap polarity),
// so a probed bucket's occupancy never truncates the result: a caller
// needing a bounded radius search over many candidates gets all of them,
// not the closest 64 or whatever heap size a quota would impose.
func (e *Engine) SearchRadius(queries []Query, threshold float32) ([]Result, error) {
	locToQueries := make(map[Location][]int)
	var order []Location
	for qi, q := range queries {
		for _, loc := range q.Locations {
			if _, seen := locToQueries[loc]; !seen {
				order = append(order, loc)
			}
			locToQueries[loc] = append(locToQueries[loc], qi)
		}
	}

	acc := make([][]entry, len(queries))
	mus := make([]sync.Mutex, len(queries))

	jobCh := make(chan readJob, min(e.queueDepth, max(len(order), 1)))
	resultCh := make(chan readResult, min(e.queueDepth, max(len(order), 1)))

	var submitWG sync.WaitGroup
	for w := 0; w < e.submitWorkers; w++ {
		submitWG.Add(1)
		go func() {
			defer submitWG.Done()
			for job := range jobCh {
				buf, err := e.readBlock(job.loc)
				resultCh <- readResult{loc: job.loc, queries: job.queries, buf: buf, err: err}
			}
		}()
	}

	var waitWG sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex
	for w := 0; w < e.waitWorkers; w++ {
		waitWG.Add(1)
		go func() {
			defer waitWG.Done()
			for r := range resultCh {
				if r.err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = r.err
					}
					errMu.Unlock()
					continue
				}
				e.scanAndMergeRadius(r, queries, threshold, acc, mus)
			}
		}()
	}

	for _, loc := range order {
		jobCh <- readJob{loc: loc, queries: locToQueries[loc]}
	}
	close(jobCh)
	submitWG.Wait()
	close(resultCh)
	waitWG.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	results := make([]Result, len(queries))
	for i, entries := range acc {
		sort.Slice(entries, func(a, b int) bool { return entries[a].dist < entries[b].dist })
		ids := make([]uint32, len(entries))
		dists := make([]float32, len(entries))
		for j, e := range entries {
			ids[j] = e.id
			dists[j] = e.dist
		}
		results[i] = Result{IDs: ids, Dists: dists}
	}
	return results, nil
}

// readBlock fetches one block. Per the fetch engine's I/O contract, an
// open/pread failure or a short read is not a recoverable condition — it
// means the on-disk layout no longer matches what build produced — so
// readBlock aborts the process via observability.Fatalf rather than
// propagating an error a caller could paper over.
func (e *Engine) readBlock(loc Location) ([]byte, error) {
	fd, err := e.cache.get(loc.Cid)
	if err != nil {
		return nil, err
	}
	buf := alignedBuffer(e.blockSize)
	n, err := unix.Pread(fd, buf, int64(loc.Bid)*int64(e.blockSize))
	if err != nil {
		observability.Fatalf("fetch: pread cluster %d block %d: %v", loc.Cid, loc.Bid, err)
	}
	if n != e.blockSize {
		observability.Fatalf("fetch: short read of cluster %d block %d: got %d want %d", loc.Cid, loc.Bid, n, e.blockSize)
	}
	return buf, nil
}

// scanAndMerge decodes one fetched block and, for every query that
// requested it, scores each member against the query vector and offers
// the result into that query's top-k heap. The per-query mutex is held
// only for the O(k) heap update, never across the scan.
func (e *Engine) scanAndMerge(r readResult, queries []Query, heaps []*topKHeap, mus []sync.Mutex) {
	block, err := bucket.DecodeBlockBytes(r.buf, e.dim)
	if err != nil {
		return
	}
	for _, qi := range r.queries {
		query := queries[qi].Vector
		for i, vec := range block.Vectors {
			d := kernel.Distance(e.metric, query, vec)
			mus[qi].Lock()
			heaps[qi].offer(entry{id: block.GlobalIDs[i], dist: d})
			mus[qi].Unlock()
		}
	}
}

// scanAndMergeRadius is scanAndMerge's radius-search counterpart: every
// member scoring within threshold is kept, with no per-query cap.
func (e *Engine) scanAndMergeRadius(r readResult, queries []Query, threshold float32, acc [][]entry, mus []sync.Mutex) {
	block, err := bucket.DecodeBlockBytes(r.buf, e.dim)
	if err != nil {
		return
	}
	for _, qi := range r.queries {
		query := queries[qi].Vector
		for i, vec := range block.Vectors {
			d := kernel.Distance(e.metric, query, vec)
			if d > threshold {
				continue
			}
			mus[qi].Lock()
			acc[qi] = append(acc[qi], entry{id: block.GlobalIDs[i], dist: d})
			mus[qi].Unlock()
		}
	}
}
