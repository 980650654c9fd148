package umm

import (
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Region is a unified allocation: a span of bytes whose pages each have a well-defined
// resident device (or are unresident before first access). Regions are owned by the Engine;
// callers hold the *Region only as a handle and must not copy it.
type Region struct {
	engine *Engine
	id     uint64
	size   int

	mu    sync.Mutex
	freed bool
	pages []pageState
	data  []byte // pooled backing storage; len(data) == size.

	// inflight tracks pages with a prefetch transfer logically still under way, keyed by
	// page index. Entries are dropped when the destination observes the page (completion is
	// observed, not awaited) or when the page's version moves past them.
	inflight map[int]inflightEntry
}

type inflightEntry struct {
	dest    DeviceID
	version uint64
}

var regionsAlive atomic.Int64

// RegionsAlive returns the number of regions currently allocated and tracked by the package.
func RegionsAlive() int64 {
	return regionsAlive.Load()
}

// Allocate creates a unified region of the given size in bytes, with every page unresident.
// It fails with ErrInvalidSize if size is not positive.
func (e *Engine) Allocate(size int) (*Region, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "Allocate(size=%d)", size)
	}
	numPages := ceilDiv(size, PageSize)
	r := &Region{
		engine:   e,
		size:     size,
		pages:    make([]pageState, numPages),
		data:     e.buffers.Get(size)[:size],
		inflight: make(map[int]inflightEntry),
	}
	for idx := range r.pages {
		r.pages[idx].resident = unresident
	}

	e.mu.Lock()
	e.nextRegionID++
	r.id = e.nextRegionID
	e.regions[r.id] = r
	e.mu.Unlock()

	regionsAlive.Add(1)
	klog.V(2).Infof("Allocated region #%d: %d bytes, %d pages", r.id, size, numPages)
	return r, nil
}

// Free releases the region: subsequent accesses fail with ErrUseAfterFree, and prefetches
// still logically in flight are silently dropped. Freeing an already-freed region is a
// no-op.
func (r *Region) Free() error {
	r.mu.Lock()
	if r.freed {
		r.mu.Unlock()
		return nil
	}
	r.freed = true
	data := r.data
	r.data = nil
	r.pages = nil
	r.inflight = nil
	r.mu.Unlock()

	e := r.engine
	e.mu.Lock()
	delete(e.regions, r.id)
	e.mu.Unlock()
	e.buffers.Return(data)

	regionsAlive.Add(-1)
	klog.V(2).Infof("Freed region #%d", r.id)
	return nil
}

// ID returns the region's identity, unique within its Engine.
func (r *Region) ID() uint64 {
	return r.id
}

// Size returns the region's size in bytes.
func (r *Region) Size() int {
	return r.size
}

// NumPages returns the number of pages backing the region.
func (r *Region) NumPages() int {
	return ceilDiv(r.size, PageSize)
}

// Bytes returns the region's backing storage.
// The slice is owned by the region and becomes invalid after Free.
func (r *Region) Bytes() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.freed {
		return nil, errors.Wrapf(ErrUseAfterFree, "Bytes on region #%d", r.id)
	}
	return r.data, nil
}

// ResidentDevice returns the device currently holding the given page, and whether the page
// is resident at all (false before the page's first access).
func (r *Region) ResidentDevice(page int) (DeviceID, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.freed {
		return 0, false, errors.Wrapf(ErrUseAfterFree, "ResidentDevice on region #%d", r.id)
	}
	if page < 0 || page >= len(r.pages) {
		return 0, false, errors.Wrapf(ErrInvalidSize, "page %d out of range, region #%d has %d pages",
			page, r.id, len(r.pages))
	}
	state := r.pages[page]
	if state.resident == unresident {
		return 0, false, nil
	}
	return state.resident, true, nil
}

// String implements fmt.Stringer.
func (r *Region) String() string {
	return fmt.Sprintf("Region[#%d, %d bytes, %d pages]", r.id, r.size, r.NumPages())
}

// View reinterprets the region's backing storage as a flat slice of T, for kernel bodies
// that read or write actual values. The view aliases the region's memory: it is only valid
// until Free, and the caller is responsible for having made the pages resident first.
func View[T any](r *Region) ([]T, error) {
	data, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	var elem T
	elemSize := int(unsafe.Sizeof(elem))
	n := len(data) / elemSize
	if n == 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "region #%d (%d bytes) too small for even one %T", r.id, r.size, elem)
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(data))), n), nil
}

const (
	// minPooledBufferSize is the minimum size class for pooled region storage (one page).
	minPooledBufferSize = PageSize
	// maxPooledBufferSize is the maximum size class for pooled region storage (64MB).
	maxPooledBufferSize = 64 * 1024 * 1024
)

// bufferPools manages pools of region backing buffers with power-of-2 sizes, so that the
// allocate/free cycles of the optimization loop don't churn the garbage collector.
type bufferPools struct {
	// pools[i] contains buffers of size 2^(i+minShift).
	pools    []sync.Pool
	minShift int
	maxShift int
}

// newBufferPools creates a new bufferPools manager.
func newBufferPools() *bufferPools {
	minShift := bits.TrailingZeros(uint(minPooledBufferSize))
	maxShift := bits.TrailingZeros(uint(maxPooledBufferSize))
	return &bufferPools{
		pools:    make([]sync.Pool, maxShift-minShift+1),
		minShift: minShift,
		maxShift: maxShift,
	}
}

// Get returns a zeroed buffer of at least targetSize bytes; the actual capacity is the next
// power-of-2 >= targetSize. Buffers larger than maxPooledBufferSize are allocated directly.
func (bp *bufferPools) Get(targetSize int) []byte {
	if targetSize <= 0 {
		targetSize = minPooledBufferSize
	}
	shift := bits.Len(uint(targetSize - 1))
	if shift < bp.minShift {
		shift = bp.minShift
	}
	if shift > bp.maxShift {
		return make([]byte, targetSize)
	}
	actualSize := 1 << shift
	if obj := bp.pools[shift-bp.minShift].Get(); obj != nil {
		buf := obj.([]byte)
		clear(buf)
		return buf
	}
	return make([]byte, actualSize)
}

// Return gives a buffer obtained from Get back to its pool for reuse.
// Buffers outside the pooled size classes are left to the garbage collector.
func (bp *bufferPools) Return(buf []byte) {
	size := cap(buf)
	if size < minPooledBufferSize || size > maxPooledBufferSize || bits.OnesCount(uint(size)) != 1 {
		return
	}
	shift := bits.TrailingZeros(uint(size))
	bp.pools[shift-bp.minShift].Put(buf[:size])
}
