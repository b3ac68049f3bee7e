package cudart

import (
	"fmt"
	"sync"
	"unsafe"
)

// MemcpyKind specifies the direction of memory transfer. The emulated
// device shares the host address space, so the kinds exist for API
// compatibility and for validation of caller intent.
type MemcpyKind int

const (
	MemcpyHostToHost     MemcpyKind = iota // Host to host transfer
	MemcpyHostToDevice                     // Host to device transfer
	MemcpyDeviceToHost                     // Device to host transfer
	MemcpyDeviceToDevice                   // Device to device transfer
	MemcpyDefault                          // Default transfer (infer direction)
)

// DevicePtr represents a pointer to device memory. Use Float32 to view the
// underlying elements, and Offset for sub-regions.
type DevicePtr struct {
	ptr    unsafe.Pointer
	size   int
	offset int
}

// MemoryPool manages device memory allocation with free-list reuse. A pool
// created with a byte limit rejects allocations that would exceed it, which
// is how the emulated device runs out of memory.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[uintptr]*allocation
	freeList   []*allocation
	limit      int64
	totalAlloc int64
	peakAlloc  int64
}

type allocation struct {
	ptr  unsafe.Pointer
	buf  []byte // keeps the backing array reachable
	size int
	used bool
}

// Allocation alignment, in bytes. Matches cache line size so float32 views
// start SIMD-aligned.
const memoryAlignment = 64

// NewMemoryPool creates a new memory pool. A limit of 0 means unbounded.
func NewMemoryPool(limit int64) *MemoryPool {
	return &MemoryPool{
		allocated: make(map[uintptr]*allocation),
		limit:     limit,
	}
}

// Allocate allocates device memory from the pool.
func (mp *MemoryPool) Allocate(size int) (DevicePtr, error) {
	if size <= 0 {
		return DevicePtr{}, ErrInvalidSize
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	alignedSize := (size + memoryAlignment - 1) &^ (memoryAlignment - 1)

	// Reuse from the free list when a block is large enough.
	for i, alloc := range mp.freeList {
		if alloc.size >= alignedSize {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			alloc.used = true
			mp.account(int64(alloc.size))
			return DevicePtr{ptr: alloc.ptr, size: size}, nil
		}
	}

	if mp.limit > 0 && mp.totalAlloc+int64(alignedSize) > mp.limit {
		return DevicePtr{}, NewMemoryError("Malloc",
			fmt.Sprintf("allocation of %d bytes exceeds pool limit of %d bytes", alignedSize, mp.limit), nil)
	}

	buf := make([]byte, alignedSize)
	alloc := &allocation{
		ptr:  unsafe.Pointer(&buf[0]),
		buf:  buf,
		size: alignedSize,
		used: true,
	}
	mp.allocated[uintptr(alloc.ptr)] = alloc
	mp.account(int64(alignedSize))

	return DevicePtr{ptr: alloc.ptr, size: size}, nil
}

func (mp *MemoryPool) account(delta int64) {
	mp.totalAlloc += delta
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}
}

// Free returns memory to the pool. Freeing an unknown pointer or freeing
// twice is reported as an error; freeing the zero DevicePtr is a no-op.
func (mp *MemoryPool) Free(ptr DevicePtr) error {
	if ptr.ptr == nil {
		return nil
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[uintptr(ptr.ptr)]
	if !ok {
		return NewMemoryError("Free", "pointer not found in allocation pool", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(alloc.size)
	return nil
}

// Stats returns currently allocated and peak allocated bytes.
func (mp *MemoryPool) Stats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// LiveAllocations returns the number of blocks currently in use. Teardown
// checks use this to verify nothing leaked.
func (mp *MemoryPool) LiveAllocations() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	n := 0
	for _, alloc := range mp.allocated {
		if alloc.used {
			n++
		}
	}
	return n
}

// DevicePtr methods

// IsNil reports whether the pointer refers to no allocation.
func (d DevicePtr) IsNil() bool {
	return d.ptr == nil
}

// Size returns the size in bytes of the memory region.
func (d DevicePtr) Size() int {
	return d.size
}

// Float32 returns a float32 slice view of the device memory.
//
// Example:
//
//	d_data, _ := ctx.Malloc(1024 * 4) // room for 1024 float32s
//	data := d_data.Float32()
//	data[0] = 3.14
func (d DevicePtr) Float32() []float32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(d.ptr), d.size/4)
}

// Byte returns a byte slice view of the entire memory region.
func (d DevicePtr) Byte() []byte {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(d.ptr), d.size)
}

// Offset returns a new DevicePtr advanced by the given number of bytes.
// The returned pointer shares the same underlying memory.
func (d DevicePtr) Offset(bytes int) DevicePtr {
	return DevicePtr{
		ptr:    unsafe.Pointer(uintptr(d.ptr) + uintptr(bytes)),
		size:   d.size - bytes,
		offset: d.offset + bytes,
	}
}

// bytePointer resolves the supported Memcpy operand types to a raw pointer.
func bytePointer(v interface{}) (unsafe.Pointer, bool) {
	switch s := v.(type) {
	case DevicePtr:
		return s.ptr, true
	case unsafe.Pointer:
		return s, true
	case []byte:
		if len(s) == 0 {
			return nil, true
		}
		return unsafe.Pointer(&s[0]), true
	case []float32:
		if len(s) == 0 {
			return nil, true
		}
		return unsafe.Pointer(&s[0]), true
	}
	return nil, false
}

// memcpy performs the raw copy once both operands are resolved.
func memcpy(dst, src unsafe.Pointer, size int) {
	if dst == nil || src == nil || size <= 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(src), size))
}
