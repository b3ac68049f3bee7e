// Package cudart emulates the slice of the CUDA runtime API that a host-side
// BLAS benchmark needs: device enumeration and selection, device memory with
// directional copies, and FIFO streams. The single emulated device is backed
// by the host CPU, so "device memory" lives in the host address space and
// stream work runs on a worker goroutine.
//
// Example usage:
//
//	dev, _ := cudart.FindDevice(os.Args[1:])
//	ctx := cudart.NewContext(dev)
//	defer ctx.Reset()
//
//	d_a, _ := ctx.Malloc(n * 4)
//	ctx.Memcpy(d_a, h_a, n*4, cudart.MemcpyHostToDevice)
package cudart

import (
	"fmt"
	"sync"
)

// Context represents an execution context bound to a device. It owns the
// device memory pool and the default stream. A Context must be created
// before memory or stream operations and reset when no longer needed.
type Context struct {
	device        *Device
	memory        *MemoryPool
	defaultStream *Stream

	mu       sync.Mutex
	streams  []*Stream
	streamID int
	dead     bool
}

// NewContext creates an execution context on the given device. The device
// memory pool is capped at the device's reported total memory.
func NewContext(dev *Device) *Context {
	ctx := &Context{
		device: dev,
		memory: NewMemoryPool(int64(dev.TotalMem)),
	}
	ctx.defaultStream = ctx.CreateStream()
	return ctx
}

// Device returns the device this context is bound to.
func (ctx *Context) Device() *Device {
	return ctx.device
}

// Pool returns the device memory pool, mainly for teardown verification.
func (ctx *Context) Pool() *MemoryPool {
	return ctx.memory
}

// DefaultStream returns the stream used by operations that do not name one.
func (ctx *Context) DefaultStream() *Stream {
	return ctx.defaultStream
}

// CreateStream creates a new execution stream owned by the context.
func (ctx *Context) CreateStream() *Stream {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.streamID++
	s := newStream(ctx.streamID)
	ctx.streams = append(ctx.streams, s)
	return s
}

// Malloc allocates device memory of the specified size in bytes.
func (ctx *Context) Malloc(size int) (DevicePtr, error) {
	return ctx.memory.Allocate(size)
}

// Free releases device memory allocated by Malloc. Safe on the zero
// DevicePtr.
func (ctx *Context) Free(ptr DevicePtr) error {
	return ctx.memory.Free(ptr)
}

// Memcpy copies memory between host and device. Host-to-device and
// device-to-device copies are enqueued on the default stream and may run
// asynchronously with the host; device-to-host copies synchronize the
// stream first and block until the data is on the host side, making them
// the natural point to observe results.
//
// Supported operand types are DevicePtr, []float32, []byte and
// unsafe.Pointer. Anything else fails with a TransferFailed error.
func (ctx *Context) Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	if size < 0 {
		return NewTransferError("Memcpy", fmt.Sprintf("negative size %d", size), nil)
	}

	dstPtr, ok := bytePointer(dst)
	if !ok {
		return NewTransferError("Memcpy", fmt.Sprintf("unsupported dst type %T", dst), nil)
	}
	srcPtr, ok := bytePointer(src)
	if !ok {
		return NewTransferError("Memcpy", fmt.Sprintf("unsupported src type %T", src), nil)
	}
	if size > 0 && (dstPtr == nil || srcPtr == nil) {
		return NewTransferError("Memcpy", "nil operand for non-empty copy", nil)
	}
	if d, isDev := dst.(DevicePtr); isDev && size > d.Size() {
		return NewTransferError("Memcpy",
			fmt.Sprintf("copy of %d bytes overruns %d-byte destination", size, d.Size()), nil)
	}
	if s, isDev := src.(DevicePtr); isDev && size > s.Size() {
		return NewTransferError("Memcpy",
			fmt.Sprintf("copy of %d bytes overruns %d-byte source", size, s.Size()), nil)
	}

	switch kind {
	case MemcpyDeviceToHost:
		// Blocking: the sole synchronization point the benchmark needs.
		ctx.defaultStream.Synchronize()
		memcpy(dstPtr, srcPtr, size)
	case MemcpyHostToHost:
		memcpy(dstPtr, srcPtr, size)
	default:
		ctx.defaultStream.Submit(func() {
			memcpy(dstPtr, srcPtr, size)
		})
	}
	return nil
}

// Synchronize waits for all streams owned by the context to complete.
func (ctx *Context) Synchronize() error {
	ctx.mu.Lock()
	streams := append([]*Stream(nil), ctx.streams...)
	ctx.mu.Unlock()
	for _, s := range streams {
		s.Synchronize()
	}
	return nil
}

// Reset tears the context down: drains and stops all streams. Idempotent.
// Allocations still live in the pool stay reachable but the context must
// not be used after Reset.
func (ctx *Context) Reset() {
	ctx.mu.Lock()
	if ctx.dead {
		ctx.mu.Unlock()
		return
	}
	ctx.dead = true
	streams := append([]*Stream(nil), ctx.streams...)
	ctx.mu.Unlock()

	for _, s := range streams {
		s.close()
	}
}
