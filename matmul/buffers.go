package matmul

import (
	"fmt"

	"github.com/FindHao/hpctoolkit-gpu-sanitizer-samples/cudart"
)

// Buffers owns the three device regions a workload runs against and their
// host-side counterparts. The regions are sized once to the workload's
// maxima and reused by every entry; they are never reallocated mid-run.
//
// HostC doubles as the accumulator seed: ResetAccumulator re-uploads it so
// each entry starts from the fill constant instead of the previous entry's
// output. Result is the separate shadow the final download lands in.
type Buffers struct {
	ctx *cudart.Context

	DA, DB, DC cudart.DevicePtr

	HostA, HostB, HostC []float32
	Result              []float32

	freed bool
}

// AllocateBuffers sizes the three device regions from the workload and
// allocates them together with the host buffers. On any allocation failure
// the regions already allocated are released before the error is returned.
func AllocateBuffers(ctx *cudart.Context, w []Shape) (*Buffers, error) {
	if len(w) == 0 {
		return nil, cudart.NewInvalidArgError("AllocateBuffers", "empty workload")
	}
	maxMK, maxKN, maxMN := MaxSizes(w)

	b := &Buffers{ctx: ctx}
	var err error
	if b.DA, err = ctx.Malloc(maxMK * 4); err != nil {
		return nil, allocFailed(b, "A", maxMK, err)
	}
	if b.DB, err = ctx.Malloc(maxKN * 4); err != nil {
		return nil, allocFailed(b, "B", maxKN, err)
	}
	if b.DC, err = ctx.Malloc(maxMN * 4); err != nil {
		return nil, allocFailed(b, "C", maxMN, err)
	}

	b.HostA = make([]float32, maxMK)
	b.HostB = make([]float32, maxKN)
	b.HostC = make([]float32, maxMN)
	b.Result = make([]float32, maxMN)
	return b, nil
}

func allocFailed(b *Buffers, name string, elems int, err error) error {
	b.Free()
	return cudart.NewMemoryError("AllocateBuffers",
		fmt.Sprintf("device buffer %s (%d elements)", name, elems), err)
}

// FillConstant writes v to every element of the host buffers.
func (b *Buffers) FillConstant(v float32) {
	fill(b.HostA, v)
	fill(b.HostB, v)
	fill(b.HostC, v)
}

func fill(s []float32, v float32) {
	for i := range s {
		s[i] = v
	}
}

// UploadAll copies the three host buffers to their device counterparts.
func (b *Buffers) UploadAll() error {
	if err := b.ctx.Memcpy(b.DA, b.HostA, len(b.HostA)*4, cudart.MemcpyHostToDevice); err != nil {
		return err
	}
	if err := b.ctx.Memcpy(b.DB, b.HostB, len(b.HostB)*4, cudart.MemcpyHostToDevice); err != nil {
		return err
	}
	return b.ResetAccumulator()
}

// ResetAccumulator re-copies the host C buffer into the device accumulator,
// restoring the fill constant. Running it between entries keeps entry i+1's
// starting state independent of entry i's numerical output.
func (b *Buffers) ResetAccumulator() error {
	return b.ctx.Memcpy(b.DC, b.HostC, len(b.HostC)*4, cudart.MemcpyHostToDevice)
}

// DownloadResult copies the device accumulator back into Result. The copy
// blocks until all device work ahead of it has finished.
func (b *Buffers) DownloadResult() error {
	return b.ctx.Memcpy(b.Result, b.DC, len(b.Result)*4, cudart.MemcpyDeviceToHost)
}

// Free releases the three device regions. Idempotent; the host slices are
// left for the garbage collector.
func (b *Buffers) Free() error {
	if b.freed {
		return nil
	}
	b.freed = true

	var firstErr error
	for _, ptr := range []cudart.DevicePtr{b.DA, b.DB, b.DC} {
		if ptr.IsNil() {
			continue
		}
		if err := b.ctx.Free(ptr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.DA, b.DB, b.DC = cudart.DevicePtr{}, cudart.DevicePtr{}, cudart.DevicePtr{}
	return firstErr
}
