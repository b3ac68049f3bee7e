package matmul

import (
	"fmt"
	"time"

	"github.com/FindHao/hpctoolkit-gpu-sanitizer-samples/cublas"
	"github.com/FindHao/hpctoolkit-gpu-sanitizer-samples/cudart"
)

// Both GEMM scalars are fixed for the whole workload: the product is added
// onto the constant-seeded accumulator.
const (
	alpha float32 = 1.0
	beta  float32 = 1.0
)

// BLASHandle is the slice of the cublas surface the dispatcher drives.
// *cublas.Handle satisfies it; tests substitute recorders.
type BLASHandle interface {
	Sgemm(opA, opB cublas.Operation, m, n, k int, alpha float32,
		a cudart.DevicePtr, lda int,
		b cudart.DevicePtr, ldb int,
		beta float32,
		c cudart.DevicePtr, ldc int) error
	Destroy() error
}

// Dispatcher executes the workload in order on the allocated buffers.
// It owns the handle and the buffers for the duration of Run: whatever
// happens, Run leaves the handle destroyed and the device buffers freed.
type Dispatcher struct {
	handle   BLASHandle
	buffers  *Buffers
	workload []Shape

	// EntryDone, when set, is invoked after each entry with the entry's
	// index, shape and elapsed wall time. Setting it makes the dispatcher
	// synchronize the device after every entry so the measurement covers
	// the whole multiply. Dispatch order and buffer reuse are unaffected.
	EntryDone func(index int, shape Shape, elapsed time.Duration)
}

// NewDispatcher builds a dispatcher over the given handle, buffers and
// workload. The buffers must already be uploaded.
func NewDispatcher(handle BLASHandle, buffers *Buffers, w []Shape) *Dispatcher {
	return &Dispatcher{
		handle:   handle,
		buffers:  buffers,
		workload: w,
	}
}

// Run executes every entry in order, downloads the final accumulator into
// the buffers' Result slice, then destroys the handle and frees the device
// buffers. On a per-entry failure the remaining entries are skipped and the
// teardown still runs; the first error wins.
func (d *Dispatcher) Run() error {
	runErr := d.dispatch()

	if err := d.handle.Destroy(); err != nil && runErr == nil {
		runErr = cudart.NewError(cudart.KindHandleFailed, "Dispatch",
			"destroying BLAS handle", err)
	}
	if err := d.buffers.Free(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (d *Dispatcher) dispatch() error {
	for i, s := range d.workload {
		// The initial upload already seeded the accumulator, so the
		// first entry needs no reset.
		if i > 0 {
			if err := d.buffers.ResetAccumulator(); err != nil {
				return err
			}
		}

		start := time.Now()
		if err := d.issue(s); err != nil {
			return cudart.NewError(cudart.KindGemmFailed, "Dispatch",
				fmt.Sprintf("entry %d (M=%d N=%d K=%d)", i+1, s.M, s.N, s.K), err)
		}
		if d.EntryDone != nil {
			d.buffers.ctx.Synchronize()
			d.EntryDone(i, s, time.Since(start))
		}
	}

	return d.buffers.DownloadResult()
}

// issue maps one row-major entry onto the column-major BLAS call.
//
// The workload is row-major C = A*B. The library is column-major, and a
// row-major buffer read column-major is the transpose of the matrix it
// stores. C^T = B^T * A^T therefore turns the whole entry into a single
// no-transpose call with the operands exchanged: B goes in first with
// leading dimension N, A second with leading dimension K, and the
// dimensions are (N, M, K) with output leading dimension N. Read back
// row-major, the output is the intended C with no extra transpose.
func (d *Dispatcher) issue(s Shape) error {
	return d.handle.Sgemm(cublas.OpN, cublas.OpN, s.N, s.M, s.K,
		alpha, d.buffers.DB, s.N,
		d.buffers.DA, s.K,
		beta, d.buffers.DC, s.N)
}
