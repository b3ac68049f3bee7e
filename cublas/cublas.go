// Package cublas provides a handle-based, column-major single-precision GEMM
// in the style of the vendor BLAS it stands in for. Calls validate their
// arguments the way the vendor library does, then execute on the owning
// context's default stream through the float32 BLAS implementation
// registered with gonum's blas32 package (the pure Go gonum kernels by
// default, a cgo system BLAS when built with the cgo backend file).
package cublas

import (
	"fmt"
	"sync"

	"github.com/FindHao/hpctoolkit-gpu-sanitizer-samples/cudart"
)

// Operation specifies whether a matrix operand is used as-is or transposed.
type Operation int

const (
	// OpN uses the operand without transposition
	OpN Operation = iota
	// OpT uses the transpose of the operand
	OpT
)

// Status mirrors the vendor library's status codes.
type Status int

const (
	StatusSuccess         Status = 0
	StatusNotInitialized  Status = 1
	StatusAllocFailed     Status = 3
	StatusInvalidValue    Status = 7
	StatusExecutionFailed Status = 13
	StatusInternalError   Status = 14
)

// Error implements the error interface so a bare status can be returned
// and matched with errors.Is.
func (s Status) Error() string {
	switch s {
	case StatusSuccess:
		return "CUBLAS_STATUS_SUCCESS"
	case StatusNotInitialized:
		return "CUBLAS_STATUS_NOT_INITIALIZED"
	case StatusAllocFailed:
		return "CUBLAS_STATUS_ALLOC_FAILED"
	case StatusInvalidValue:
		return "CUBLAS_STATUS_INVALID_VALUE"
	case StatusExecutionFailed:
		return "CUBLAS_STATUS_EXECUTION_FAILED"
	case StatusInternalError:
		return "CUBLAS_STATUS_INTERNAL_ERROR"
	default:
		return fmt.Sprintf("CUBLAS_STATUS_UNKNOWN(%d)", int(s))
	}
}

// statusError wraps a status with the failing operation and a detail line.
func statusError(s Status, op, detail string) error {
	return fmt.Errorf("cublas %s: %s: %w", op, detail, s)
}

// Handle is the library context required by every BLAS call. It pins the
// cudart context whose stream the calls execute on. A destroyed handle
// rejects further calls with StatusNotInitialized.
type Handle struct {
	mu        sync.Mutex
	ctx       *cudart.Context
	stream    *cudart.Stream
	destroyed bool
}

// Create initializes a library handle on the given context.
func Create(ctx *cudart.Context) (*Handle, error) {
	if ctx == nil {
		return nil, statusError(StatusNotInitialized, "Create", "nil runtime context")
	}
	return &Handle{
		ctx:    ctx,
		stream: ctx.DefaultStream(),
	}, nil
}

// Destroy releases the handle. Work already enqueued through the handle is
// drained first. Destroy is idempotent; only the first call does anything.
func (h *Handle) Destroy() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return nil
	}
	h.destroyed = true
	h.stream.Synchronize()
	return nil
}

// Live reports whether the handle still accepts calls.
func (h *Handle) Live() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.destroyed
}

func (h *Handle) checkLive(op string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return statusError(StatusNotInitialized, op, "handle already destroyed")
	}
	return nil
}
