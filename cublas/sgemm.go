package cublas

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/FindHao/hpctoolkit-gpu-sanitizer-samples/cudart"
)

// Sgemm performs the single-precision general matrix multiply
//
//	C <- alpha*op(A)*op(B) + beta*C
//
// with column-major operands, matching the vendor convention: op(A) is
// m x k, op(B) is k x n and C is m x n. Leading dimensions count the
// stride between successive columns.
//
// Row-major callers use the usual identity: because reinterpreting
// row-major storage as column-major transposes the matrix for free,
// a row-major product C = A*B is obtained from a single no-transpose
// call with the operands exchanged and the dimensions given as
// (n, m, k) with leading dimensions (n, k, n).
//
// The call validates its arguments synchronously and enqueues the
// computation on the handle's stream; it may return before the result
// is ready. A device-to-host copy of C (or a stream synchronize)
// observes the finished product.
func (h *Handle) Sgemm(opA, opB Operation, m, n, k int, alpha float32,
	a cudart.DevicePtr, lda int,
	b cudart.DevicePtr, ldb int,
	beta float32,
	c cudart.DevicePtr, ldc int) error {

	if err := h.checkLive("Sgemm"); err != nil {
		return err
	}
	if err := checkOperation(opA); err != nil {
		return err
	}
	if err := checkOperation(opB); err != nil {
		return err
	}
	if m < 0 || n < 0 || k < 0 {
		return statusError(StatusInvalidValue, "Sgemm",
			fmt.Sprintf("negative dimension in (m,n,k)=(%d,%d,%d)", m, n, k))
	}

	// Column-major leading dimension rules.
	arows, acols := m, k
	if opA == OpT {
		arows, acols = k, m
	}
	brows, bcols := k, n
	if opB == OpT {
		brows, bcols = n, k
	}
	if lda < max(1, arows) {
		return statusError(StatusInvalidValue, "Sgemm",
			fmt.Sprintf("lda=%d < %d", lda, max(1, arows)))
	}
	if ldb < max(1, brows) {
		return statusError(StatusInvalidValue, "Sgemm",
			fmt.Sprintf("ldb=%d < %d", ldb, max(1, brows)))
	}
	if ldc < max(1, m) {
		return statusError(StatusInvalidValue, "Sgemm",
			fmt.Sprintf("ldc=%d < %d", ldc, max(1, m)))
	}

	if err := checkCapacity("A", a, lda, acols); err != nil {
		return err
	}
	if err := checkCapacity("B", b, ldb, bcols); err != nil {
		return err
	}
	if err := checkCapacity("C", c, ldc, n); err != nil {
		return err
	}

	if m == 0 || n == 0 {
		return nil
	}

	af := a.Float32()
	bf := b.Float32()
	cf := c.Float32()
	impl := blas32.Implementation()

	// The registered implementation is row-major. A column-major matrix
	// read as row-major is its transpose, so C^T = op(B)^T * op(A)^T
	// turns the column-major call into a row-major one with the operand
	// order and the (m, n) pair swapped. The op flags carry over
	// unchanged.
	h.stream.Submit(func() {
		impl.Sgemm(transpose(opB), transpose(opA), n, m, k,
			alpha, bf, ldb, af, lda, beta, cf, ldc)
	})
	return nil
}

func checkOperation(op Operation) error {
	if op != OpN && op != OpT {
		return statusError(StatusInvalidValue, "Sgemm",
			fmt.Sprintf("unsupported operation %d", int(op)))
	}
	return nil
}

// checkCapacity verifies that cols columns of ld elements fit in the
// operand's allocation.
func checkCapacity(name string, p cudart.DevicePtr, ld, cols int) error {
	if p.IsNil() {
		return statusError(StatusInvalidValue, "Sgemm", name+" is nil")
	}
	need := ld * cols
	if have := p.Size() / 4; have < need {
		return statusError(StatusInvalidValue, "Sgemm",
			fmt.Sprintf("%s holds %d elements, call touches %d", name, have, need))
	}
	return nil
}

func transpose(op Operation) blas.Transpose {
	if op == OpT {
		return blas.Trans
	}
	return blas.NoTrans
}
