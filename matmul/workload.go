// Package matmul drives a fixed sequence of single-precision matrix
// multiplications through the cublas package and owns everything around the
// dispatch: the workload table, the device buffer lifecycle, and optional
// per-entry timing. The shapes reproduce the image-to-column lowered
// convolutions of a small object-detection network, which is what makes the
// sequence an interesting BLAS benchmark.
package matmul

// Shape describes one row-major multiply C[MxN] = A[MxK] * B[KxN].
// Alpha and beta are 1.0 for every entry in this benchmark and are not part
// of the shape.
type Shape struct {
	M, N, K int
}

// ElemsA returns the element count of the left operand.
func (s Shape) ElemsA() int { return s.M * s.K }

// ElemsB returns the element count of the right operand.
func (s Shape) ElemsB() int { return s.K * s.N }

// ElemsC returns the element count of the result.
func (s Shape) ElemsC() int { return s.M * s.N }

// FLOPs returns the floating point operations one multiply performs,
// counting a multiply-add as two.
func (s Shape) FLOPs() int64 {
	return 2 * int64(s.M) * int64(s.N) * int64(s.K)
}

// workload is the canonical eleven-entry sequence. Order matters: the three
// device buffers are shared across entries, so reordering changes what each
// entry observes. The sequence is the contract; conv.go records where it
// comes from.
var workload = []Shape{
	{M: 16, N: 173056, K: 27},
	{M: 32, N: 43264, K: 144},
	{M: 64, N: 10816, K: 288},
	{M: 128, N: 2704, K: 576},
	{M: 256, N: 676, K: 1152},
	{M: 512, N: 169, K: 2304},
	{M: 256, N: 169, K: 1024},
	{M: 255, N: 169, K: 512},
	{M: 128, N: 169, K: 256},
	{M: 256, N: 676, K: 3456},
	{M: 255, N: 676, K: 256},
}

// Workload returns the benchmark's GEMM sequence in execution order.
// Callers get a fresh slice; the underlying table never changes.
func Workload() []Shape {
	w := make([]Shape, len(workload))
	copy(w, workload)
	return w
}

// MaxSizes returns the largest operand element counts across the workload:
// max(M*K), max(K*N) and max(M*N). Buffer allocation is driven by these so
// every entry fits without reallocation.
func MaxSizes(w []Shape) (maxMK, maxKN, maxMN int) {
	for _, s := range w {
		maxMK = max(maxMK, s.ElemsA())
		maxKN = max(maxKN, s.ElemsB())
		maxMN = max(maxMN, s.ElemsC())
	}
	return maxMK, maxKN, maxMN
}
