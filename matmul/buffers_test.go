package matmul

import (
	"testing"

	"github.com/FindHao/hpctoolkit-gpu-sanitizer-samples/cudart"
)

func testContext(t *testing.T) *cudart.Context {
	t.Helper()
	dev, err := cudart.GetDeviceProperties(0)
	if err != nil {
		t.Fatalf("No device: %v", err)
	}
	ctx := cudart.NewContext(dev)
	t.Cleanup(ctx.Reset)
	return ctx
}

var smallWorkload = []Shape{
	{M: 2, N: 4, K: 3},
	{M: 3, N: 2, K: 5},
	{M: 2, N: 3, K: 2},
}

func TestAllocateBuffersSizing(t *testing.T) {
	ctx := testContext(t)

	bufs, err := AllocateBuffers(ctx, smallWorkload)
	if err != nil {
		t.Fatalf("Allocation failed: %v", err)
	}
	defer bufs.Free()

	maxMK, maxKN, maxMN := MaxSizes(smallWorkload)
	if len(bufs.HostA) != maxMK || bufs.DA.Size() != maxMK*4 {
		t.Errorf("A buffers sized %d/%d, expected %d elements", len(bufs.HostA), bufs.DA.Size()/4, maxMK)
	}
	if len(bufs.HostB) != maxKN || bufs.DB.Size() != maxKN*4 {
		t.Errorf("B buffers sized %d/%d, expected %d elements", len(bufs.HostB), bufs.DB.Size()/4, maxKN)
	}
	if len(bufs.HostC) != maxMN || bufs.DC.Size() != maxMN*4 {
		t.Errorf("C buffers sized %d/%d, expected %d elements", len(bufs.HostC), bufs.DC.Size()/4, maxMN)
	}
	if len(bufs.Result) != maxMN {
		t.Errorf("Result shadow sized %d, expected %d", len(bufs.Result), maxMN)
	}

	// Every workload entry must fit in the shared buffers.
	for i, s := range smallWorkload {
		if s.ElemsA() > maxMK || s.ElemsB() > maxKN || s.ElemsC() > maxMN {
			t.Errorf("Entry %d does not fit in the sized buffers", i+1)
		}
	}
}

func TestAllocateBuffersFullWorkload(t *testing.T) {
	ctx := testContext(t)

	bufs, err := AllocateBuffers(ctx, Workload())
	if err != nil {
		t.Fatalf("Full-size allocation failed: %v", err)
	}
	defer bufs.Free()

	if bufs.DA.Size() != 884736*4 {
		t.Errorf("dA sized %d bytes, expected %d", bufs.DA.Size(), 884736*4)
	}
	if bufs.DB.Size() != 4672512*4 {
		t.Errorf("dB sized %d bytes, expected %d", bufs.DB.Size(), 4672512*4)
	}
	if bufs.DC.Size() != 2768896*4 {
		t.Errorf("dC sized %d bytes, expected %d", bufs.DC.Size(), 2768896*4)
	}
}

func TestAllocateBuffersEmptyWorkload(t *testing.T) {
	ctx := testContext(t)
	if _, err := AllocateBuffers(ctx, nil); err == nil {
		t.Fatal("Expected error for empty workload")
	}
}

// On allocation failure nothing may stay allocated.
func TestAllocateBuffersPartialRelease(t *testing.T) {
	// A device too small for the B buffer but big enough for A.
	dev := &cudart.Device{ID: 0, Name: "tiny", TotalMem: uint64(884736*4 + 1024)}
	ctx := cudart.NewContext(dev)
	defer ctx.Reset()

	_, err := AllocateBuffers(ctx, Workload())
	if err == nil {
		t.Fatal("Expected allocation to fail on the tiny device")
	}
	if !cudart.IsMemoryError(err) {
		t.Errorf("Expected OutOfMemory kind, got %v", err)
	}
	if live := ctx.Pool().LiveAllocations(); live != 0 {
		t.Errorf("Partial allocations leaked: %d blocks live", live)
	}
}

func TestFillConstant(t *testing.T) {
	ctx := testContext(t)
	bufs, err := AllocateBuffers(ctx, smallWorkload)
	if err != nil {
		t.Fatalf("Allocation failed: %v", err)
	}
	defer bufs.Free()

	bufs.FillConstant(1.0)
	for name, host := range map[string][]float32{"A": bufs.HostA, "B": bufs.HostB, "C": bufs.HostC} {
		for i, v := range host {
			if v != 1.0 {
				t.Fatalf("Host %s element %d is %v, expected 1.0", name, i, v)
			}
		}
	}
}

// ResetAccumulator restores the device accumulator to the host seed no
// matter what the previous entry left behind.
func TestResetAccumulator(t *testing.T) {
	ctx := testContext(t)
	bufs, err := AllocateBuffers(ctx, smallWorkload)
	if err != nil {
		t.Fatalf("Allocation failed: %v", err)
	}
	defer bufs.Free()

	bufs.FillConstant(1.0)
	if err := bufs.UploadAll(); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	// Dirty the accumulator as a completed entry would.
	garbage := make([]float32, len(bufs.HostC))
	for i := range garbage {
		garbage[i] = float32(i) + 100
	}
	if err := ctx.Memcpy(bufs.DC, garbage, len(garbage)*4, cudart.MemcpyHostToDevice); err != nil {
		t.Fatalf("Dirtying copy failed: %v", err)
	}

	if err := bufs.ResetAccumulator(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if err := bufs.DownloadResult(); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	for i, v := range bufs.Result {
		if v != 1.0 {
			t.Fatalf("Accumulator element %d is %v after reset, expected 1.0", i, v)
		}
	}
}

func TestBuffersFreeIdempotent(t *testing.T) {
	ctx := testContext(t)
	bufs, err := AllocateBuffers(ctx, smallWorkload)
	if err != nil {
		t.Fatalf("Allocation failed: %v", err)
	}

	if err := bufs.Free(); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if err := bufs.Free(); err != nil {
		t.Errorf("Second free should be a no-op, got %v", err)
	}
	if live := ctx.Pool().LiveAllocations(); live != 0 {
		t.Errorf("%d device blocks still live after free", live)
	}
}
