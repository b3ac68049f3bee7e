package matmul

import (
	"fmt"
)

// ConvLayer describes a 2D convolution over a single image. After
// image-to-column lowering a convolution becomes one GEMM: the filter bank
// flattens to an OutChannels x (InChannels*KH*KW) matrix, the unrolled
// input patches form a (InChannels*KH*KW) x (OutH*OutW) matrix, and the
// product is the layer output.
type ConvLayer struct {
	InChannels  int
	OutChannels int
	InHeight    int
	InWidth     int
	Kernel      int // square kernel, KH == KW
	Stride      int
	Pad         int
}

// Validate checks the layer dimensions.
func (l ConvLayer) Validate() error {
	if l.InChannels <= 0 || l.OutChannels <= 0 {
		return fmt.Errorf("invalid channel counts %d -> %d", l.InChannels, l.OutChannels)
	}
	if l.InHeight <= 0 || l.InWidth <= 0 {
		return fmt.Errorf("invalid input size %dx%d", l.InHeight, l.InWidth)
	}
	if l.Kernel <= 0 || l.Stride <= 0 || l.Pad < 0 {
		return fmt.Errorf("invalid kernel/stride/pad %d/%d/%d", l.Kernel, l.Stride, l.Pad)
	}
	return nil
}

// OutputHeight computes the spatial output height.
func (l ConvLayer) OutputHeight() int {
	return (l.InHeight+2*l.Pad-l.Kernel)/l.Stride + 1
}

// OutputWidth computes the spatial output width.
func (l ConvLayer) OutputWidth() int {
	return (l.InWidth+2*l.Pad-l.Kernel)/l.Stride + 1
}

// GEMMShape returns the (M, N, K) of the lowered multiply:
// M = OutChannels, N = OutH*OutW, K = InChannels*Kernel*Kernel.
func (l ConvLayer) GEMMShape() Shape {
	return Shape{
		M: l.OutChannels,
		N: l.OutputHeight() * l.OutputWidth(),
		K: l.InChannels * l.Kernel * l.Kernel,
	}
}

// detectionLayers is the provenance of the workload table: the convolutional
// layers of a tiny YOLO-style detector on a 416x416 input, in forward order.
// The 3x3 layers sit behind 2x2 maxpools, which is why the spatial size
// halves between them; the 1x1 layers are the detection heads. Lowering
// each layer reproduces the canonical table exactly (see the conv test).
var detectionLayers = []ConvLayer{
	{InChannels: 3, OutChannels: 16, InHeight: 416, InWidth: 416, Kernel: 3, Stride: 1, Pad: 1},
	{InChannels: 16, OutChannels: 32, InHeight: 208, InWidth: 208, Kernel: 3, Stride: 1, Pad: 1},
	{InChannels: 32, OutChannels: 64, InHeight: 104, InWidth: 104, Kernel: 3, Stride: 1, Pad: 1},
	{InChannels: 64, OutChannels: 128, InHeight: 52, InWidth: 52, Kernel: 3, Stride: 1, Pad: 1},
	{InChannels: 128, OutChannels: 256, InHeight: 26, InWidth: 26, Kernel: 3, Stride: 1, Pad: 1},
	{InChannels: 256, OutChannels: 512, InHeight: 13, InWidth: 13, Kernel: 3, Stride: 1, Pad: 1},
	{InChannels: 1024, OutChannels: 256, InHeight: 13, InWidth: 13, Kernel: 1, Stride: 1, Pad: 0},
	{InChannels: 512, OutChannels: 255, InHeight: 13, InWidth: 13, Kernel: 1, Stride: 1, Pad: 0},
	{InChannels: 256, OutChannels: 128, InHeight: 13, InWidth: 13, Kernel: 1, Stride: 1, Pad: 0},
	{InChannels: 384, OutChannels: 256, InHeight: 26, InWidth: 26, Kernel: 3, Stride: 1, Pad: 1},
	{InChannels: 256, OutChannels: 255, InHeight: 26, InWidth: 26, Kernel: 1, Stride: 1, Pad: 0},
}

// DetectionLayers returns the network layers the workload derives from.
func DetectionLayers() []ConvLayer {
	l := make([]ConvLayer, len(detectionLayers))
	copy(l, detectionLayers)
	return l
}
