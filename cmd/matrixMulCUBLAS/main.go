// Command matrixMulCUBLAS benchmarks the GEMM sequence of an image-to-column
// lowered detection network against the cublas package.
//
// Usage:
//
//	matrixMulCUBLAS [--device=<ordinal>] [-timing-log=<file>] [-v]
//
// Unknown flags are ignored, matching the sample-utility argument contract.
// Exit code is 0 when all workload entries complete and non-zero on the
// first fatal error.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tebeka/atexit"

	"github.com/FindHao/hpctoolkit-gpu-sanitizer-samples/cublas"
	"github.com/FindHao/hpctoolkit-gpu-sanitizer-samples/cudart"
	"github.com/FindHao/hpctoolkit-gpu-sanitizer-samples/matmul"
)

type options struct {
	timingLog string
	verbose   bool
}

// parseArgs scans the raw argument list the way the sample utilities do:
// recognized flags are picked out, everything else is ignored. The device
// flag is handled separately by cudart.FindDevice over the same list.
func parseArgs(args []string) options {
	var opts options
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		trimmed := strings.TrimPrefix(arg, "-")
		trimmed = strings.TrimPrefix(trimmed, "-")
		switch {
		case trimmed == "v" || trimmed == "verbose":
			opts.verbose = true
		case strings.HasPrefix(trimmed, "timing-log="):
			opts.timingLog = strings.TrimPrefix(trimmed, "timing-log=")
		}
	}
	return opts
}

func main() {
	fmt.Println("[Matrix Multiply CUBLAS] - Starting...")

	opts := parseArgs(os.Args[1:])
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if opts.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	dev, err := cudart.FindDevice(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	fmt.Println(dev.Banner())
	fmt.Println()

	if err := run(dev, opts); err != nil {
		fatal(err)
	}
	atexit.Exit(0)
}

// fatal reports the error kind and location hint, then exits non-zero
// through atexit so registered flushes still run.
func fatal(err error) {
	ev := log.Error()
	if kind, ok := cudart.KindOf(err); ok {
		ev = ev.Str("kind", kind.String())
	}
	ev.Msg(err.Error())
	atexit.Exit(1)
}

func run(dev *cudart.Device, opts options) error {
	ctx := cudart.NewContext(dev)
	defer ctx.Reset()

	w := matmul.Workload()
	bufs, err := matmul.AllocateBuffers(ctx, w)
	if err != nil {
		return err
	}
	bufs.FillConstant(1.0)
	if err := bufs.UploadAll(); err != nil {
		bufs.Free()
		return err
	}

	handle, err := cublas.Create(ctx)
	if err != nil {
		bufs.Free()
		return cudart.NewError(cudart.KindHandleFailed, "Create",
			"creating BLAS handle", err)
	}

	disp := matmul.NewDispatcher(handle, bufs, w)
	if opts.timingLog != "" {
		tl := matmul.NewTimingLog(opts.timingLog)
		tl.Attach(disp)
		atexit.Register(func() {
			if err := tl.Flush(); err != nil {
				log.Warn().Err(err).Msg("final timing log flush failed")
			}
		})
		log.Debug().Str("path", opts.timingLog).Msg("per-entry timing enabled")
	}

	// Run tears down the handle and the device buffers on every path.
	return disp.Run()
}
