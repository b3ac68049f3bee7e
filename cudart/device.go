package cudart

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

// Device represents a compute device. The runtime emulates a single GPU on
// the host CPU, so there is exactly one device with ordinal 0. Each device
// reports an identity and a compute capability derived from the SIMD tier
// of the underlying hardware.
type Device struct {
	ID       int    // Device ordinal
	Name     string // Human-readable device name
	TotalMem uint64 // Total available memory in bytes
	NumCores int    // Number of CPU cores backing the device
	Major    int    // Compute capability, major
	Minor    int    // Compute capability, minor
}

var (
	devices       []*Device
	currentDevice int
)

func init() {
	major, minor := computeCapability()
	devices = []*Device{{
		ID:       0,
		Name:     deviceName(),
		TotalMem: memory.TotalMemory(),
		NumCores: runtime.NumCPU(),
		Major:    major,
		Minor:    minor,
	}}
}

// deviceName builds the identity string reported in the device banner.
func deviceName() string {
	return fmt.Sprintf("%s CPU (%s, %d cores)",
		strings.ToUpper(runtime.GOARCH), simdTier(), runtime.NumCPU())
}

// computeCapability maps the detected SIMD tier onto a capability pair so
// that callers written against the GPU runtime see a familiar major.minor.
// The mapping is fixed: AVX-512 -> 8.0, AVX2+FMA -> 6.1, NEON -> 5.3,
// SSE4 -> 3.5, anything else -> 1.0.
func computeCapability() (major, minor int) {
	switch simdTier() {
	case "AVX-512":
		return 8, 0
	case "AVX2":
		return 6, 1
	case "NEON":
		return 5, 3
	case "SSE4":
		return 3, 5
	default:
		return 1, 0
	}
}

// GetDeviceCount returns the number of available devices.
func GetDeviceCount() int {
	return len(devices)
}

// GetDeviceProperties returns the properties of the device with the given
// ordinal. Identification of an unknown ordinal fails with a
// PropertyQueryFailed error.
func GetDeviceProperties(id int) (*Device, error) {
	if id < 0 || id >= len(devices) {
		return nil, NewError(KindPropertyQueryFailed, "GetDeviceProperties",
			fmt.Sprintf("no properties for device ordinal %d", id), nil)
	}
	return devices[id], nil
}

// SetDevice makes the device with the given ordinal current. An ordinal no
// device answers to fails with a DeviceUnavailable error.
func SetDevice(id int) error {
	if id < 0 || id >= len(devices) {
		return NewDeviceError("SetDevice",
			fmt.Sprintf("device ordinal %d requested, %d device(s) present", id, len(devices)))
	}
	currentDevice = id
	return nil
}

// GetDevice returns the ordinal of the current device.
func GetDevice() int {
	return currentDevice
}

// FindDevice selects a compute device from a raw argument list. It honors
// the sample-utility device flag in either of its spellings
// (--device=<ordinal> or -device=<ordinal>) and ignores every other
// argument. Without a device flag, device 0 is selected.
//
// Selection of an ordinal no device answers to fails with a
// DeviceUnavailable error.
func FindDevice(args []string) (*Device, error) {
	id := 0
	for _, arg := range args {
		s, ok := strings.CutPrefix(arg, "--device=")
		if !ok {
			s, ok = strings.CutPrefix(arg, "-device=")
		}
		if !ok {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, NewDeviceError("FindDevice",
				fmt.Sprintf("malformed device ordinal %q", s))
		}
		id = n
	}
	if err := SetDevice(id); err != nil {
		return nil, err
	}
	return devices[id], nil
}

// Banner returns the one-line device identification printed at startup:
//
//	GPU Device 0: "AMD64 CPU (AVX2, 16 cores)" with compute capability 6.1
func (d *Device) Banner() string {
	return fmt.Sprintf("GPU Device %d: %q with compute capability %d.%d",
		d.ID, d.Name, d.Major, d.Minor)
}
