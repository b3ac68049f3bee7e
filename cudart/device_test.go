package cudart

import (
	"errors"
	"regexp"
	"testing"
)

func TestDeviceCount(t *testing.T) {
	if n := GetDeviceCount(); n != 1 {
		t.Fatalf("Expected exactly one emulated device, got %d", n)
	}
}

func TestGetDeviceProperties(t *testing.T) {
	dev, err := GetDeviceProperties(0)
	if err != nil {
		t.Fatalf("Property query for device 0 failed: %v", err)
	}
	if dev.ID != 0 {
		t.Errorf("Expected ordinal 0, got %d", dev.ID)
	}
	if dev.Name == "" {
		t.Error("Device name is empty")
	}
	if dev.NumCores <= 0 {
		t.Errorf("Implausible core count %d", dev.NumCores)
	}
	if dev.TotalMem == 0 {
		t.Error("Total memory reported as zero")
	}

	for _, bad := range []int{-1, 1, 99} {
		_, err := GetDeviceProperties(bad)
		if err == nil {
			t.Errorf("Expected error for ordinal %d", bad)
			continue
		}
		if !IsKind(err, KindPropertyQueryFailed) {
			t.Errorf("Expected PropertyQueryFailed for ordinal %d, got %v", bad, err)
		}
	}
}

func TestFindDevice(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantID  int
		wantErr ErrorKind
		isErr   bool
	}{
		{name: "no args", args: nil, wantID: 0},
		{name: "explicit zero", args: []string{"--device=0"}, wantID: 0},
		{name: "single dash", args: []string{"-device=0"}, wantID: 0},
		{name: "unknown flags ignored", args: []string{"--frobnicate", "-x=3", "--device=0"}, wantID: 0},
		{name: "missing ordinal", args: []string{"--device=5"}, isErr: true, wantErr: KindDeviceUnavailable},
		{name: "negative ordinal", args: []string{"--device=-1"}, isErr: true, wantErr: KindDeviceUnavailable},
		{name: "malformed ordinal", args: []string{"--device=zero"}, isErr: true, wantErr: KindDeviceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := FindDevice(tt.args)
			if tt.isErr {
				if err == nil {
					t.Fatalf("Expected error for args %v", tt.args)
				}
				if !IsKind(err, tt.wantErr) {
					t.Fatalf("Expected kind %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindDevice(%v) failed: %v", tt.args, err)
			}
			if dev.ID != tt.wantID {
				t.Errorf("Expected device %d, got %d", tt.wantID, dev.ID)
			}
		})
	}
}

func TestSetDevice(t *testing.T) {
	if err := SetDevice(0); err != nil {
		t.Fatalf("SetDevice(0) failed: %v", err)
	}
	if got := GetDevice(); got != 0 {
		t.Errorf("Expected current device 0, got %d", got)
	}
	if err := SetDevice(7); !IsKind(err, KindDeviceUnavailable) {
		t.Errorf("Expected DeviceUnavailable for ordinal 7, got %v", err)
	}
	if got := GetDevice(); got != 0 {
		t.Errorf("Failed SetDevice must not change the current device, got %d", got)
	}
}

func TestBannerFormat(t *testing.T) {
	dev, err := GetDeviceProperties(0)
	if err != nil {
		t.Fatalf("Property query failed: %v", err)
	}

	pattern := regexp.MustCompile(`^GPU Device \d+: "[^"]+" with compute capability \d+\.\d+$`)
	banner := dev.Banner()
	if !pattern.MatchString(banner) {
		t.Errorf("Banner %q does not match required pattern", banner)
	}
}

func TestErrorKindStrings(t *testing.T) {
	kinds := map[ErrorKind]string{
		KindDeviceUnavailable:   "DeviceUnavailable",
		KindPropertyQueryFailed: "PropertyQueryFailed",
		KindOutOfMemory:         "OutOfMemory",
		KindTransferFailed:      "TransferFailed",
		KindGemmFailed:          "GemmFailed",
		KindHandleFailed:        "HandleFailed",
		KindInvalidArg:          "InvalidArgument",
	}
	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("Kind %d: expected %q, got %q", int(kind), want, got)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	err := NewTransferError("Memcpy", "copy failed", cause)
	if !errors.Is(err, cause) {
		t.Error("Wrapped cause not reachable through errors.Is")
	}
	kind, ok := KindOf(err)
	if !ok || kind != KindTransferFailed {
		t.Errorf("Expected TransferFailed kind, got %v (ok=%v)", kind, ok)
	}
}
