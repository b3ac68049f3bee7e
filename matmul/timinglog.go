package matmul

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EntryTiming captures the measured cost of a single workload entry.
type EntryTiming struct {
	Entry     int           `json:"entry"` // 1-based position in the workload
	M         int           `json:"m"`
	N         int           `json:"n"`
	K         int           `json:"k"`
	Duration  time.Duration `json:"duration_ns"`
	GFLOPS    float64       `json:"gflops"`
	Timestamp time.Time     `json:"timestamp"`
}

// TimingLog accumulates per-entry timings and writes them to a JSON file.
// It plugs into the dispatcher's EntryDone hook, so enabling it changes
// nothing about dispatch order or buffer reuse. Every record is flushed to
// disk immediately so a crash loses nothing.
type TimingLog struct {
	mu      sync.Mutex
	path    string
	entries []EntryTiming
}

// NewTimingLog creates a timing log that writes to path.
func NewTimingLog(path string) *TimingLog {
	return &TimingLog{path: path}
}

// Attach registers the log as the dispatcher's per-entry hook.
func (l *TimingLog) Attach(d *Dispatcher) {
	d.EntryDone = l.Record
}

// Record logs one entry's timing. Matches the EntryDone signature.
func (l *TimingLog) Record(index int, s Shape, elapsed time.Duration) {
	gflops := 0.0
	if elapsed > 0 {
		gflops = float64(s.FLOPs()) / elapsed.Seconds() / 1e9
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, EntryTiming{
		Entry:     index + 1,
		M:         s.M,
		N:         s.N,
		K:         s.K,
		Duration:  elapsed,
		GFLOPS:    gflops,
		Timestamp: time.Now(),
	})
	if err := l.flush(); err != nil {
		log.Warn().Err(err).Str("path", l.path).Msg("timing log flush failed")
	}
}

// Flush writes the accumulated timings to the log file.
func (l *TimingLog) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flush()
}

func (l *TimingLog) flush() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0644)
}

// Entries returns a copy of the timings recorded so far.
func (l *TimingLog) Entries() []EntryTiming {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EntryTiming, len(l.entries))
	copy(out, l.entries)
	return out
}
