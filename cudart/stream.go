package cudart

import (
	"sync"
)

// Stream represents an ordered sequence of device operations. Work items
// submitted to a stream execute asynchronously with the host but strictly
// first-in-first-out with respect to each other, which is what makes the
// copy-then-compute pattern safe without host synchronization.
type Stream struct {
	id        int
	tasks     chan func()
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newStream(id int) *Stream {
	s := &Stream{
		id:    id,
		tasks: make(chan func(), 1024),
	}
	go s.worker()
	return s
}

// worker drains the task queue in submission order.
func (s *Stream) worker() {
	for task := range s.tasks {
		task()
		s.wg.Done()
	}
}

// Submit enqueues a work item. Blocks only when queue capacity is exceeded.
func (s *Stream) Submit(task func()) {
	s.wg.Add(1)
	s.tasks <- task
}

// Synchronize waits for all previously submitted work to complete.
func (s *Stream) Synchronize() {
	s.wg.Wait()
}

// close drains outstanding work and stops the worker. Idempotent.
func (s *Stream) close() {
	s.closeOnce.Do(func() {
		s.wg.Wait()
		close(s.tasks)
	})
}
