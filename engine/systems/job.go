package systems

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/ember/engine/core"
)

var (
	ErrTaskAfterLaunch = errors.New("task added after threads were launched")
	ErrNoResult        = errors.New("task produced no result")
)

// Task is one independent unit of work in a batch.
type Task func()

// Scheduler runs a batch of tasks on a fixed number of goroutines. Tasks are
// claimed through a shared atomic index, so workers never block on each
// other. The launching goroutine joins in from WaitForThreads. After the join
// the scheduler is empty and can take a new batch.
type Scheduler struct {
	numThreads int
	tasks      []Task
	next       atomic.Int64
	launched   bool
	wg         sync.WaitGroup
}

/**
 * @brief Creates a scheduler with numThreads workers besides the caller.
 * Without real threads (js/wasm) the count is forced to 0 and the caller runs every task.
 */
func NewScheduler(numThreads int) *Scheduler {
	if runtime.GOOS == "js" || numThreads < 0 {
		numThreads = 0
	}
	return &Scheduler{numThreads: numThreads}
}

// DefaultThreadCount leaves one hardware thread to the caller.
func DefaultThreadCount() int {
	if n := runtime.NumCPU() - 1; n > 0 {
		return n
	}
	return 0
}

func (s *Scheduler) NumThreads() int {
	return s.numThreads
}

// Len returns the number of tasks in the pending batch.
func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// AddTask appends a task to the batch. Adding after LaunchThreads and before
// WaitForThreads panics with ErrTaskAfterLaunch.
func (s *Scheduler) AddTask(task Task) {
	if s.launched {
		panic(ErrTaskAfterLaunch)
	}
	s.tasks = append(s.tasks, task)
}

// LaunchThreads starts the workers on the current batch.
func (s *Scheduler) LaunchThreads() {
	core.Assert(!s.launched, "scheduler launched twice")
	s.launched = true
	s.next.Store(0)
	for i := 0; i < s.numThreads; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.work()
		}()
	}
}

func (s *Scheduler) work() {
	n := int64(len(s.tasks))
	for {
		i := s.next.Add(1) - 1
		if i >= n {
			return
		}
		s.tasks[i]()
	}
}

// WaitForThreads runs tasks on the calling goroutine until none are left,
// waits for the workers and resets the scheduler for the next batch.
func (s *Scheduler) WaitForThreads() {
	core.Assert(s.launched, "waiting on a scheduler that was not launched")
	s.work()
	s.wg.Wait()
	s.tasks = nil
	s.next.Store(0)
	s.launched = false
}

// Run launches the current batch and waits for it.
func (s *Scheduler) Run() {
	s.LaunchThreads()
	s.WaitForThreads()
}

/**
 * @brief Shuts the scheduler down. A batch in flight is joined first.
 */
func (s *Scheduler) Shutdown() error {
	if s.launched {
		s.WaitForThreads()
	}
	s.tasks = nil
	return nil
}

// Result is a mutex-guarded optional a task publishes its output into.
type Result[T any] struct {
	mu    sync.Mutex
	value T
	err   error
	ready bool
}

func (r *Result[T]) Store(value T, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = value
	r.err = err
	r.ready = true
}

// Load returns the stored value, or ErrNoResult when nothing was stored.
func (r *Result[T]) Load() (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		var zero T
		return zero, ErrNoResult
	}
	return r.value, r.err
}

func (r *Result[T]) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}
