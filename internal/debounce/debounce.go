// Package debounce 提供按 key 的可取消延迟任务。
// Package debounce provides cancellable delayed tasks keyed by string.
//
// Each key holds at most one pending task; scheduling again cancels the
// previous one and restarts the delay.
package debounce

import (
	"sync"
	"time"
)

type task struct {
	timer *time.Timer
	gen   uint64
}

// Scheduler 按 key 管理去抖任务 / Scheduler manages debounced tasks per key
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]task
	gen     uint64
	stopped bool
}

func New() *Scheduler {
	return &Scheduler{tasks: map[string]task{}}
}

// Schedule 取消 key 上的待执行任务，并在 delay 后运行 fn。Stop 之后调用无效。
// Schedule cancels any pending task for key and runs fn after delay. No-op after Stop.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if prev, ok := s.tasks[key]; ok {
		prev.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.tasks[key] = task{
		gen: gen,
		timer: time.AfterFunc(delay, func() {
			if !s.claim(key, gen) {
				return
			}
			fn()
		}),
	}
}

// claim 仅当任务仍是该 key 的最新任务时移除并返回 true
func (s *Scheduler) claim(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	cur, ok := s.tasks[key]
	if !ok || cur.gen != gen {
		return false
	}
	delete(s.tasks, key)
	return true
}

// Cancel 取消 key 上的待执行任务，返回是否存在 / Cancel drops the pending task, reporting whether one existed
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, key)
	return true
}

// Pending 是否有待执行任务 / Pending reports whether key has a scheduled task
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// Len 待执行任务数 / Len returns the number of pending tasks
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop 取消全部任务，之后的 Schedule 被忽略
// Stop cancels every pending task; later Schedule calls are ignored
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, key)
	}
}
