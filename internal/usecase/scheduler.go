package usecase

import "sync"

// scheduler runs actions one at a time in post order. The goroutine that
// posts into an idle scheduler drains the queue, including actions posted
// while it runs, so actions never nest and never run concurrently.
type scheduler struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

func (s *scheduler) post(action func()) {
	s.mu.Lock()
	s.queue = append(s.queue, action)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()
		next()
		s.mu.Lock()
	}
	s.queue = nil
	s.running = false
	s.mu.Unlock()
}
