package addrtable

import (
	"io"
	"sync"
)

// subscribers 订阅者集合
type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

func (s *subscribers) add(fn func()) (int, io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func())
	}
	s.next++
	id := s.next
	s.fns[id] = fn
	return id, closerFunc(func() error {
		s.remove(id)
		return nil
	})
}

func (s *subscribers) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fns, id)
}

func (s *subscribers) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

// notify 在锁外逐个调用订阅者
func (s *subscribers) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
