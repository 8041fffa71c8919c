package vehicle

import "sync"

// State holds the readiness flag. It is observational only: nothing is
// rejected because the vehicle is busy.
type State struct {
	mu        sync.Mutex
	readiness Readiness
}

// NewState returns a flag that starts Busy, like a vehicle that has not connected yet.
func NewState() *State {
	return &State{readiness: Busy}
}

func (s *State) Get() Readiness {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readiness
}

func (s *State) Set(r Readiness) {
	s.mu.Lock()
	s.readiness = r
	s.mu.Unlock()
}

func (s *State) Ready() bool {
	return s.Get() == Ready
}
