package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/wlanctl/internal/core/ports"
)

// RegistrySubject manages observers and notifies them of registry changes.
type RegistrySubject struct {
	observers []ports.RadioObserver
	mu        sync.RWMutex
}

// NewRegistrySubject creates a new subject.
func NewRegistrySubject() *RegistrySubject {
	return &RegistrySubject{
		observers: make([]ports.RadioObserver, 0),
	}
}

// AddObserver registers a new observer.
func (s *RegistrySubject) AddObserver(observer ports.RadioObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// NotifyAdded tells every observer about a new radio. Observers run inline
// and must not call back into the registry.
func (s *RegistrySubject) NotifyAdded(name string, id uuid.UUID) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		obs.OnRadioAdded(name, id)
	}
}

// NotifyRemoved tells every observer a radio is gone.
func (s *RegistrySubject) NotifyRemoved(name string, id uuid.UUID) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		obs.OnRadioRemoved(name, id)
	}
}
