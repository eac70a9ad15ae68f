// Package registry keeps the radios of the process, keyed by interface
// name, each with a stable identifier.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/wlanctl/internal/core/ports"
	"github.com/lcalzada-xor/wlanctl/internal/core/services/radio"
)

var ErrDuplicate = errors.New("registry: radio already registered")

// Entry is a registered radio.
type Entry struct {
	ID    uuid.UUID
	Radio *radio.Radio
	Added time.Time
}

// Registry is a concurrency safe set of radios.
type Registry struct {
	mu      sync.RWMutex
	radios  map[string]Entry
	subject *RegistrySubject
}

func New() *Registry {
	return &Registry{
		radios:  make(map[string]Entry),
		subject: NewRegistrySubject(),
	}
}

// AddObserver registers o for add and remove notifications.
func (r *Registry) AddObserver(o ports.RadioObserver) {
	r.subject.AddObserver(o)
}

// Add registers rd under its name and returns the identifier assigned to it.
func (r *Registry) Add(rd *radio.Radio) (uuid.UUID, error) {
	name := rd.Name()

	r.mu.Lock()
	if _, ok := r.radios[name]; ok {
		r.mu.Unlock()
		return uuid.Nil, fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	e := Entry{ID: uuid.New(), Radio: rd, Added: time.Now()}
	r.radios[name] = e
	r.mu.Unlock()

	r.subject.NotifyAdded(name, e.ID)
	return e.ID, nil
}

// Get returns the radio registered as name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.radios[name]
	return e, ok
}

// Remove unregisters name, reporting whether it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	e, ok := r.radios[name]
	delete(r.radios, name)
	r.mu.Unlock()

	if ok {
		r.subject.NotifyRemoved(name, e.ID)
	}
	return ok
}

// List returns every entry ordered by radio name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.radios))
	for _, e := range r.radios {
		out = append(out, e)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Entry) int {
		return strings.Compare(a.Radio.Name(), b.Radio.Name())
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.radios)
}
