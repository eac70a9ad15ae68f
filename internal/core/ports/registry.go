package ports

import "github.com/google/uuid"

// RadioObserver is notified when radios join or leave the registry.
type RadioObserver interface {
	OnRadioAdded(name string, id uuid.UUID)
	OnRadioRemoved(name string, id uuid.UUID)
}
