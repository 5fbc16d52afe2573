package pipeline

import (
	"fmt"
	"sync"

	"martbuild/pkg/errors"
)

// LockRegistry hands out coarse advisory locks, one writer per target table
// per run. Concurrent runs against the same target serialize here instead of
// interleaving partial materializations.
type LockRegistry struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLockRegistry creates an empty registry
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{held: make(map[string]bool)}
}

var defaultLocks = NewLockRegistry()

// DefaultLocks returns the process-wide registry
func DefaultLocks() *LockRegistry {
	return defaultLocks
}

// Acquire takes the advisory lock for a target table. It fails fast rather
// than queueing: a concurrent run holding any target means this run would
// mix materializations.
func (r *LockRegistry) Acquire(target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.held[target] {
		return errors.New(errors.ErrCodeTargetLocked,
			fmt.Sprintf("Target %s is locked by another run", target)).
			WithSuggestions("Wait for the running build to finish")
	}
	r.held[target] = true
	return nil
}

// AcquireAll takes every lock or none
func (r *LockRegistry) AcquireAll(targets []string) error {
	acquired := make([]string, 0, len(targets))
	for _, target := range targets {
		if err := r.Acquire(target); err != nil {
			r.ReleaseAll(acquired)
			return err
		}
		acquired = append(acquired, target)
	}
	return nil
}

// Release frees the advisory lock for a target table
func (r *LockRegistry) Release(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, target)
}

// ReleaseAll frees a set of locks
func (r *LockRegistry) ReleaseAll(targets []string) {
	for _, target := range targets {
		r.Release(target)
	}
}
