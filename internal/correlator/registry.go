// Package correlator tracks outstanding asynchronous broker calls by the
// numeric correlator the session assigned to them.
package correlator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/theirongolddev/qview/internal/broker"
)

// ErrDuplicate is returned when a session hands out a correlator that is
// still outstanding.
var ErrDuplicate = errors.New("correlator already outstanding")

// Continuation runs on the worker once the response for a call arrives.
type Continuation func(result broker.Map)

// PendingCall is one asynchronous call awaiting its response.
type PendingCall struct {
	Correlator uint32
	// Method is kept for logging only; dispatch goes through Then.
	Method string
	Args   broker.Map
	Then   Continuation
	// Failed, if set, runs instead of Then when the broker answers with a fault.
	Failed func(err error)
}

// Registry maps correlators to pending calls. It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	pending map[uint32]*PendingCall
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{pending: make(map[uint32]*PendingCall)}
}

// Register issues a call and records it under the correlator issue returns.
// The lock is held across issue so a response can never be resolved before
// its call is recorded.
func (r *Registry) Register(call *PendingCall, issue func() (uint32, error)) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := issue()
	if err != nil {
		return 0, err
	}
	if _, exists := r.pending[c]; exists {
		return c, fmt.Errorf("%w: %d", ErrDuplicate, c)
	}
	call.Correlator = c
	r.pending[c] = call
	return c, nil
}

// Resolve removes and returns the call registered under c.
// An unknown correlator reports false and changes nothing.
func (r *Registry) Resolve(c uint32) (*PendingCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.pending[c]
	if !ok {
		return nil, false
	}
	delete(r.pending, c)
	return call, true
}

// Len returns the number of outstanding calls.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Abandon drops every outstanding call without running it and returns how
// many were dropped.
func (r *Registry) Abandon() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.pending)
	r.pending = make(map[uint32]*PendingCall)
	return n
}
