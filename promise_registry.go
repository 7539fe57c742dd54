package corio

import "sync"

// promiseAllocator mints unique Promise handles. Unlike the teacher's
// weak-pointer/ring-buffer scavenging registry (which exists to reclaim
// promises a JS-side consumer might abandon without ever resolving),
// every Promise minted here is explicitly removed from the Scheduler's
// pToComp index the moment it is observed in Step's Promise-yield
// branch, so there is nothing left to scavenge: this is deliberately
// just an ID counter.
type promiseAllocator struct {
	mu     sync.Mutex
	nextID uint64
}

func newPromiseAllocator() *promiseAllocator {
	return &promiseAllocator{nextID: 1}
}

// New mints a fresh, never-before-issued Promise handle.
func (a *promiseAllocator) New() *Promise {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	return &Promise{id: id}
}
