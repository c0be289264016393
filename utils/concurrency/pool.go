// Package concurrency implements a simple channel based worker pool used to
// spread mutually independent share operations (e.g. the rows of a local
// matrix product) across goroutines.
package concurrency

import (
	"sync"
)

// Pool stores a channel of reusable resources (e.g. scratch buffers) meant
// to be used concurrently, and a channel collecting task errors.
type Pool[T any] struct {
	sync.WaitGroup
	resources chan T
	errs      chan error
}

// NewPool instantiates a new [Pool] over the given resources. The number of
// resources bounds the number of tasks running concurrently.
func NewPool[T any](resources []T) *Pool[T] {
	p := &Pool[T]{
		resources: make(chan T, len(resources)),
		errs:      make(chan error, len(resources)),
	}
	for i := range resources {
		p.resources <- resources[i]
	}
	return p
}

// Task is a unit of work taking a resource usable concurrently.
type Task[T any] func(resource T) (err error)

// Run runs a [Task] concurrently. If an error has already been recorded,
// the task is dropped; the batch is failing anyway.
func (p *Pool[T]) Run(f Task[T]) {
	p.Add(1)
	go func() {
		defer p.Done()
		if len(p.errs) != 0 {
			return
		}
		resource := <-p.resources
		if err := f(resource); err != nil {
			if len(p.errs) < cap(p.errs) {
				p.errs <- err
			}
		}
		p.resources <- resource
	}()
}

// Wait waits until all submitted tasks have finished and returns the first
// encountered error, if any.
func (p *Pool[T]) Wait() error {
	p.WaitGroup.Wait()
	if len(p.errs) != 0 {
		return <-p.errs
	}
	return nil
}
