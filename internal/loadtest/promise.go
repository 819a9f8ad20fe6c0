package loadtest

import "sync"

// Promise is a single-assignment deferred result. The operation under
// test resolves it exactly once from whatever execution context
// completes the work, passing that context's identity explicitly; the
// race between Resolve and Reject is settled by first-caller-wins and
// the loser is a no-op.
type Promise struct {
	mu         sync.Mutex
	settled    bool
	err        error
	resolvedBy string
	callbacks  []func(resolvedBy string, err error)
	done       chan struct{}
}

// NewPromise creates an unsettled promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolve settles the promise successfully. identity names the
// execution context performing the resolution.
func (p *Promise) Resolve(identity string) {
	p.settle(identity, nil)
}

// Reject settles the promise with a failure.
func (p *Promise) Reject(identity string, err error) {
	p.settle(identity, err)
}

func (p *Promise) settle(identity string, err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	p.resolvedBy = identity
	p.err = err
	callbacks := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mu.Unlock()

	for _, cb := range callbacks {
		cb(identity, err)
	}
}

// Then registers a success and a failure continuation. Exactly one of
// the two runs, exactly once, on the resolving context's goroutine (or
// inline when the promise is already settled). Either continuation may
// be nil.
func (p *Promise) Then(onSuccess func(resolvedBy string), onFailure func(resolvedBy string, err error)) {
	cb := func(resolvedBy string, err error) {
		if err != nil {
			if onFailure != nil {
				onFailure(resolvedBy, err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(resolvedBy)
		}
	}

	p.mu.Lock()
	if !p.settled {
		p.callbacks = append(p.callbacks, cb)
		p.mu.Unlock()
		return
	}
	resolvedBy, err := p.resolvedBy, p.err
	p.mu.Unlock()

	cb(resolvedBy, err)
}

// Done releases once the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Err returns the settled error, or nil while unsettled or on success.
func (p *Promise) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// ResolvedBy returns the identity of the settling context, empty while
// unsettled.
func (p *Promise) ResolvedBy() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolvedBy
}
