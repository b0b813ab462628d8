package core

import "sync"

// Interface to control the spawn of new goroutines. All goroutines
// spawned by the library go through an Invoker, so tests can join
// every spawned routine before verifying.
type Invoker interface {
	// Spawn the function on a new goroutine.
	Spawn(f func())
}

type defaultInvoker struct{}

func (defaultInvoker) Spawn(f func()) {
	go f()
}

var (
	invokerOnce     sync.Once
	invokerInstance Invoker
)

// InvokerInstance returns the process-wide default invoker.
func InvokerInstance() Invoker {
	invokerOnce.Do(func() {
		invokerInstance = defaultInvoker{}
	})
	return invokerInstance
}
