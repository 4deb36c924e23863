package hornetq

import "sync"

// Invocation is one proxied method call moving down a dispatch pipeline.
type Invocation struct {
	Method    string
	Arguments [][]byte
}

// Handler advances an invocation to the next step of the pipeline.
type Handler func(invocation *Invocation) ([]byte, error)

// Interceptor is one step of a dispatch pipeline. An interceptor may inspect
// or rewrite the invocation, short-circuit it, or pass it to next.
type Interceptor interface {
	Name() string
	Invoke(invocation *Invocation, next Handler) ([]byte, error)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(invocation *Invocation, next Handler) ([]byte, error)

// Name returns the fixed name for function interceptors.
func (f InterceptorFunc) Name() string { return "func" }

// Invoke runs the adapted function.
func (f InterceptorFunc) Invoke(invocation *Invocation, next Handler) ([]byte, error) {
	return f(invocation, next)
}

// DispatchPipeline is the ordered chain every local call on a handle passes
// through before reaching the handle's remote dispatch. The terminal step is
// installed by DelegateSupport.Attach; driving a pipeline with no terminal is
// a programming error.
type DispatchPipeline struct {
	lock         sync.RWMutex
	interceptors []Interceptor
	terminal     Handler
	terminalName string
}

// NewDispatchPipeline returns an empty pipeline.
func NewDispatchPipeline() *DispatchPipeline {
	return &DispatchPipeline{}
}

// Append adds an interceptor after the ones already registered.
func (pipeline *DispatchPipeline) Append(interceptor Interceptor) *DispatchPipeline {
	if interceptor == nil {
		return pipeline
	}
	pipeline.lock.Lock()
	pipeline.interceptors = append(pipeline.interceptors, interceptor)
	pipeline.lock.Unlock()
	return pipeline
}

func (pipeline *DispatchPipeline) setTerminal(name string, terminal Handler) error {
	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()
	if pipeline.terminal != nil {
		return NewError(IllegalStateError, "pipeline already has terminal step "+pipeline.terminalName)
	}
	pipeline.terminal = terminal
	pipeline.terminalName = name
	return nil
}

// Call drives a method invocation through the chain: each interceptor in
// registration order, then the terminal remote dispatch.
func (pipeline *DispatchPipeline) Call(method string, arguments ...[]byte) ([]byte, error) {
	pipeline.lock.RLock()
	interceptors := pipeline.interceptors
	terminal := pipeline.terminal
	pipeline.lock.RUnlock()

	if terminal == nil {
		return nil, NewError(IllegalStateError, "dispatch pipeline has no terminal step; handle not attached")
	}

	// Wrap back to front so the first registered interceptor runs first.
	next := terminal
	for index := len(interceptors) - 1; index >= 0; index-- {
		interceptor := interceptors[index]
		downstream := next
		next = func(invocation *Invocation) ([]byte, error) {
			return interceptor.Invoke(invocation, downstream)
		}
	}

	return next(&Invocation{Method: method, Arguments: arguments})
}
