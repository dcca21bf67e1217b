package kestrel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrelnet/kestrel/core"
)

// State is a Call's lifecycle state (spec §3): idle -> running ->
// (completed | cancelled). Re-execution is a programming error.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

// lifecycle is the shared helper struct every Call composes: atomic
// state transitions plus a cancellation flag, modeling the source's
// BaseCall inheritance as composition instead (spec §9).
type lifecycle struct {
	state     int32
	cancelled int32
	mu        sync.Mutex
	cancelFn  context.CancelFunc
}

func (l *lifecycle) transitionToRunning() bool {
	return atomic.CompareAndSwapInt32(&l.state, int32(StateIdle), int32(StateRunning))
}

func (l *lifecycle) finish() {
	if atomic.LoadInt32(&l.cancelled) == 1 {
		atomic.StoreInt32(&l.state, int32(StateCancelled))
	} else {
		atomic.StoreInt32(&l.state, int32(StateCompleted))
	}
}

func (l *lifecycle) setCancelFn(fn context.CancelFunc) {
	l.mu.Lock()
	l.cancelFn = fn
	l.mu.Unlock()
}

// Cancel is idempotent: it sets the cancellation signal and, if a
// cancellation handle has been installed (Execute is underway), signals
// it (spec §4.5).
func (l *lifecycle) Cancel() {
	atomic.StoreInt32(&l.cancelled, 1)
	l.mu.Lock()
	fn := l.cancelFn
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (l *lifecycle) IsCancelled() bool {
	return atomic.LoadInt32(&l.cancelled) == 1
}

func (l *lifecycle) State() State {
	return State(atomic.LoadInt32(&l.state))
}

// Call is a one-shot wrapper around a request with cancellation (spec
// §3, §4.5). Created via Client.NewCall; dies after one Execute.
type Call struct {
	client    *Client
	request   core.Request
	lifecycle lifecycle
}

func newCall(client *Client, req core.Request) *Call {
	return &Call{client: client, request: req}
}

// Cancel sets the cancellation signal; idempotent, safe from any state.
func (call *Call) Cancel() {
	call.lifecycle.Cancel()
}

// IsCancelled reports whether Cancel has been called.
func (call *Call) IsCancelled() bool {
	return call.lifecycle.IsCancelled()
}

// State returns the call's current lifecycle state.
func (call *Call) State() State {
	return call.lifecycle.State()
}

// Execute runs the call to completion (spec §4.5):
//  1. Atomically transitions idle -> running; a second execution panics
//     (re-execution is a programming error, not a recoverable error).
//  2. If cancelled is already set, fails with Cancelled().
//  3. Resolves the request (base URL, default headers, default timeout).
//  4. Constructs a fresh chain over the client's interceptors and
//     transport.
//  5. Invokes the chain; returns the response or propagates the error.
//  6. Transitions to completed unless cancellation was observed.
func (call *Call) Execute(ctx context.Context) (core.Response, error) {
	if !call.lifecycle.transitionToRunning() {
		panic("kestrel: call already executed")
	}
	defer call.lifecycle.finish()

	if call.lifecycle.IsCancelled() {
		return core.Response{}, core.Cancelled()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	call.lifecycle.setCancelFn(cancel)

	req := call.client.resolveURL(call.request)
	req = call.client.mergeDefaultHeaders(req)
	req = call.client.applyDefaultTimeout(req)

	if call.client.config.EnableDeduplication && req.IsCacheable() {
		return call.executeDeduplicated(ctx, req)
	}
	return call.run(ctx, req)
}

func (call *Call) executeDeduplicated(ctx context.Context, req core.Request) (core.Response, error) {
	key := call.client.dedupKey(req)
	v, err, _ := call.client.dedup.Do(key, func() (interface{}, error) {
		return call.run(ctx, req)
	})
	resp, _ := v.(core.Response)
	return resp, err
}

func (call *Call) run(ctx context.Context, req core.Request) (core.Response, error) {
	chain := core.NewChain(ctx, call.client.config.Interceptors, call.client.config.Transport, req, call.lifecycle.IsCancelled)

	start := time.Now()
	resp, err := chain.Run()
	elapsed := time.Since(start)

	metrics := call.client.config.MetricsCollector
	if err != nil {
		kind := core.Kind("unknown")
		if ne, ok := err.(*core.NetworkError); ok {
			kind = ne.Kind
		}
		metrics.RecordError(core.ErrorMetricEvent{Method: req.Method, URL: req.URL, Kind: kind})
		return resp, err
	}

	metrics.RecordRequest(core.RequestMetricEvent{
		Method:     req.Method,
		URL:        req.URL,
		Status:     resp.Status,
		DurationMS: float64(elapsed.Microseconds()) / 1000.0,
	})
	return resp, nil
}
