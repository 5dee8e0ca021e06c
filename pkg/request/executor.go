// Package request executes PokéAPI calls with at most one call in flight
// per binding. A newer call supersedes an older one instead of racing it,
// and cancellation is reported as a silent outcome, never as an error.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/pokedex-client/pkg/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrEmptyBody is reported when a successful response carries no record.
var ErrEmptyBody = errors.New("empty response body")

// Option configures an Executor.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	name   string
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithName labels the executor in logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Executor binds a request configuration to its latest outcome.
//
// Listeners registered with Subscribe are called synchronously and never
// observe an older outcome after a newer one. They may read Outcome but
// must not call Execute, Cancel or Close.
type Executor[T any] struct {
	doer   transport.Doer
	logger zerolog.Logger

	// lifetime is cancelled by Close and bounds auto-triggered calls.
	lifetime context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup

	mu         sync.Mutex
	binding    Binding
	outcome    Outcome[T]
	generation uint64
	cancel     context.CancelFunc
	closed     bool
	listeners  map[int]func(Outcome[T])
	nextID     int
	published  uint64

	notifyMu  sync.Mutex
	delivered uint64
}

// New creates an executor for binding. Unless binding.Manual is set, the
// first call is started immediately in the background and Outcome reports
// Loading until it settles.
func New[T any](doer transport.Doer, binding Binding, opts ...Option) *Executor[T] {
	o := options{logger: log.Logger}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger.With().Str("component", "request-executor").Logger()
	if o.name != "" {
		logger = logger.With().Str("binding", o.name).Logger()
	}

	lifetime, stop := context.WithCancel(context.Background())
	e := &Executor[T]{
		doer:      doer,
		logger:    logger,
		lifetime:  lifetime,
		stop:      stop,
		binding:   binding,
		listeners: make(map[int]func(Outcome[T])),
	}

	if !binding.Manual {
		e.outcome.Loading = true
		e.mu.Lock()
		e.autoTriggerLocked()
		e.mu.Unlock()
	}
	return e
}

// Configure replaces the stored binding. Unless the new binding is Manual
// a call is started in the background.
func (e *Executor[T]) Configure(binding Binding) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.binding = binding
	if !binding.Manual {
		e.autoTriggerLocked()
	}
}

// Binding returns the stored binding.
func (e *Executor[T]) Binding() Binding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.binding
}

func (e *Executor[T]) autoTriggerLocked() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Execute(e.lifetime)
	}()
}

// Execute performs one call with overrides merged onto the stored binding.
// Any call still in flight on this executor is cancelled first. Loading is
// published before the request is sent.
//
// A call that is superseded, cancelled with Cancel or Close, or whose ctx
// is cancelled returns an outcome with Cancelled set and neither payload
// nor error. A superseded call never changes the executor's outcome, and
// a ctx that is done before the call starts leaves the executor untouched.
func (e *Executor[T]) Execute(ctx context.Context, overrides ...Binding) Outcome[T] {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		executionsTotal.WithLabelValues("cancelled").Inc()
		return cancelledOutcome[T]()
	}
	// A done ctx usually means a newer call already superseded this one;
	// it must not cancel that call in turn.
	if ctx.Err() != nil {
		e.mu.Unlock()
		executionsTotal.WithLabelValues("cancelled").Inc()
		return cancelledOutcome[T]()
	}

	b := e.binding
	for _, o := range overrides {
		b = b.merge(o)
	}

	if e.cancel != nil {
		e.cancel()
		supersessionsTotal.Inc()
		e.logger.Debug().Str("target", b.Target).Msg("Superseding in-flight call")
	}
	e.generation++
	gen := e.generation

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopLifetime := context.AfterFunc(e.lifetime, cancel)
	defer stopLifetime()
	e.cancel = cancel

	e.outcome = Outcome[T]{Payload: e.outcome.Payload, Loading: true}
	e.publishLocked()

	callID := uuid.NewString()
	e.logger.Debug().
		Str("call_id", callID).
		Str("method", methodOrGet(b.Method)).
		Str("target", b.Target).
		Msg("Executing call")

	result := e.perform(callCtx, b)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		executionsTotal.WithLabelValues("cancelled").Inc()
		e.logger.Debug().Str("call_id", callID).Msg("Call superseded")
		return cancelledOutcome[T]()
	}

	e.cancel = nil
	if result.Cancelled {
		e.outcome = result
		e.publishLocked()
		executionsTotal.WithLabelValues("cancelled").Inc()
		e.logger.Debug().Str("call_id", callID).Msg("Call cancelled")
		return result
	}

	e.outcome = result
	e.publishLocked()

	if result.ErrorMessage != "" {
		executionsTotal.WithLabelValues("error").Inc()
		e.logger.Warn().
			Str("call_id", callID).
			Str("method", methodOrGet(b.Method)).
			Str("target", b.Target).
			Int("status", result.StatusCode).
			Str("kind", result.Kind.String()).
			Msg(result.ErrorMessage)
	} else {
		executionsTotal.WithLabelValues("success").Inc()
		e.logger.Debug().
			Str("call_id", callID).
			Int("status", result.StatusCode).
			Msg("Call succeeded")
	}
	return result
}

func (e *Executor[T]) perform(ctx context.Context, b Binding) Outcome[T] {
	resp, err := e.doer.Do(ctx, b.request())
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("call settled after cancellation: %w", context.Canceled)
	}
	if err != nil {
		msg, status, kind := describe(err)
		if kind == FailureCancelled {
			return cancelledOutcome[T]()
		}
		return Outcome[T]{ErrorMessage: msg, StatusCode: status, Kind: kind}
	}

	payload, err := decode[T](resp.Body)
	if err != nil {
		msg, _, _ := describe(err)
		return Outcome[T]{ErrorMessage: msg, StatusCode: resp.StatusCode, Kind: FailureUnknown}
	}
	return Outcome[T]{Payload: payload, StatusCode: resp.StatusCode}
}

// Cancel aborts the in-flight call, if any. The aborted call returns a
// cancelled outcome and the executor's outcome becomes cancelled too.
func (e *Executor[T]) Cancel() {
	e.mu.Lock()
	if e.cancel == nil {
		e.mu.Unlock()
		return
	}
	e.cancel()
	e.cancel = nil
	e.generation++
	e.outcome = cancelledOutcome[T]()
	e.publishLocked()
}

// Outcome returns the current outcome.
func (e *Executor[T]) Outcome() Outcome[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outcome
}

// Subscribe registers fn for every outcome change and returns a func that
// removes it.
func (e *Executor[T]) Subscribe(fn func(Outcome[T])) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			e.mu.Unlock()
		})
	}
}

// Close cancels the in-flight call and waits for background calls to
// return. Later calls to Execute return a cancelled outcome immediately.
func (e *Executor[T]) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
		e.outcome = cancelledOutcome[T]()
	}
	e.generation++
	e.listeners = make(map[int]func(Outcome[T]))
	e.stop()
	e.mu.Unlock()

	e.wg.Wait()
}

// publishLocked hands the current outcome to listeners. It must be called
// with mu held and releases it.
func (e *Executor[T]) publishLocked() {
	outcome := e.outcome
	listeners := make([]func(Outcome[T]), 0, len(e.listeners))
	for id := 0; id < e.nextID; id++ {
		if fn, ok := e.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}

	e.published++
	seq := e.published
	e.mu.Unlock()

	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	if seq <= e.delivered {
		return
	}
	e.delivered = seq

	for _, fn := range listeners {
		fn(outcome)
	}
}

// Fetch performs a single call without keeping an executor around.
func Fetch[T any](ctx context.Context, doer transport.Doer, binding Binding, opts ...Option) Outcome[T] {
	binding.Manual = true
	e := New[T](doer, binding, opts...)
	defer e.Close()
	return e.Execute(ctx)
}

func decode[T any](body []byte) (*T, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	payload := new(T)
	if err := json.Unmarshal(body, payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}

func methodOrGet(method string) string {
	if method == "" {
		return "GET"
	}
	return method
}
