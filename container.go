package ambientdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
)

// Logger receives registry diagnostics.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// provider is the entry stored for one capability.
// Singleton providers memoize the first construction result, including its error.
type provider struct {
	capability reflect.Type
	mode       Mode
	construct  func() (any, error)

	once     sync.Once
	built    atomic.Bool
	instance any
	err      error
}

// Registry maps capabilities to providers.
// Registration is expected during process configuration; resolution is safe from any goroutine.
type Registry struct {
	providers map[reflect.Type]*provider
	mu        sync.RWMutex
	frozen    bool
	chains    sync.Map
	log       Logger
}

var (
	once            sync.Once
	defaultRegistry *Registry
)

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		providers: make(map[reflect.Type]*provider, 16),
	}
}

// Default returns the process-wide registry.
// It is created on first access.
func Default() *Registry {
	once.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}

func typeOf[C any]() reflect.Type {
	return reflect.TypeOf((*C)(nil)).Elem()
}

func pickMode(mode []Mode) Mode {
	if len(mode) > 0 && mode[0] != "" {
		return mode[0]
	}
	return ModeSingleton
}

// Register adds a provider for capability C to the default registry.
// The constructor's return type makes conformance a compile-time property.
// Mode defaults to ModeSingleton. Re-registration overwrites the previous provider.
func Register[C any](ctor Constructor[C], mode ...Mode) error {
	return RegisterIn(Default(), ctor, mode...)
}

// RegisterIn adds a provider for capability C to the given registry.
func RegisterIn[C any](r *Registry, ctor Constructor[C], mode ...Mode) error {
	capability := typeOf[C]()
	if ctor == nil {
		return &NilProviderError{Type: capability.String()}
	}
	return r.add(capability, pickMode(mode), func() (any, error) {
		return ctor()
	})
}

// Resolve returns the instance provided for capability C by the default registry.
func Resolve[C any]() (C, error) {
	return ResolveFrom[C](Default())
}

// ResolveFrom returns the instance provided for capability C by the given registry.
// Returns NotRegisteredError if nothing provides C.
// Returns InitializationError if the constructor failed.
func ResolveFrom[C any](r *Registry) (C, error) {
	var zero C
	capability := typeOf[C]()

	instance, err := r.resolve(capability)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(C)
	if !ok {
		return zero, &TypeMismatchError{Expected: capability.String(), Got: fmt.Sprintf("%T", instance)}
	}
	return typed, nil
}

// MustResolve resolves C from the default registry and panics on failure.
// Use it only where a missing capability is a programming error.
func MustResolve[C any]() C {
	instance, err := Resolve[C]()
	if err != nil {
		panic(err)
	}
	return instance
}

// SetLogger attaches a logger for registry diagnostics.
func (r *Registry) SetLogger(log Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = log
}

// RegisterType registers a provider for a capability known only at runtime.
// The constructor must be a func() T or func() (T, error). When the capability is an
// interface, T must expose every method of it with a matching signature; the first
// mismatched member is reported as a ConformanceError.
func (r *Registry) RegisterType(capability reflect.Type, constructor any, mode Mode) error {
	if capability == nil {
		return &NilProviderError{Type: "<nil>"}
	}
	ctor := reflect.ValueOf(constructor)
	if !ctor.IsValid() || (ctor.Kind() == reflect.Func && ctor.IsNil()) {
		return &NilProviderError{Type: capability.String()}
	}
	ctorType := ctor.Type()
	if err := checkConstructorShape(capability, ctorType); err != nil {
		return err
	}
	if err := checkConformance(capability, ctorType.Out(0)); err != nil {
		return err
	}

	returnsErr := ctorType.NumOut() == 2
	return r.add(capability, mode, func() (any, error) {
		out := ctor.Call(nil)
		if returnsErr && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	})
}

// Resolve returns the instance provided for a capability known only at runtime.
func (r *Registry) Resolve(capability reflect.Type) (any, error) {
	return r.resolve(capability)
}

// Registered reports whether a provider exists for the capability.
func (r *Registry) Registered(capability reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[capability]
	return ok
}

// Freeze disallows further registration.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Boot constructs every singleton and freezes the registry.
// The first construction failure is returned and the registry stays open, so callers
// can treat it as a fatal startup error.
func (r *Registry) Boot(ctx context.Context) error {
	for _, p := range r.snapshot(ModeSingleton) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.resolve(p.capability); err != nil {
			return err
		}
	}

	r.Freeze()
	if log := r.logger(); log != nil {
		log.Info("registry booted", "providers", len(r.snapshot("")))
	}
	return nil
}

// Shutdown closes every constructed singleton implementing Closer or io.Closer.
// Closed singletons are reset, so a later resolution constructs a new instance.
// Close methods run without the registry lock held and may resolve capabilities.
func (r *Registry) Shutdown(ctx context.Context) error {
	var (
		errs   []error
		closed []*provider
	)
	for _, p := range r.snapshot(ModeSingleton) {
		if !p.built.Load() || p.err != nil {
			continue
		}

		var closeErr error
		switch instance := p.instance.(type) {
		case Closer:
			closeErr = instance.Close(ctx)
		case io.Closer:
			closeErr = instance.Close()
		default:
			continue
		}
		if closeErr != nil {
			errs = append(errs, &ShutdownError{Type: p.capability.String(), Err: closeErr})
		}
		closed = append(closed, p)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range closed {
		if r.providers[p.capability] == p {
			r.providers[p.capability] = &provider{capability: p.capability, mode: p.mode, construct: p.construct}
		}
	}
	r.frozen = false

	return errors.Join(errs...)
}

// Reset clears all registry state.
// This function is intended for testing purposes only.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers = make(map[reflect.Type]*provider, 16)
	r.frozen = false
	r.chains = sync.Map{}
}

// Boot constructs every singleton of the default registry.
func Boot(ctx context.Context) error {
	return Default().Boot(ctx)
}

// Shutdown closes the singletons of the default registry.
func Shutdown(ctx context.Context) error {
	return Default().Shutdown(ctx)
}

// Reset clears the default registry.
// This function is intended for testing purposes only.
func Reset() {
	Default().Reset()
}

func (r *Registry) add(capability reflect.Type, mode Mode, construct func() (any, error)) error {
	if !mode.valid() {
		return &InvalidModeError{Type: capability.String(), Mode: mode}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}
	if _, exists := r.providers[capability]; exists && r.log != nil {
		r.log.Debug("provider overwritten", "capability", capability.String(), "mode", string(mode))
	}

	r.providers[capability] = &provider{
		capability: capability,
		mode:       mode,
		construct:  construct,
	}
	return nil
}

func (r *Registry) resolve(capability reflect.Type) (any, error) {
	if capability == nil {
		return nil, &NotRegisteredError{Type: "<nil>"}
	}

	r.mu.RLock()
	p, ok := r.providers[capability]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotRegisteredError{Type: capability.String()}
	}

	if p.mode == ModeSingleton && p.built.Load() {
		return p.instance, p.err
	}

	id, err := r.startResolving(capability)
	if err != nil {
		return nil, err
	}
	defer r.finishResolving(id, capability)

	if p.mode == ModeFactory {
		instance, err := p.construct()
		if err != nil {
			return nil, &InitializationError{Type: capability.String(), Err: err}
		}
		return instance, nil
	}

	p.once.Do(func() {
		defer func() {
			if !p.built.Load() {
				p.err = &InitializationError{Type: capability.String(), Err: errors.New("constructor panicked")}
				p.built.Store(true)
			}
		}()

		instance, err := p.construct()
		if err != nil {
			p.err = &InitializationError{Type: capability.String(), Err: err}
		} else {
			p.instance = instance
		}
		p.built.Store(true)
	})

	return p.instance, p.err
}

func (r *Registry) snapshot(mode Mode) []*provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*provider, 0, len(r.providers))
	for _, p := range r.providers {
		if mode == "" || p.mode == mode {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].capability.String() < list[j].capability.String()
	})
	return list
}

func (r *Registry) logger() Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.log
}
