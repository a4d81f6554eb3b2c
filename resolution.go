package ambientdb

import (
	"reflect"
	"runtime"
	"strconv"
	"strings"
)

// resolutionChain holds the capabilities currently being constructed by one goroutine.
// It is only touched by the goroutine that owns it.
type resolutionChain struct {
	active map[reflect.Type]struct{}
}

// goid returns the current goroutine ID.
// Constructors may resolve other capabilities, so the chain is tracked per goroutine
// to turn self-resolution into an error instead of a deadlock on the singleton guard.
func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	idField := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))[0]
	id, _ := strconv.ParseInt(idField, 10, 64)
	return id
}

func (r *Registry) startResolving(capability reflect.Type) (int64, error) {
	id := goid()
	value, _ := r.chains.LoadOrStore(id, &resolutionChain{active: make(map[reflect.Type]struct{}, 4)})
	chain := value.(*resolutionChain)

	if _, busy := chain.active[capability]; busy {
		return id, &CircularDependencyError{Type: capability.String()}
	}
	chain.active[capability] = struct{}{}
	return id, nil
}

func (r *Registry) finishResolving(id int64, capability reflect.Type) {
	value, ok := r.chains.Load(id)
	if !ok {
		return
	}
	chain := value.(*resolutionChain)
	delete(chain.active, capability)
	if len(chain.active) == 0 {
		r.chains.Delete(id)
	}
}
