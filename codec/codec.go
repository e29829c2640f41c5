// Package codec provides the default serialization capability for
// transporting calls across the worker boundary.
//
// Go has no way to serialize an arbitrary closure, so transportable
// callables are named functions held in an explicit Registry; a call is
// encoded as its function's registered name plus gob-encoded arguments.
// Anything the registry or gob cannot represent is rejected at encode time,
// which the pool surfaces as a submission error before any work starts.
package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
	"sync"

	"github.com/parfor-go/parfor/pool"
)

// Registry maps stable names to task functions so callables can cross the
// boundary by reference. Closures cannot be registered usefully: encoding
// looks the function up by its code pointer, and every closure instance has
// captured state the name cannot carry.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]pool.Func
	byPtr  map[uintptr]string
}

// NewRegistry creates an empty function registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]pool.Func),
		byPtr:  make(map[uintptr]string),
	}
}

// Register binds fn to name on both sides of the boundary. Registering a
// different function under an existing name is an error.
func (r *Registry) Register(name string, fn pool.Func) error {
	if name == "" || fn == nil {
		return fmt.Errorf("codec: register %q: name and function must be non-empty", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ptr := reflect.ValueOf(fn).Pointer()
	if prev, ok := r.byName[name]; ok {
		if reflect.ValueOf(prev).Pointer() != ptr {
			return fmt.Errorf("codec: register %q: name already bound to a different function", name)
		}
		return nil
	}
	r.byName[name] = fn
	r.byPtr[ptr] = name
	return nil
}

func (r *Registry) nameOf(fn pool.Func) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byPtr[reflect.ValueOf(fn).Pointer()]
	return name, ok
}

func (r *Registry) funcOf(name string) (pool.Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.byName[name]
	return fn, ok
}

// payload is the wire form of a call.
type payload struct {
	Fn     string
	Item   any
	Args   []any
	Kwargs map[string]any
}

// Gob is a pool.Codec encoding calls as gob payloads, with callables
// resolved through a Registry.
type Gob struct {
	reg *Registry
}

// NewGob creates a codec backed by the given registry.
func NewGob(reg *Registry) *Gob {
	return &Gob{reg: reg}
}

// RegisterType makes a concrete item or argument type transportable. It
// forwards to gob.Register and follows its rules: each concrete type carried
// inside an interface value must be registered once, on both sides.
func RegisterType(v any) {
	gob.Register(v)
}

// Encode serializes a call, rejecting callables that are not registered and
// argument values gob cannot represent.
func (g *Gob) Encode(c pool.Call) ([]byte, error) {
	name, ok := g.reg.nameOf(c.Fn)
	if !ok {
		return nil, &pool.SerializationError{
			Reason: "callable is not a registered function and cannot cross the worker boundary",
		}
	}

	var buf bytes.Buffer
	p := payload{Fn: name, Item: c.Item, Args: c.Args, Kwargs: c.Kwargs}
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, &pool.SerializationError{Reason: "arguments cannot be encoded", Err: err}
	}
	return buf.Bytes(), nil
}

// Decode reconstructs a call on the worker side of the boundary.
func (g *Gob) Decode(b []byte) (pool.Call, error) {
	var p payload
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&p); err != nil {
		return pool.Call{}, fmt.Errorf("codec: decode payload: %w", err)
	}

	fn, ok := g.reg.funcOf(p.Fn)
	if !ok {
		return pool.Call{}, fmt.Errorf("codec: decode: no function registered as %q", p.Fn)
	}
	return pool.Call{Fn: fn, Item: p.Item, Args: p.Args, Kwargs: p.Kwargs}, nil
}
