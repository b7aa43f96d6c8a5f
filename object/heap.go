package object

import (
	"fmt"

	"github.com/risor-io/vmctx/bytecode"
)

// Finalizer is called by Heap.Release when the last reference to an instance
// is dropped, before the instance's fields are released. The execution
// context uses it to run script destructors.
type Finalizer func(obj *Instance)

// HeapStats reports allocation counters.
type HeapStats struct {
	Allocs int
	Frees  int
	Live   int
}

// Heap allocates reference counted objects and frees them when their count
// drops to zero. A Heap is shared by all contexts of an engine and is not
// safe for concurrent use; the engine serializes access.
type Heap struct {
	live   map[RefCounted]struct{}
	allocs int
	frees  int
}

// NewHeap returns an empty Heap.
func NewHeap() *Heap {
	return &Heap{live: map[RefCounted]struct{}{}}
}

func (h *Heap) track(obj RefCounted) {
	h.live[obj] = struct{}{}
	h.allocs++
}

// NewString allocates a string with a reference count of one.
func (h *Heap) NewString(value string) *String {
	s := &String{refCount: refCount{refs: 1}, value: value}
	h.track(s)
	return s
}

// NewArray allocates an array with a reference count of one. The array takes
// over the references held by items.
func (h *Heap) NewArray(items []Object) *Array {
	a := &Array{refCount: refCount{refs: 1}, items: items}
	h.track(a)
	return a
}

// NewInstance allocates a default instance of class with a reference count
// of one. Every field holds the zero value of its declared type.
func (h *Heap) NewInstance(class *bytecode.Class) *Instance {
	o := &Instance{
		refCount: refCount{refs: 1},
		class:    class,
		fields:   make([]Object, class.FieldCount()),
	}
	for i := range o.fields {
		o.fields[i] = h.Zero(class.FieldAt(i).Type)
	}
	h.track(o)
	return o
}

// Zero returns the zero value for a declared type. Handles and script
// classes held by value start out as Null; the compiler constructs the latter
// explicitly.
func (h *Heap) Zero(t bytecode.TypeRef) Object {
	if t.Handle {
		return Null
	}
	if t.Array {
		return h.NewArray(nil)
	}
	switch t.Name {
	case bytecode.TypeInt:
		return NewInt(0)
	case bytecode.TypeFloat:
		return NewFloat(0)
	case bytecode.TypeBool:
		return False
	case bytecode.TypeString:
		return h.NewString("")
	}
	return Null
}

// Copy returns a value copy of obj holding one reference owned by the caller.
// Strings and arrays are duplicated; script instances are shared and gain a
// reference; primitives are returned as is.
func (h *Heap) Copy(obj Object) Object {
	switch obj := obj.(type) {
	case *String:
		return h.NewString(obj.value)
	case *Array:
		items := make([]Object, len(obj.items))
		for i, item := range obj.items {
			items[i] = h.Copy(item)
		}
		return h.NewArray(items)
	case *Instance:
		obj.AddRef()
		return obj
	}
	return obj
}

// Release drops one reference to obj. Objects that are not reference counted
// are ignored. When the last reference is dropped the object is freed:
// instances are passed to finalize first (which may resurrect them), then
// every reference the object holds is released in turn.
//
// Releasing an object that is already freed panics.
func (h *Heap) Release(obj Object, finalize Finalizer) {
	rc, ok := obj.(RefCounted)
	if !ok {
		return
	}
	n := rc.decRef()
	if n > 0 {
		return
	}
	if n < 0 {
		panic(fmt.Sprintf("object: release of freed %s", rc.Type()))
	}
	switch o := rc.(type) {
	case *Instance:
		if !o.finalized {
			o.finalized = true
			if finalize != nil {
				// The heap holds one reference while the destructor runs.
				o.refs = 1
				finalize(o)
				if o.decRef() > 0 {
					return
				}
			}
		}
		fields := o.fields
		o.fields = make([]Object, len(fields))
		for i := range o.fields {
			o.fields[i] = Null
		}
		for _, f := range fields {
			h.Release(f, finalize)
		}
	case *Array:
		items := o.items
		o.items = nil
		for _, item := range items {
			h.Release(item, finalize)
		}
	}
	delete(h.live, rc)
	h.frees++
}

// IsLive returns true if obj was allocated by this heap and not yet freed.
func (h *Heap) IsLive(obj Object) bool {
	rc, ok := obj.(RefCounted)
	if !ok {
		return false
	}
	_, live := h.live[rc]
	return live
}

// Live returns the number of objects that have not been freed.
func (h *Heap) Live() int {
	return len(h.live)
}

// Stats returns the allocation counters.
func (h *Heap) Stats() HeapStats {
	return HeapStats{Allocs: h.allocs, Frees: h.frees, Live: len(h.live)}
}
