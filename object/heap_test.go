package object

import (
	"testing"

	"github.com/risor-io/vmctx/bytecode"
	"github.com/stretchr/testify/require"
)

func testClass(fields ...bytecode.Field) *bytecode.Class {
	return bytecode.NewClass(bytecode.ClassParams{Name: "A", Fields: fields})
}

func TestHeapString(t *testing.T) {
	h := NewHeap()
	s := h.NewString("hello")
	require.Equal(t, 1, s.RefCount())
	require.True(t, h.IsLive(s))

	require.Equal(t, 2, s.AddRef())
	h.Release(s, nil)
	require.True(t, h.IsLive(s))
	h.Release(s, nil)
	require.False(t, h.IsLive(s))
	require.Equal(t, 0, h.Live())
	require.Equal(t, HeapStats{Allocs: 1, Frees: 1, Live: 0}, h.Stats())
}

func TestHeapReleaseFreedPanics(t *testing.T) {
	h := NewHeap()
	s := h.NewString("x")
	h.Release(s, nil)
	require.Panics(t, func() { h.Release(s, nil) })
}

func TestHeapReleaseIgnoresValues(t *testing.T) {
	h := NewHeap()
	require.NotPanics(t, func() {
		h.Release(NewInt(1), nil)
		h.Release(Null, nil)
		h.Release(nil, nil)
	})
}

func TestHeapArrayReleasesItems(t *testing.T) {
	h := NewHeap()
	a := h.NewString("a")
	b := h.NewString("b")
	arr := h.NewArray([]Object{a, b, NewInt(3)})
	require.Equal(t, 3, h.Live())
	h.Release(arr, nil)
	require.Equal(t, 0, h.Live())
}

func TestHeapInstanceDefaults(t *testing.T) {
	h := NewHeap()
	class := testClass(
		bytecode.Field{Name: "i", Type: bytecode.TypeRef{Name: bytecode.TypeInt}},
		bytecode.Field{Name: "f", Type: bytecode.TypeRef{Name: bytecode.TypeFloat}},
		bytecode.Field{Name: "s", Type: bytecode.TypeRef{Name: bytecode.TypeString}},
		bytecode.Field{Name: "h", Type: bytecode.TypeRef{Name: "A", Handle: true}},
		bytecode.Field{Name: "xs", Type: bytecode.TypeRef{Name: bytecode.TypeInt, Array: true}},
	)
	o := h.NewInstance(class)
	require.Equal(t, 5, o.FieldCount())
	i, ok := o.Field("i")
	require.True(t, ok)
	require.Equal(t, int64(0), i.(*Int).Value())
	s, _ := o.Field("s")
	require.Equal(t, "", s.(*String).Value())
	hnd, _ := o.Field("h")
	require.True(t, IsNull(hnd))
	_, ok = o.Field("missing")
	require.False(t, ok)
	// instance, string field and array field
	require.Equal(t, 3, h.Live())

	h.Release(o, nil)
	require.Equal(t, 0, h.Live())
}

func TestHeapFinalizer(t *testing.T) {
	h := NewHeap()
	class := testClass(bytecode.Field{Name: "s", Type: bytecode.TypeRef{Name: bytecode.TypeString}})
	o := h.NewInstance(class)

	var calls int
	h.Release(o, func(inst *Instance) {
		calls++
		require.Same(t, o, inst)
		require.Equal(t, 1, inst.RefCount())
		// Temporary references taken by the destructor are balanced.
		inst.AddRef()
		h.Release(inst, nil)
		s, _ := inst.Field("s")
		require.True(t, h.IsLive(s))
	})
	require.Equal(t, 1, calls)
	require.True(t, o.Finalized())
	require.Equal(t, 0, h.Live())
}

func TestHeapFinalizerResurrect(t *testing.T) {
	h := NewHeap()
	o := h.NewInstance(testClass())

	var calls int
	var saved *Instance
	h.Release(o, func(inst *Instance) {
		calls++
		inst.AddRef()
		saved = inst
	})
	require.True(t, h.IsLive(o))
	require.Equal(t, 1, saved.RefCount())

	h.Release(saved, func(*Instance) { calls++ })
	require.Equal(t, 1, calls)
	require.False(t, h.IsLive(o))
}

func TestHeapCopy(t *testing.T) {
	h := NewHeap()
	s := h.NewString("x")
	c := h.Copy(s)
	require.NotSame(t, s, c)
	require.True(t, s.Equals(c))
	require.Equal(t, 1, c.(*String).RefCount())

	arr := h.NewArray([]Object{h.NewString("a")})
	arrCopy := h.Copy(arr).(*Array)
	require.True(t, arr.Equals(arrCopy))
	require.Equal(t, 6, h.Live())

	o := h.NewInstance(testClass())
	require.Same(t, o, h.Copy(o))
	require.Equal(t, 2, o.RefCount())

	n := NewInt(4)
	require.Same(t, n, h.Copy(n))
}
