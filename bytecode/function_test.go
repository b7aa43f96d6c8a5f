package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFunctionDeclaration(t *testing.T) {
	tests := []struct {
		name   string
		params FunctionParams
		want   string
	}{
		{
			name:   "no params",
			params: FunctionParams{Name: "ExecuteString"},
			want:   "void ExecuteString()",
		},
		{
			name: "by value",
			params: FunctionParams{
				Name:   "Test",
				Params: []Param{{Name: "c", Type: TypeRef{Name: TypeString}}},
			},
			want: "void Test(string c)",
		},
		{
			name: "const in reference",
			params: FunctionParams{
				Name: "print",
				Params: []Param{{
					Type: TypeRef{Name: TypeString, Const: true},
					Mode: ParamInRef,
				}},
			},
			want: "void print(const string &in)",
		},
		{
			name: "handle return and array",
			params: FunctionParams{
				Name:    "make",
				Returns: TypeRef{Name: "A", Handle: true},
				Params: []Param{
					{Name: "xs", Type: TypeRef{Name: TypeInt, Array: true}},
					{Name: "n", Type: TypeRef{Name: TypeInt}},
				},
			},
			want: "A@ make(int[] xs, int n)",
		},
		{
			name:   "constructor",
			params: FunctionParams{Name: "Test", ClassName: "Test", Kind: KindConstructor},
			want:   "Test()",
		},
		{
			name:   "destructor",
			params: FunctionParams{Name: "A", ClassName: "A", Kind: KindDestructor},
			want:   "~A()",
		},
		{
			name:   "explicit",
			params: FunctionParams{Name: "f", Declaration: "int f(int)"},
			want:   "int f(int)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := NewFunction(tt.params)
			require.Equal(t, tt.want, fn.Declaration())
			require.Equal(t, tt.want, fn.String())
		})
	}
}

func TestFunctionSlots(t *testing.T) {
	free := NewFunction(FunctionParams{
		Name:   "f",
		Params: []Param{{Name: "a", Type: TypeRef{Name: TypeInt}}},
	})
	require.False(t, free.HasThis())
	require.Equal(t, 0, free.ParamSlot(0))
	require.Equal(t, 1, free.LocalCount())
	require.Equal(t, "f", free.QualifiedName())

	b := NewBuilder("Test")
	b.DeclareLocal("this")
	b.DeclareLocal("a")
	b.DeclareLocal("tmp")
	method := NewFunction(FunctionParams{
		Name:      "Test",
		ClassName: "A",
		Kind:      KindMethod,
		Params:    []Param{{Name: "a", Type: TypeRef{Name: TypeInt}}},
		Code:      b.Build(),
	})
	require.True(t, method.HasThis())
	require.Equal(t, 1, method.ParamSlot(0))
	require.Equal(t, 3, method.LocalCount())
	require.Equal(t, "A::Test", method.QualifiedName())

	dtor := NewFunction(FunctionParams{Name: "A", ClassName: "A", Kind: KindDestructor})
	require.Equal(t, "~A()", dtor.Declaration())
	require.Equal(t, "A::~A", dtor.QualifiedName())
}

func TestTypeRef(t *testing.T) {
	require.True(t, TypeRef{Name: TypeVoid}.IsVoid())
	require.True(t, TypeRef{Name: TypeInt}.IsPrimitive())
	require.False(t, TypeRef{Name: TypeString}.IsPrimitive())
	require.False(t, TypeRef{Name: TypeInt, Array: true}.IsPrimitive())
	require.True(t, TypeRef{Name: "A", Handle: true}.IsClass())
	require.False(t, TypeRef{Name: "A", Array: true}.IsClass())
	require.Equal(t, "const string", TypeRef{Name: TypeString, Const: true}.String())
}

func TestClassLookup(t *testing.T) {
	ctor := NewFunction(FunctionParams{Name: "A", ClassName: "A", Kind: KindConstructor})
	dtor := NewFunction(FunctionParams{Name: "A", ClassName: "A", Kind: KindDestructor})
	test := NewFunction(FunctionParams{Name: "Test", ClassName: "A", Kind: KindMethod})
	c := NewClass(ClassParams{
		Name:         "A",
		Fields:       []Field{{Name: "x", Type: TypeRef{Name: TypeInt}}},
		Constructors: []*Function{ctor},
		Destructor:   dtor,
		Methods:      []*Function{test},
	})
	idx, ok := c.FieldIndex("x")
	require.True(t, ok)
	require.Equal(t, 0, idx)
	_, ok = c.FieldIndex("y")
	require.False(t, ok)
	require.Same(t, ctor, c.Constructor(0))
	require.Nil(t, c.Constructor(1))
	require.Same(t, test, c.Method("Test", -1))
	require.Same(t, test, c.MethodByDecl("void Test()"))
	require.Same(t, dtor, c.MethodByDecl("~A()"))
	require.Same(t, ctor, c.MethodByDecl("A()"))
}
