package bytecode

import (
	"strings"
)

// FunctionKind distinguishes free functions from the members of a class.
type FunctionKind uint8

const (
	KindFunction FunctionKind = iota
	KindMethod
	KindConstructor
	KindDestructor
)

// String returns the name of the function kind.
func (k FunctionKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindConstructor:
		return "constructor"
	case KindDestructor:
		return "destructor"
	default:
		return "unknown"
	}
}

// ParamMode describes how an argument is passed to a parameter, which in
// turn decides whether the callee owns the argument.
type ParamMode uint8

const (
	// ParamByValue parameters receive their own copy of the argument.
	ParamByValue ParamMode = iota
	// ParamHandle parameters receive a counted reference to the argument.
	ParamHandle
	// ParamInRef parameters receive the address of the argument (&in).
	ParamInRef
	// ParamOutRef parameters receive the address of the argument (&out).
	ParamOutRef
	// ParamInOutRef parameters receive the address of the argument (&inout or &).
	ParamInOutRef
)

// IsReference returns true if arguments for this mode are passed by address.
func (m ParamMode) IsReference() bool {
	return m == ParamInRef || m == ParamOutRef || m == ParamInOutRef
}

// String returns the declaration suffix for the mode.
func (m ParamMode) String() string {
	switch m {
	case ParamHandle:
		return "@"
	case ParamInRef:
		return "&in"
	case ParamOutRef:
		return "&out"
	case ParamInOutRef:
		return "&inout"
	default:
		return ""
	}
}

// Primitive type names understood by the runtime.
const (
	TypeVoid   = "void"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeString = "string"
)

// TypeRef names a type as written in a declaration.
type TypeRef struct {
	Name   string
	Const  bool
	Handle bool
	Array  bool
}

// IsVoid returns true for the void type.
func (t TypeRef) IsVoid() bool {
	return t.Name == TypeVoid && !t.Array && !t.Handle
}

// IsPrimitive returns true for int, float and bool (plain values without a
// reference count).
func (t TypeRef) IsPrimitive() bool {
	if t.Array || t.Handle {
		return false
	}
	switch t.Name {
	case TypeInt, TypeFloat, TypeBool:
		return true
	}
	return false
}

// IsClass returns true if the type names a script class (by value or handle).
func (t TypeRef) IsClass() bool {
	if t.Array {
		return false
	}
	switch t.Name {
	case TypeVoid, TypeInt, TypeFloat, TypeBool, TypeString, "":
		return false
	}
	return true
}

// String returns the type as it would appear in a declaration.
func (t TypeRef) String() string {
	var sb strings.Builder
	if t.Const {
		sb.WriteString("const ")
	}
	sb.WriteString(t.Name)
	if t.Array {
		sb.WriteString("[]")
	}
	if t.Handle {
		sb.WriteString("@")
	}
	return sb.String()
}

// Param describes one function parameter.
type Param struct {
	Name string
	Type TypeRef
	Mode ParamMode
}

// String returns the parameter as it would appear in a declaration.
func (p Param) String() string {
	s := p.Type.String()
	// The handle marker is part of the type.
	if p.Mode.IsReference() {
		s += " " + p.Mode.String()
	}
	if p.Name != "" {
		s += " " + p.Name
	}
	return s
}

// Function is an immutable function template: a free function, or a method,
// constructor or destructor of a class.
type Function struct {
	name        string
	declaration string
	module      string
	className   string
	kind        FunctionKind
	params      []Param
	returns     TypeRef
	code        *Code
}

// FunctionParams contains parameters for creating a new Function.
type FunctionParams struct {
	Name string
	// Declaration is generated from the signature when left empty.
	Declaration string
	Module      string
	ClassName   string
	Kind        FunctionKind
	Params      []Param
	Returns     TypeRef
	Code        *Code
}

// NewFunction creates a new immutable Function from the given parameters.
func NewFunction(params FunctionParams) *Function {
	fn := &Function{
		name:        params.Name,
		declaration: params.Declaration,
		module:      params.Module,
		className:   params.ClassName,
		kind:        params.Kind,
		returns:     params.Returns,
		code:        params.Code,
	}
	if len(params.Params) > 0 {
		fn.params = make([]Param, len(params.Params))
		copy(fn.params, params.Params)
	}
	if fn.returns.Name == "" {
		fn.returns = TypeRef{Name: TypeVoid}
	}
	if fn.declaration == "" {
		fn.declaration = fn.signature()
	}
	return fn
}

func (f *Function) signature() string {
	var sb strings.Builder
	switch f.kind {
	case KindConstructor, KindDestructor:
		// Constructors and destructors have no return type.
	default:
		sb.WriteString(f.returns.String())
		sb.WriteString(" ")
	}
	if f.kind == KindDestructor {
		sb.WriteString("~")
	}
	sb.WriteString(f.name)
	sb.WriteString("(")
	for i, p := range f.params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// Name returns the function name.
func (f *Function) Name() string {
	return f.name
}

// Declaration returns the function declaration, e.g. "void Test(string c)".
func (f *Function) Declaration() string {
	return f.declaration
}

// QualifiedName returns the name prefixed with the class name for members,
// e.g. "A::Test". Destructors are qualified as "A::~A".
func (f *Function) QualifiedName() string {
	if f.className == "" {
		return f.name
	}
	if f.kind == KindDestructor {
		return f.className + "::~" + f.name
	}
	return f.className + "::" + f.name
}

// Module returns the name of the module that defines this function.
func (f *Function) Module() string {
	return f.module
}

// ClassName returns the name of the owning class, or an empty string for
// free functions.
func (f *Function) ClassName() string {
	return f.className
}

// Kind returns the function kind.
func (f *Function) Kind() FunctionKind {
	return f.kind
}

// HasThis returns true if the function runs with an object in local slot 0.
func (f *Function) HasThis() bool {
	return f.kind != KindFunction
}

// ParamCount returns the number of parameters.
func (f *Function) ParamCount() int {
	return len(f.params)
}

// Param returns the parameter at the given index.
func (f *Function) Param(index int) Param {
	return f.params[index]
}

// Returns returns the declared return type.
func (f *Function) Returns() TypeRef {
	return f.returns
}

// Code returns the compiled body. Host functions have no code.
func (f *Function) Code() *Code {
	return f.code
}

// ParamSlot returns the local slot index that holds the given parameter.
func (f *Function) ParamSlot(index int) int {
	if f.HasThis() {
		return index + 1
	}
	return index
}

// LocalCount returns the number of local slots the function needs, which is
// at least enough for the object and the parameters.
func (f *Function) LocalCount() int {
	n := f.ParamSlot(len(f.params))
	if f.code != nil && f.code.LocalCount() > n {
		n = f.code.LocalCount()
	}
	return n
}

// String returns the declaration.
func (f *Function) String() string {
	return f.declaration
}
