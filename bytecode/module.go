package bytecode

// Global describes one module-level variable.
type Global struct {
	Name string
	Type TypeRef
}

// Module groups the functions, classes and globals produced by one build.
// Call instructions address functions by their index in the module.
type Module struct {
	name      string
	functions []*Function
	classes   []*Class
	globals   []Global
	init      *Function
}

// ModuleParams contains parameters for creating a new Module.
type ModuleParams struct {
	Name      string
	Functions []*Function
	Classes   []*Class
	Globals   []Global
	// Init runs once when the module is added to an engine and assigns the
	// global initializers. It may be nil.
	Init *Function
}

// NewModule creates a new immutable Module from the given parameters.
func NewModule(params ModuleParams) *Module {
	m := &Module{name: params.Name, init: params.Init}
	if len(params.Functions) > 0 {
		m.functions = make([]*Function, len(params.Functions))
		copy(m.functions, params.Functions)
	}
	if len(params.Classes) > 0 {
		m.classes = make([]*Class, len(params.Classes))
		copy(m.classes, params.Classes)
	}
	if len(params.Globals) > 0 {
		m.globals = make([]Global, len(params.Globals))
		copy(m.globals, params.Globals)
	}
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return m.name
}

// Init returns the global initializer function, or nil.
func (m *Module) Init() *Function {
	return m.init
}

// FunctionCount returns the number of free functions.
func (m *Module) FunctionCount() int {
	return len(m.functions)
}

// FunctionAt returns the free function at the given index.
func (m *Module) FunctionAt(index int) *Function {
	if index < 0 || index >= len(m.functions) {
		return nil
	}
	return m.functions[index]
}

// FunctionByName returns the first free function with the given name.
func (m *Module) FunctionByName(name string) *Function {
	for _, fn := range m.functions {
		if fn.Name() == name {
			return fn
		}
	}
	return nil
}

// FunctionByDecl returns the free function with the given declaration.
func (m *Module) FunctionByDecl(decl string) *Function {
	for _, fn := range m.functions {
		if fn.Declaration() == decl {
			return fn
		}
	}
	return nil
}

// ClassCount returns the number of classes.
func (m *Module) ClassCount() int {
	return len(m.classes)
}

// ClassAt returns the class at the given index.
func (m *Module) ClassAt(index int) *Class {
	if index < 0 || index >= len(m.classes) {
		return nil
	}
	return m.classes[index]
}

// ClassByName returns the class with the given name.
func (m *Module) ClassByName(name string) *Class {
	for _, c := range m.classes {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// GlobalCount returns the number of globals.
func (m *Module) GlobalCount() int {
	return len(m.globals)
}

// GlobalAt returns the global at the given index.
func (m *Module) GlobalAt(index int) Global {
	return m.globals[index]
}

// GlobalIndex returns the index of the named global.
func (m *Module) GlobalIndex(name string) (int, bool) {
	for i, g := range m.globals {
		if g.Name == name {
			return i, true
		}
	}
	return -1, false
}

// EachFunction calls fn for the initializer, every free function and every
// member function of every class, in declaration order.
func (m *Module) EachFunction(fn func(*Function)) {
	if m.init != nil {
		fn(m.init)
	}
	for _, f := range m.functions {
		fn(f)
	}
	for _, c := range m.classes {
		for _, f := range c.constructors {
			fn(f)
		}
		if c.destructor != nil {
			fn(c.destructor)
		}
		for _, f := range c.methods {
			fn(f)
		}
	}
}
