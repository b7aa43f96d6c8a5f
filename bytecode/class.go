package bytecode

// Field describes one member variable of a class.
type Field struct {
	Name string
	Type TypeRef
}

// Class is an immutable script class: its fields and member functions.
type Class struct {
	name         string
	module       string
	fields       []Field
	constructors []*Function
	destructor   *Function
	methods      []*Function
}

// ClassParams contains parameters for creating a new Class.
type ClassParams struct {
	Name         string
	Module       string
	Fields       []Field
	Constructors []*Function
	Destructor   *Function
	Methods      []*Function
}

// NewClass creates a new immutable Class from the given parameters.
func NewClass(params ClassParams) *Class {
	c := &Class{
		name:       params.Name,
		module:     params.Module,
		destructor: params.Destructor,
	}
	if len(params.Fields) > 0 {
		c.fields = make([]Field, len(params.Fields))
		copy(c.fields, params.Fields)
	}
	if len(params.Constructors) > 0 {
		c.constructors = make([]*Function, len(params.Constructors))
		copy(c.constructors, params.Constructors)
	}
	if len(params.Methods) > 0 {
		c.methods = make([]*Function, len(params.Methods))
		copy(c.methods, params.Methods)
	}
	return c
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.name
}

// Module returns the name of the module that defines the class.
func (c *Class) Module() string {
	return c.module
}

// FieldCount returns the number of fields.
func (c *Class) FieldCount() int {
	return len(c.fields)
}

// FieldAt returns the field at the given index.
func (c *Class) FieldAt(index int) Field {
	return c.fields[index]
}

// FieldIndex returns the index of the named field.
func (c *Class) FieldIndex(name string) (int, bool) {
	for i, f := range c.fields {
		if f.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Constructor returns the constructor taking argc arguments, if any.
func (c *Class) Constructor(argc int) *Function {
	for _, fn := range c.constructors {
		if fn.ParamCount() == argc {
			return fn
		}
	}
	return nil
}

// ConstructorCount returns the number of declared constructors.
func (c *Class) ConstructorCount() int {
	return len(c.constructors)
}

// ConstructorAt returns the constructor at the given index.
func (c *Class) ConstructorAt(index int) *Function {
	return c.constructors[index]
}

// Destructor returns the destructor, or nil if the class declares none.
func (c *Class) Destructor() *Function {
	return c.destructor
}

// MethodCount returns the number of methods.
func (c *Class) MethodCount() int {
	return len(c.methods)
}

// MethodAt returns the method at the given index.
func (c *Class) MethodAt(index int) *Function {
	return c.methods[index]
}

// Method returns the method with the given name and argument count. An argc
// of -1 matches the first method with the name.
func (c *Class) Method(name string, argc int) *Function {
	for _, fn := range c.methods {
		if fn.Name() == name && (argc < 0 || fn.ParamCount() == argc) {
			return fn
		}
	}
	return nil
}

// MethodByDecl returns the member function whose declaration matches decl.
// Constructors and the destructor are searched as well.
func (c *Class) MethodByDecl(decl string) *Function {
	for _, fn := range c.methods {
		if fn.Declaration() == decl {
			return fn
		}
	}
	for _, fn := range c.constructors {
		if fn.Declaration() == decl {
			return fn
		}
	}
	if c.destructor != nil && c.destructor.Declaration() == decl {
		return c.destructor
	}
	return nil
}
