// Package compiler is used to compile script sections, parsed into abstract
// syntax trees, into a bytecode module.
//
// # Two-Pass Compilation Strategy
//
// The compiler uses a two-pass approach to handle forward references. This
// allows functions and classes to be used before they are declared, and
// classes to hold handles to each other.
//
// Pass 1: declare
//
// Walks every section and registers each class (with its fields, constructor
// arities and method names), each free function and each global variable.
// Free functions are numbered in declaration order: a Call instruction
// addresses its target by that number.
//
// Pass 2: compile
//
// Compiles each function body into bytecode. Identifiers resolve to locals
// first, then to fields of the object in a class member, then to globals.
// Calls resolve to methods of the current class, then script functions, then
// class constructors, and finally host functions.
//
// Constructors begin with the field initializers. A class that declares no
// constructor gets a default one, so that field initializers always run
// inside a function named after the class.
package compiler

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/vmctx/ast"
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/op"
	"github.com/risor-io/vmctx/token"
)

const (
	// MaxArgs is the maximum number of arguments a function can have.
	MaxArgs = 255

	// InitFunctionName is the name of the function that initializes the
	// globals of a module.
	InitFunctionName = "$init"

	// Placeholder is a temporary jump target, always patched before the
	// function is built.
	Placeholder = uint16(0xffff)
)

// Config holds compiler configuration options.
type Config struct {
	// ModuleName is recorded on every compiled function and class.
	ModuleName string

	// Filename and Source describe the code given to CompileFunction.
	Filename string
	Source   string

	// HostFunction reports whether a host function with the given name and
	// argument count is registered. When nil, any unresolved call is assumed
	// to target a host function.
	HostFunction func(name string, argc int) bool
}

// Section is one parsed script section of a module.
type Section struct {
	Name    string
	Source  string
	Program *ast.Program
}

type funcSymbol struct {
	index   int
	name    string
	argc    int
	decl    *ast.Func
	section *section
}

type classSymbol struct {
	name         string
	decl         *ast.Class
	section      *section
	fields       []bytecode.Field
	fieldDecls   []*ast.Var
	constructors []int
	methods      map[string]bool
}

func (c *classSymbol) hasField(name string) bool {
	for _, f := range c.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (c *classSymbol) hasConstructor(argc int) bool {
	for _, n := range c.constructors {
		if n == argc {
			return true
		}
	}
	return false
}

type globalSymbol struct {
	index   int
	name    string
	typ     bytecode.TypeRef
	spec    *ast.VarSpec
	section *section
}

// section is a Section with its source split into lines for error messages.
type section struct {
	name   string
	source string
	lines  []string
}

func newSection(name, source string) *section {
	return &section{name: name, source: source, lines: strings.Split(source, "\n")}
}

func (s *section) location(pos token.Position) errz.SourceLocation {
	loc := errz.SourceLocation{
		Filename: s.name,
		Line:     pos.LineNumber(),
		Column:   pos.ColumnNumber(),
	}
	if pos.Line >= 0 && pos.Line < len(s.lines) {
		loc.Source = strings.TrimRight(s.lines[pos.Line], "\r")
	}
	return loc
}

// Compiler turns parsed sections into a bytecode module.
type Compiler struct {
	moduleName   string
	hostFunction func(name string, argc int) bool

	functions  []*funcSymbol
	classes    map[string]*classSymbol
	classList  []*classSymbol
	globals    map[string]*globalSymbol
	globalList []*globalSymbol

	// The function currently being compiled.
	current *function

	errors []error
}

// New creates and returns a new Compiler. Pass nil for cfg to use defaults.
func New(cfg *Config) *Compiler {
	c := &Compiler{
		classes: map[string]*classSymbol{},
		globals: map[string]*globalSymbol{},
	}
	if cfg != nil {
		c.moduleName = cfg.ModuleName
		c.hostFunction = cfg.HostFunction
	}
	return c
}

// Compile compiles the sections of one module.
func Compile(sections []Section, cfg *Config) (*bytecode.Module, error) {
	return New(cfg).Compile(sections)
}

// CompileFunction compiles a list of statements into a function with no
// parameters and no return value, as used by ExecuteString. Identifiers
// resolve against mod, which may be nil.
func CompileFunction(mod *bytecode.Module, name string, body *ast.Block, cfg *Config) (*bytecode.Function, error) {
	c := New(cfg)
	var sec *section
	if cfg != nil {
		sec = newSection(cfg.Filename, cfg.Source)
	} else {
		sec = newSection("", "")
	}
	if mod != nil {
		c.moduleName = mod.Name()
		c.loadModule(mod)
	}
	fn := c.compileFunc(sec, &ast.Func{
		FuncPos: body.Lbrace,
		Kind:    ast.FuncFree,
		Name:    &ast.Ident{NamePos: body.Lbrace, Name: name},
		Body:    body,
	}, nil)
	if err := c.result(); err != nil {
		return nil, err
	}
	return fn, nil
}

// Compile compiles the given sections into a module.
func (c *Compiler) Compile(sections []Section) (*bytecode.Module, error) {
	secs := make([]*section, len(sections))
	for i, s := range sections {
		secs[i] = newSection(s.Name, s.Source)
	}

	// Pass 1
	for i, s := range sections {
		if s.Program == nil {
			continue
		}
		for _, stmt := range s.Program.Stmts {
			c.declare(secs[i], stmt)
		}
	}
	if err := c.result(); err != nil {
		return nil, err
	}

	// Pass 2
	functions := make([]*bytecode.Function, len(c.functions))
	for i, sym := range c.functions {
		functions[i] = c.compileFunc(sym.section, sym.decl, nil)
	}
	classes := make([]*bytecode.Class, 0, len(c.classList))
	for _, sym := range c.classList {
		classes = append(classes, c.compileClass(sym))
	}
	globals := make([]bytecode.Global, len(c.globalList))
	for i, g := range c.globalList {
		globals[i] = bytecode.Global{Name: g.name, Type: g.typ}
	}
	init := c.compileInit()
	if err := c.result(); err != nil {
		return nil, err
	}
	return bytecode.NewModule(bytecode.ModuleParams{
		Name:      c.moduleName,
		Functions: functions,
		Classes:   classes,
		Globals:   globals,
		Init:      init,
	}), nil
}

func (c *Compiler) result() error {
	if len(c.errors) == 0 {
		return nil
	}
	var result *multierror.Error
	for _, err := range c.errors {
		result = multierror.Append(result, err)
	}
	return result
}

func (c *Compiler) errorf(sec *section, pos token.Position, format string, args ...any) error {
	err := errz.CompileErrorf(sec.location(pos), format, args...)
	c.errors = append(c.errors, err)
	return err
}

// declare registers a top level declaration.
func (c *Compiler) declare(sec *section, stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.Class:
		c.declareClass(sec, stmt)
	case *ast.Func:
		argc := len(stmt.Params)
		if argc > MaxArgs {
			c.errorf(sec, stmt.Pos(), "function %s has too many parameters", stmt.Name.Name)
			return
		}
		if c.function(stmt.Name.Name, argc) != nil {
			c.errorf(sec, stmt.Pos(), "function %s taking %d arguments is already declared", stmt.Name.Name, argc)
			return
		}
		c.functions = append(c.functions, &funcSymbol{
			index:   len(c.functions),
			name:    stmt.Name.Name,
			argc:    argc,
			decl:    stmt,
			section: sec,
		})
	case *ast.Var:
		for _, spec := range stmt.Vars {
			if _, exists := c.globals[spec.Name.Name]; exists {
				c.errorf(sec, spec.Name.Pos(), "global %s is already declared", spec.Name.Name)
				continue
			}
			g := &globalSymbol{
				index:   len(c.globalList),
				name:    spec.Name.Name,
				spec:    spec,
				section: sec,
			}
			// Types are resolved once every class is known.
			g.typ = typeRef(stmt.Type)
			c.globals[g.name] = g
			c.globalList = append(c.globalList, g)
		}
	default:
		c.errorf(sec, stmt.Pos(), "unexpected statement at top level")
	}
}

func (c *Compiler) declareClass(sec *section, decl *ast.Class) {
	name := decl.Name.Name
	if _, exists := c.classes[name]; exists || isBuiltinType(name) {
		c.errorf(sec, decl.Pos(), "class %s is already declared", name)
		return
	}
	sym := &classSymbol{
		name:    name,
		decl:    decl,
		section: sec,
		methods: map[string]bool{},
	}
	for _, field := range decl.Fields {
		for _, spec := range field.Vars {
			if sym.hasField(spec.Name.Name) {
				c.errorf(sec, spec.Name.Pos(), "field %s is already declared in %s", spec.Name.Name, name)
				continue
			}
			sym.fields = append(sym.fields, bytecode.Field{Name: spec.Name.Name, Type: typeRef(field.Type)})
		}
		sym.fieldDecls = append(sym.fieldDecls, field)
	}
	hasDestructor := false
	for _, m := range decl.Methods {
		switch m.Kind {
		case ast.FuncConstructor:
			if sym.hasConstructor(len(m.Params)) {
				c.errorf(sec, m.Pos(), "constructor of %s taking %d arguments is already declared", name, len(m.Params))
			}
			sym.constructors = append(sym.constructors, len(m.Params))
		case ast.FuncDestructor:
			if hasDestructor {
				c.errorf(sec, m.Pos(), "destructor of %s is already declared", name)
			}
			hasDestructor = true
		default:
			sym.methods[m.Name.Name] = true
		}
	}
	if len(sym.constructors) == 0 {
		sym.constructors = []int{0}
	}
	c.classes[name] = sym
	c.classList = append(c.classList, sym)
}

// loadModule registers the symbols of an already compiled module.
func (c *Compiler) loadModule(mod *bytecode.Module) {
	for i := 0; i < mod.FunctionCount(); i++ {
		fn := mod.FunctionAt(i)
		c.functions = append(c.functions, &funcSymbol{index: i, name: fn.Name(), argc: fn.ParamCount()})
	}
	for i := 0; i < mod.ClassCount(); i++ {
		class := mod.ClassAt(i)
		sym := &classSymbol{name: class.Name(), methods: map[string]bool{}}
		for j := 0; j < class.FieldCount(); j++ {
			sym.fields = append(sym.fields, class.FieldAt(j))
		}
		for j := 0; j < class.ConstructorCount(); j++ {
			sym.constructors = append(sym.constructors, class.ConstructorAt(j).ParamCount())
		}
		if len(sym.constructors) == 0 {
			sym.constructors = []int{0}
		}
		for j := 0; j < class.MethodCount(); j++ {
			sym.methods[class.MethodAt(j).Name()] = true
		}
		c.classes[sym.name] = sym
		c.classList = append(c.classList, sym)
	}
	for i := 0; i < mod.GlobalCount(); i++ {
		g := mod.GlobalAt(i)
		sym := &globalSymbol{index: i, name: g.Name, typ: g.Type}
		c.globals[g.Name] = sym
		c.globalList = append(c.globalList, sym)
	}
}

func (c *Compiler) function(name string, argc int) *funcSymbol {
	for _, fn := range c.functions {
		if fn.name == name && fn.argc == argc {
			return fn
		}
	}
	return nil
}

func (c *Compiler) hasFunctionNamed(name string) bool {
	for _, fn := range c.functions {
		if fn.name == name {
			return true
		}
	}
	return false
}

// compileFunc compiles a free function, or a member of class when class is
// set. It returns nil if the body failed to compile.
func (c *Compiler) compileFunc(sec *section, decl *ast.Func, class *classSymbol) *bytecode.Function {
	kind := bytecode.KindFunction
	className := ""
	if class != nil {
		className = class.name
		switch decl.Kind {
		case ast.FuncConstructor:
			kind = bytecode.KindConstructor
		case ast.FuncDestructor:
			kind = bytecode.KindDestructor
		default:
			kind = bytecode.KindMethod
		}
	}
	returns := bytecode.TypeRef{Name: bytecode.TypeVoid}
	if decl.Returns != nil {
		var err error
		if returns, err = c.resolveType(sec, decl.Returns, true); err != nil {
			return nil
		}
	}
	params := make([]bytecode.Param, len(decl.Params))
	for i, p := range decl.Params {
		typ, err := c.resolveType(sec, p.Type, false)
		if err != nil {
			return nil
		}
		params[i] = bytecode.Param{Type: typ, Mode: paramMode(p)}
		if p.Name != nil {
			params[i].Name = p.Name.Name
		}
	}

	fn := newFunction(c, sec, decl.Name.Name, kind, class, returns)
	c.current = fn
	defer func() { c.current = nil }()

	if kind != bytecode.KindFunction {
		fn.builder.DeclareLocal("this")
	}
	fn.pushScope()
	for i, p := range params {
		if err := fn.declare(decl.Params[i].Type.NamePos, p.Name, p.Type); err != nil {
			return nil
		}
	}
	fn.setPos(decl.Pos())
	if kind == bytecode.KindConstructor {
		if err := c.compileFieldInitializers(class); err != nil {
			return nil
		}
	}
	if decl.Body != nil {
		for _, stmt := range decl.Body.Stmts {
			if err := c.compileStmt(stmt); err != nil {
				return nil
			}
		}
	}
	fn.popScope()

	return bytecode.NewFunction(bytecode.FunctionParams{
		Name:      decl.Name.Name,
		Module:    c.moduleName,
		ClassName: className,
		Kind:      kind,
		Params:    params,
		Returns:   returns,
		Code:      fn.builder.Build(),
	})
}

func (c *Compiler) compileClass(sym *classSymbol) *bytecode.Class {
	params := bytecode.ClassParams{Name: sym.name, Module: c.moduleName}
	for i, f := range sym.fields {
		typ, err := c.resolveTypeRef(sym.section, sym.decl.Pos(), f.Type, false)
		if err != nil {
			return nil
		}
		sym.fields[i].Type = typ
	}
	params.Fields = sym.fields
	declaredCtor := false
	for _, m := range sym.decl.Methods {
		fn := c.compileFunc(sym.section, m, sym)
		if fn == nil {
			continue
		}
		switch m.Kind {
		case ast.FuncConstructor:
			declaredCtor = true
			params.Constructors = append(params.Constructors, fn)
		case ast.FuncDestructor:
			params.Destructor = fn
		default:
			params.Methods = append(params.Methods, fn)
		}
	}
	if !declaredCtor {
		ctor := c.compileFunc(sym.section, &ast.Func{
			FuncPos: sym.decl.Pos(),
			Kind:    ast.FuncConstructor,
			Name:    &ast.Ident{NamePos: sym.decl.Name.Pos(), Name: sym.name},
		}, sym)
		if ctor != nil {
			params.Constructors = append(params.Constructors, ctor)
		}
	}
	return bytecode.NewClass(params)
}

// compileInit compiles the initializer of the module globals. It returns nil
// when no global needs one.
func (c *Compiler) compileInit() *bytecode.Function {
	var pending []*globalSymbol
	for _, g := range c.globalList {
		typ, err := c.resolveTypeRef(g.section, g.spec.Name.Pos(), g.typ, false)
		if err != nil {
			continue
		}
		g.typ = typ
		if g.spec.Value != nil || g.spec.HasArgs || isValueClass(typ) {
			pending = append(pending, g)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	fn := newFunction(c, pending[0].section, InitFunctionName, bytecode.KindFunction, nil, bytecode.TypeRef{Name: bytecode.TypeVoid})
	c.current = fn
	defer func() { c.current = nil }()
	fn.pushScope()
	for _, g := range pending {
		fn.section = g.section
		fn.builder.SetSource(g.section.name, g.section.source)
		fn.setPos(g.spec.Name.Pos())
		if err := c.compileInitializer(g.spec, g.typ); err != nil {
			return nil
		}
		fn.emit(op.StoreGlobal, uint16(g.index))
	}
	fn.popScope()
	return bytecode.NewFunction(bytecode.FunctionParams{
		Name:   InitFunctionName,
		Module: c.moduleName,
		Code:   fn.builder.Build(),
	})
}

// compileFieldInitializers emits the start of a constructor: every field
// with an initializer, constructor arguments or a class value type is set.
func (c *Compiler) compileFieldInitializers(class *classSymbol) error {
	fn := c.current
	if class.decl == nil {
		return nil
	}
	for _, field := range class.fieldDecls {
		for _, spec := range field.Vars {
			idx, _ := fieldIndex(class, spec.Name.Name)
			typ := class.fields[idx].Type
			if spec.Value == nil && !spec.HasArgs && !isValueClass(typ) {
				continue
			}
			fn.setPos(spec.Name.Pos())
			if err := c.compileInitializer(spec, typ); err != nil {
				return err
			}
			fn.emit(op.LoadFast, 0)
			fn.emit(op.StoreAttr, fn.builder.AddName(spec.Name.Name))
		}
	}
	return nil
}

func fieldIndex(class *classSymbol, name string) (int, bool) {
	for i, f := range class.fields {
		if f.Name == name {
			return i, true
		}
	}
	return -1, false
}
