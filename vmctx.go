// Package vmctx compiles and runs scripts on a vm.Engine.
package vmctx

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/compiler"
	"github.com/risor-io/vmctx/parser"
	"github.com/risor-io/vmctx/vm"
)

// ExecuteStringName is the name of the function compiled by ExecuteString.
const ExecuteStringName = "ExecuteString"

// Option configures ExecuteString and CompileString.
type Option func(*options)

type options struct {
	filename string
	module   *bytecode.Module
	xctx     *vm.Context
}

func collectOptions(opts ...Option) *options {
	o := &options{filename: ExecuteStringName}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithFilename sets the section name used in error messages and exception
// locations. It defaults to "ExecuteString".
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithModule resolves functions, classes and globals against mod.
func WithModule(mod *bytecode.Module) Option {
	return func(o *options) {
		o.module = mod
	}
}

// WithContext runs the code on xctx instead of a temporary context. The
// context keeps its exception information after ExecuteString returns.
func WithContext(xctx *vm.Context) Option {
	return func(o *options) {
		o.xctx = xctx
	}
}

// HostLookup reports whether engine has a host function with the given name
// and argument count.
func HostLookup(engine *vm.Engine) func(name string, argc int) bool {
	return func(name string, argc int) bool {
		_, ok := engine.Function(name, argc)
		return ok
	}
}

// CompileString compiles a list of statements into the function
// "void ExecuteString()".
func CompileString(ctx context.Context, engine *vm.Engine, code string, opts ...Option) (*bytecode.Function, error) {
	o := collectOptions(opts...)
	// A trailing statement without a semicolon is accepted.
	source := code + "\n;"
	body, err := parser.ParseBody(ctx, source, parser.WithFilename(o.filename))
	if err != nil {
		return nil, err
	}
	return compiler.CompileFunction(o.module, ExecuteStringName, body, &compiler.Config{
		Filename:     o.filename,
		Source:       source,
		HostFunction: HostLookup(engine),
	})
}

// ExecuteString compiles code as the body of "void ExecuteString()" and
// executes it. Compile errors are returned as errors; script exceptions are
// reported by the returned outcome.
func ExecuteString(ctx context.Context, engine *vm.Engine, code string, opts ...Option) (vm.Outcome, error) {
	o := collectOptions(opts...)
	fn, err := CompileString(ctx, engine, code, opts...)
	if err != nil {
		return 0, err
	}
	xctx := o.xctx
	if xctx == nil {
		xctx = engine.CreateContext()
		defer xctx.Release()
	}
	if err := xctx.Prepare(fn); err != nil {
		return 0, err
	}
	return xctx.Execute(ctx)
}

// Section is one named piece of script code in a module.
type Section struct {
	Name string
	Code string
}

// Compile parses and compiles the sections into a module without adding it
// to an engine. Calls are checked against the host functions of engine; a
// nil engine accepts any unresolved call as a host function call.
func Compile(ctx context.Context, engine *vm.Engine, moduleName string, sections ...Section) (*bytecode.Module, error) {
	var parseErrs *multierror.Error
	parsed := make([]compiler.Section, 0, len(sections))
	for _, sec := range sections {
		program, err := parser.Parse(ctx, sec.Code, parser.WithFilename(sec.Name))
		if err != nil {
			parseErrs = multierror.Append(parseErrs, err)
			continue
		}
		parsed = append(parsed, compiler.Section{Name: sec.Name, Source: sec.Code, Program: program})
	}
	if err := parseErrs.ErrorOrNil(); err != nil {
		return nil, err
	}
	cfg := &compiler.Config{ModuleName: moduleName}
	if engine != nil {
		cfg.HostFunction = HostLookup(engine)
	}
	return compiler.Compile(parsed, cfg)
}

// Load adds a compiled module to the engine, running its global
// initializers. An existing module with the same name is discarded first.
func Load(ctx context.Context, engine *vm.Engine, mod *bytecode.Module) error {
	if engine.Module(mod.Name()) != nil {
		engine.DiscardModule(mod.Name())
	}
	if err := engine.AddModule(ctx, mod); err != nil {
		return fmt.Errorf("module %s: %w", mod.Name(), err)
	}
	return nil
}

// Build compiles the sections into a module and loads it into the engine.
func Build(ctx context.Context, engine *vm.Engine, moduleName string, sections ...Section) (*bytecode.Module, error) {
	mod, err := Compile(ctx, engine, moduleName, sections...)
	if err != nil {
		return nil, err
	}
	if err := Load(ctx, engine, mod); err != nil {
		return nil, err
	}
	return mod, nil
}
