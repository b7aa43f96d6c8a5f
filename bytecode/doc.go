// Package bytecode provides immutable representations of compiled script code.
//
// This package defines the output of compilation: pure data structures that
// represent compiled bytecode, function and class templates, and the module
// that groups them. These types are created once by the compiler (or by hand
// with a [Builder]) and shared safely across execution contexts.
//
// # Key Types
//
//   - [Code]: An immutable compiled code block (a function body)
//   - [Function]: A function, method, constructor or destructor with its
//     declaration, parameters and code
//   - [Class]: A script class with fields, constructors, destructor and methods
//   - [Module]: The function, class and global tables an engine looks up
//   - [SourceLocation]: Maps bytecode to source positions (value type)
//
// # Immutability Guarantees
//
// All types in this package are immutable after construction. Constructors
// copy input slices and accessors are index based:
//
//	code.InstructionAt(0)
//	code.ConstantAt(i)
//	module.FunctionAt(j)
//
// # Package Dependencies
//
// This package depends only on the op package. Constants are stored as []any
// and converted to runtime objects by the execution context at load time.
package bytecode
