package bytecode

import (
	"fmt"

	"github.com/risor-io/vmctx/op"
)

// Builder assembles the body of one function. It records a source location
// for every instruction word so that faults can be reported by line.
//
//	b := bytecode.NewBuilder("ExecuteString")
//	a := b.DeclareLocal("a")
//	b.SetLine(1)
//	b.EmitConst(int64(0))
//	b.Emit(op.StoreFast, a)
//	code := b.Build()
type Builder struct {
	name         string
	filename     string
	source       string
	instructions []op.Code
	locations    []SourceLocation
	constants    []any
	names        []string
	nameIndex    map[string]uint16
	localNames   []string
	location     SourceLocation
}

// NewBuilder returns a Builder for a code block with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:      name,
		nameIndex: map[string]uint16{},
	}
}

// SetSource records the source text and filename the code is built from.
func (b *Builder) SetSource(filename, source string) *Builder {
	b.filename = filename
	b.source = source
	return b
}

// SetLocation sets the location attached to subsequently emitted instructions.
func (b *Builder) SetLocation(loc SourceLocation) *Builder {
	b.location = loc
	return b
}

// SetLine sets the line (column 1) attached to subsequently emitted
// instructions.
func (b *Builder) SetLine(line int) *Builder {
	b.location = SourceLocation{Line: line, Column: 1}
	return b
}

// Location returns the location currently attached to new instructions.
func (b *Builder) Location() SourceLocation {
	return b.location
}

// Emit appends an instruction and its operands and returns its offset.
func (b *Builder) Emit(code op.Code, operands ...uint16) int {
	pos := len(b.instructions)
	b.instructions = append(b.instructions, code)
	b.locations = append(b.locations, b.location)
	for _, operand := range operands {
		b.instructions = append(b.instructions, op.Code(operand))
		b.locations = append(b.locations, b.location)
	}
	return pos
}

// EmitConst appends a LoadConst instruction for the given constant.
func (b *Builder) EmitConst(value any) int {
	return b.Emit(op.LoadConst, b.AddConstant(value))
}

// Offset returns the offset of the next instruction to be emitted.
func (b *Builder) Offset() int {
	return len(b.instructions)
}

// Patch overwrites the operand at the given position (opcode offset plus
// operand index plus one).
func (b *Builder) Patch(opcodePos, operandIndex int, value uint16) {
	b.instructions[opcodePos+operandIndex+1] = op.Code(value)
}

// AddConstant adds a constant and returns its index. Supported types are
// int64, float64, string and bool; int is stored as int64.
func (b *Builder) AddConstant(value any) uint16 {
	switch v := value.(type) {
	case int:
		value = int64(v)
	case int64, float64, string, bool:
	default:
		panic(fmt.Sprintf("bytecode: unsupported constant type: %T", value))
	}
	for i, c := range b.constants {
		if c == value {
			return uint16(i)
		}
	}
	b.constants = append(b.constants, value)
	return uint16(len(b.constants) - 1)
}

// AddName adds a name (attribute, method, class or host function) and returns
// its index. Names are deduplicated.
func (b *Builder) AddName(name string) uint16 {
	if idx, ok := b.nameIndex[name]; ok {
		return idx
	}
	b.names = append(b.names, name)
	idx := uint16(len(b.names) - 1)
	b.nameIndex[name] = idx
	return idx
}

// DeclareLocal reserves a new local slot and returns its index. Names do not
// need to be unique; scoping is the caller's concern.
func (b *Builder) DeclareLocal(name string) uint16 {
	b.localNames = append(b.localNames, name)
	return uint16(len(b.localNames) - 1)
}

// LocalCount returns the number of local slots declared so far.
func (b *Builder) LocalCount() int {
	return len(b.localNames)
}

// Build returns the immutable Code.
func (b *Builder) Build() *Code {
	return NewCode(CodeParams{
		Name:         b.name,
		Instructions: b.instructions,
		Constants:    b.constants,
		Names:        b.names,
		Source:       b.source,
		Filename:     b.filename,
		Locations:    b.locations,
		LocalCount:   len(b.localNames),
		LocalNames:   b.localNames,
	})
}
