// Package dis disassembles compiled functions into a readable listing.
package dis

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/internal/table"
	"github.com/risor-io/vmctx/op"
)

var (
	opcodeColor = color.New(color.FgCyan)
	infoColor   = color.New(color.FgYellow)
)

// Instruction is one decoded instruction.
type Instruction struct {
	Offset   int
	Line     int
	Opcode   op.Code
	Name     string
	Operands []op.Code
	Info     string
}

// Disassemble decodes every instruction of code.
func Disassemble(code *bytecode.Code) ([]Instruction, error) {
	var instructions []Instruction
	iter := bytecode.NewInstructionIter(code)
	for {
		offset := iter.Offset()
		val, ok := iter.Next()
		if !ok {
			break
		}
		opcode := val[0]
		info := op.GetInfo(opcode)
		if info.Name == "" {
			return nil, fmt.Errorf("unknown opcode %d at offset %d", opcode, offset)
		}
		if len(val) != info.OperandCount+1 {
			return nil, fmt.Errorf("truncated %s instruction at offset %d", info.Name, offset)
		}
		instr := Instruction{
			Offset:   offset,
			Line:     code.LocationAt(offset).Line,
			Opcode:   opcode,
			Name:     info.Name,
			Operands: val[1:],
		}
		instr.Info = describe(code, opcode, instr.Operands)
		instructions = append(instructions, instr)
	}
	return instructions, nil
}

func describe(code *bytecode.Code, opcode op.Code, operands []op.Code) string {
	switch opcode {
	case op.LoadConst:
		switch value := code.ConstantAt(int(operands[0])).(type) {
		case string:
			return fmt.Sprintf("%q", value)
		default:
			return fmt.Sprintf("%v", value)
		}
	case op.LoadAttr, op.StoreAttr:
		return code.NameAt(int(operands[0]))
	case op.CallMethod, op.CallNative, op.New:
		return fmt.Sprintf("%s/%d", code.NameAt(int(operands[0])), operands[1])
	case op.LoadFast, op.StoreFast:
		if name := code.LocalNameAt(int(operands[0])); name != "" {
			return name
		}
	case op.BinaryOp:
		return op.BinaryOpType(operands[0]).String()
	case op.CompareOp:
		return op.CompareOpType(operands[0]).String()
	case op.Jump, op.PopJumpIfFalse, op.PopJumpIfTrue:
		return fmt.Sprintf("to %d", operands[0])
	}
	return ""
}

// Print writes the instructions as an aligned table.
func Print(instructions []Instruction, writer io.Writer) error {
	t := table.NewTable(writer).
		WithHeader([]string{"OFFSET", "LINE", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{table.AlignRight, table.AlignRight})
	for _, instr := range instructions {
		operands := make([]string, len(instr.Operands))
		for i, o := range instr.Operands {
			operands[i] = strconv.Itoa(int(o))
		}
		t.Append([]string{
			strconv.Itoa(instr.Offset),
			strconv.Itoa(instr.Line),
			opcodeColor.Sprint(instr.Name),
			strings.Join(operands, " "),
			infoColor.Sprint(instr.Info),
		})
	}
	return t.Render()
}

// PrintFunction disassembles fn and writes it under a header naming the
// function.
func PrintFunction(fn *bytecode.Function, writer io.Writer) error {
	instructions, err := Disassemble(fn.Code())
	if err != nil {
		return fmt.Errorf("%s: %w", fn.QualifiedName(), err)
	}
	if _, err := fmt.Fprintf(writer, "%s:\n", fn.Declaration()); err != nil {
		return err
	}
	return Print(instructions, writer)
}

// PrintModule writes the listing of every function of mod: the global
// initializer, free functions, then the members of each class.
func PrintModule(mod *bytecode.Module, writer io.Writer) error {
	var functions []*bytecode.Function
	if mod.Init() != nil {
		functions = append(functions, mod.Init())
	}
	for i := 0; i < mod.FunctionCount(); i++ {
		functions = append(functions, mod.FunctionAt(i))
	}
	for i := 0; i < mod.ClassCount(); i++ {
		class := mod.ClassAt(i)
		for j := 0; j < class.ConstructorCount(); j++ {
			functions = append(functions, class.ConstructorAt(j))
		}
		if class.Destructor() != nil {
			functions = append(functions, class.Destructor())
		}
		for j := 0; j < class.MethodCount(); j++ {
			functions = append(functions, class.MethodAt(j))
		}
	}
	for i, fn := range functions {
		if i > 0 {
			if _, err := fmt.Fprintln(writer); err != nil {
				return err
			}
		}
		if err := PrintFunction(fn, writer); err != nil {
			return err
		}
	}
	return nil
}
