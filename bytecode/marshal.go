package bytecode

import (
	"encoding/json"
	"fmt"

	"github.com/risor-io/vmctx/op"
)

// MarshalModule converts a Module into a JSON representation.
func MarshalModule(m *Module) ([]byte, error) {
	def, err := moduleToDef(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(def)
}

// UnmarshalModule converts a JSON representation into a Module.
func UnmarshalModule(data []byte) (*Module, error) {
	var def moduleDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return moduleFromDef(&def)
}

// Serialization types

type constantDef struct {
	Type string `json:"type"`
}

type boolConstantDef struct {
	Type  string `json:"type"`
	Value bool   `json:"value"`
}

type intConstantDef struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

type floatConstantDef struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

type stringConstantDef struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type locationDef struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type typeDef struct {
	Name   string `json:"name"`
	Const  bool   `json:"const,omitempty"`
	Handle bool   `json:"handle,omitempty"`
	Array  bool   `json:"array,omitempty"`
}

type paramDef struct {
	Name string    `json:"name,omitempty"`
	Type typeDef   `json:"type"`
	Mode ParamMode `json:"mode,omitempty"`
}

type codeDef struct {
	Name         string            `json:"name"`
	Instructions []op.Code         `json:"instructions"`
	Constants    []json.RawMessage `json:"constants"`
	Names        []string          `json:"names"`
	Source       string            `json:"source,omitempty"`
	Filename     string            `json:"filename,omitempty"`
	Locations    []locationDef     `json:"locations,omitempty"`
	LocalCount   int               `json:"local_count"`
	LocalNames   []string          `json:"local_names,omitempty"`
}

type functionDef struct {
	Name        string       `json:"name"`
	Declaration string       `json:"declaration"`
	Module      string       `json:"module,omitempty"`
	ClassName   string       `json:"class_name,omitempty"`
	Kind        FunctionKind `json:"kind"`
	Params      []paramDef   `json:"params,omitempty"`
	Returns     typeDef      `json:"returns"`
	Code        *codeDef     `json:"code,omitempty"`
}

type fieldDef struct {
	Name string  `json:"name"`
	Type typeDef `json:"type"`
}

type classDef struct {
	Name         string         `json:"name"`
	Module       string         `json:"module,omitempty"`
	Fields       []fieldDef     `json:"fields,omitempty"`
	Constructors []*functionDef `json:"constructors,omitempty"`
	Destructor   *functionDef   `json:"destructor,omitempty"`
	Methods      []*functionDef `json:"methods,omitempty"`
}

type globalDef struct {
	Name string  `json:"name"`
	Type typeDef `json:"type"`
}

type moduleDef struct {
	Name      string         `json:"name"`
	Functions []*functionDef `json:"functions,omitempty"`
	Classes   []*classDef    `json:"classes,omitempty"`
	Globals   []globalDef    `json:"globals,omitempty"`
	Init      *functionDef   `json:"init,omitempty"`
}

func toTypeDef(t TypeRef) typeDef {
	return typeDef{Name: t.Name, Const: t.Const, Handle: t.Handle, Array: t.Array}
}

func fromTypeDef(t typeDef) TypeRef {
	return TypeRef{Name: t.Name, Const: t.Const, Handle: t.Handle, Array: t.Array}
}

func moduleToDef(m *Module) (*moduleDef, error) {
	def := &moduleDef{Name: m.Name()}
	for i := 0; i < m.FunctionCount(); i++ {
		fd, err := functionToDef(m.FunctionAt(i))
		if err != nil {
			return nil, err
		}
		def.Functions = append(def.Functions, fd)
	}
	for i := 0; i < m.ClassCount(); i++ {
		cd, err := classToDef(m.ClassAt(i))
		if err != nil {
			return nil, err
		}
		def.Classes = append(def.Classes, cd)
	}
	for i := 0; i < m.GlobalCount(); i++ {
		g := m.GlobalAt(i)
		def.Globals = append(def.Globals, globalDef{Name: g.Name, Type: toTypeDef(g.Type)})
	}
	if m.Init() != nil {
		fd, err := functionToDef(m.Init())
		if err != nil {
			return nil, err
		}
		def.Init = fd
	}
	return def, nil
}

func classToDef(c *Class) (*classDef, error) {
	def := &classDef{Name: c.Name(), Module: c.Module()}
	for i := 0; i < c.FieldCount(); i++ {
		f := c.FieldAt(i)
		def.Fields = append(def.Fields, fieldDef{Name: f.Name, Type: toTypeDef(f.Type)})
	}
	for i := 0; i < c.ConstructorCount(); i++ {
		fd, err := functionToDef(c.ConstructorAt(i))
		if err != nil {
			return nil, err
		}
		def.Constructors = append(def.Constructors, fd)
	}
	if c.Destructor() != nil {
		fd, err := functionToDef(c.Destructor())
		if err != nil {
			return nil, err
		}
		def.Destructor = fd
	}
	for i := 0; i < c.MethodCount(); i++ {
		fd, err := functionToDef(c.MethodAt(i))
		if err != nil {
			return nil, err
		}
		def.Methods = append(def.Methods, fd)
	}
	return def, nil
}

func functionToDef(fn *Function) (*functionDef, error) {
	def := &functionDef{
		Name:        fn.Name(),
		Declaration: fn.Declaration(),
		Module:      fn.Module(),
		ClassName:   fn.ClassName(),
		Kind:        fn.Kind(),
		Returns:     toTypeDef(fn.Returns()),
	}
	for i := 0; i < fn.ParamCount(); i++ {
		p := fn.Param(i)
		def.Params = append(def.Params, paramDef{Name: p.Name, Type: toTypeDef(p.Type), Mode: p.Mode})
	}
	if fn.Code() != nil {
		cd, err := codeToDef(fn.Code())
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.QualifiedName(), err)
		}
		def.Code = cd
	}
	return def, nil
}

func codeToDef(c *Code) (*codeDef, error) {
	constants, err := marshalConstants(c)
	if err != nil {
		return nil, err
	}
	def := &codeDef{
		Name:       c.Name(),
		Constants:  constants,
		Source:     c.Source(),
		Filename:   c.Filename(),
		LocalCount: c.LocalCount(),
	}
	def.Instructions = make([]op.Code, c.InstructionCount())
	for i := range def.Instructions {
		def.Instructions[i] = c.InstructionAt(i)
	}
	def.Names = make([]string, c.NameCount())
	for i := range def.Names {
		def.Names[i] = c.NameAt(i)
	}
	def.Locations = make([]locationDef, c.LocationCount())
	for i := range def.Locations {
		loc := c.LocationAt(i)
		def.Locations[i] = locationDef{Line: loc.Line, Column: loc.Column}
	}
	for i := 0; i < c.LocalNameCount(); i++ {
		def.LocalNames = append(def.LocalNames, c.LocalNameAt(i))
	}
	return def, nil
}

func marshalConstants(c *Code) ([]json.RawMessage, error) {
	constants := make([]json.RawMessage, 0, c.ConstantCount())
	for i := 0; i < c.ConstantCount(); i++ {
		var v any
		switch constant := c.ConstantAt(i).(type) {
		case bool:
			v = boolConstantDef{Type: "bool", Value: constant}
		case int64:
			v = intConstantDef{Type: "int", Value: constant}
		case float64:
			v = floatConstantDef{Type: "float", Value: constant}
		case string:
			v = stringConstantDef{Type: "string", Value: constant}
		default:
			return nil, fmt.Errorf("unsupported constant type: %T", constant)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		constants = append(constants, data)
	}
	return constants, nil
}

func unmarshalConstants(constants []json.RawMessage) ([]any, error) {
	result := make([]any, 0, len(constants))
	for _, data := range constants {
		var header constantDef
		if err := json.Unmarshal(data, &header); err != nil {
			return nil, err
		}
		switch header.Type {
		case "bool":
			var c boolConstantDef
			if err := json.Unmarshal(data, &c); err != nil {
				return nil, err
			}
			result = append(result, c.Value)
		case "int":
			var c intConstantDef
			if err := json.Unmarshal(data, &c); err != nil {
				return nil, err
			}
			result = append(result, c.Value)
		case "float":
			var c floatConstantDef
			if err := json.Unmarshal(data, &c); err != nil {
				return nil, err
			}
			result = append(result, c.Value)
		case "string":
			var c stringConstantDef
			if err := json.Unmarshal(data, &c); err != nil {
				return nil, err
			}
			result = append(result, c.Value)
		default:
			return nil, fmt.Errorf("unsupported constant type: %s", header.Type)
		}
	}
	return result, nil
}

func moduleFromDef(def *moduleDef) (*Module, error) {
	params := ModuleParams{Name: def.Name}
	for _, fd := range def.Functions {
		fn, err := functionFromDef(fd)
		if err != nil {
			return nil, err
		}
		params.Functions = append(params.Functions, fn)
	}
	for _, cd := range def.Classes {
		c, err := classFromDef(cd)
		if err != nil {
			return nil, err
		}
		params.Classes = append(params.Classes, c)
	}
	for _, g := range def.Globals {
		params.Globals = append(params.Globals, Global{Name: g.Name, Type: fromTypeDef(g.Type)})
	}
	if def.Init != nil {
		fn, err := functionFromDef(def.Init)
		if err != nil {
			return nil, err
		}
		params.Init = fn
	}
	return NewModule(params), nil
}

func classFromDef(def *classDef) (*Class, error) {
	params := ClassParams{Name: def.Name, Module: def.Module}
	for _, f := range def.Fields {
		params.Fields = append(params.Fields, Field{Name: f.Name, Type: fromTypeDef(f.Type)})
	}
	for _, fd := range def.Constructors {
		fn, err := functionFromDef(fd)
		if err != nil {
			return nil, err
		}
		params.Constructors = append(params.Constructors, fn)
	}
	if def.Destructor != nil {
		fn, err := functionFromDef(def.Destructor)
		if err != nil {
			return nil, err
		}
		params.Destructor = fn
	}
	for _, fd := range def.Methods {
		fn, err := functionFromDef(fd)
		if err != nil {
			return nil, err
		}
		params.Methods = append(params.Methods, fn)
	}
	return NewClass(params), nil
}

func functionFromDef(def *functionDef) (*Function, error) {
	params := FunctionParams{
		Name:        def.Name,
		Declaration: def.Declaration,
		Module:      def.Module,
		ClassName:   def.ClassName,
		Kind:        def.Kind,
		Returns:     fromTypeDef(def.Returns),
	}
	for _, p := range def.Params {
		params.Params = append(params.Params, Param{Name: p.Name, Type: fromTypeDef(p.Type), Mode: p.Mode})
	}
	if def.Code != nil {
		constants, err := unmarshalConstants(def.Code.Constants)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", def.Name, err)
		}
		locations := make([]SourceLocation, len(def.Code.Locations))
		for i, loc := range def.Code.Locations {
			locations[i] = SourceLocation{Line: loc.Line, Column: loc.Column}
		}
		params.Code = NewCode(CodeParams{
			Name:         def.Code.Name,
			Instructions: def.Code.Instructions,
			Constants:    constants,
			Names:        def.Code.Names,
			Source:       def.Code.Source,
			Filename:     def.Code.Filename,
			Locations:    locations,
			LocalCount:   def.Code.LocalCount,
			LocalNames:   def.Code.LocalNames,
		})
	}
	return NewFunction(params), nil
}
