package bytecode

// Stats contains statistics about a compiled module.
// This is useful for auditing scripts before execution.
type Stats struct {
	// InstructionCount is the total number of instruction words.
	InstructionCount int `json:"instructions"`

	// ConstantCount is the number of constants across all code blocks.
	ConstantCount int `json:"constants"`

	// GlobalCount is the number of global variables.
	GlobalCount int `json:"globals"`

	// FunctionCount is the number of functions with a body, including
	// class members and the global initializer.
	FunctionCount int `json:"functions"`

	// ClassCount is the number of classes.
	ClassCount int `json:"classes"`
}

// ModuleStats walks every function of the module and returns its Stats.
func ModuleStats(m *Module) Stats {
	stats := Stats{
		GlobalCount: m.GlobalCount(),
		ClassCount:  m.ClassCount(),
	}
	m.EachFunction(func(fn *Function) {
		code := fn.Code()
		if code == nil {
			return
		}
		stats.FunctionCount++
		stats.InstructionCount += code.InstructionCount()
		stats.ConstantCount += code.ConstantCount()
	})
	return stats
}
