package builtins

// FuncSpec documents a host function.
type FuncSpec struct {
	Declaration string `json:"declaration"`
	Doc         string `json:"doc"`
	Example     string `json:"example,omitempty"`
}

// Docs returns documentation for all builtin functions.
func Docs() []FuncSpec {
	return builtinDocs
}

var builtinDocs = []FuncSpec{
	{
		Declaration: "void assert(bool)",
		Doc:         "Raise an exception if condition is false",
		Example:     "assert(x > 0);",
	},
	{
		Declaration: "void assert(bool, const string &in)",
		Doc:         "Raise an exception with the given message if condition is false",
		Example:     `assert(x > 0, "x must be positive");`,
	},
	{
		Declaration: "float parseFloat(const string &in)",
		Doc:         "Parse a string as a float",
		Example:     `float f = parseFloat("2.5");`,
	},
	{
		Declaration: "int parseInt(const string &in)",
		Doc:         "Parse a string as an int; 0x and 0o prefixes are accepted",
		Example:     `int i = parseInt("42");`,
	},
	{
		Declaration: "void print(const string &in)",
		Doc:         "Write a line to the output",
		Example:     `print("hello");`,
	},
	{
		Declaration: "string str(int)",
		Doc:         "Convert a value to a string",
		Example:     "string s = str(42);",
	},
	{
		Declaration: "void throw(const string &in)",
		Doc:         "Raise a script exception with the given message",
		Example:     `throw("out of range");`,
	},
}
