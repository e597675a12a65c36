package transform

import (
	"time"

	"git.home.luguber.info/inful/relpack/internal/registry"
)

// compileSnippet invokes the bytecode compiler with an explicit output file
// so the path mapper stays in control of artifact locations (the interpreter
// default would scatter artifacts into __pycache__).
const compileSnippet = "import py_compile, sys; py_compile.compile(sys.argv[1], cfile=sys.argv[2], doraise=True)"

// ToolSpec is the configurable shape of one external tool invocation.
type ToolSpec struct {
	Command string
	Args    []string
}

// DefaultTools returns the stock tool set per operation. Markup minification
// collapses whitespace and strips comments and redundant type attributes;
// script and style use the tools' standard minification.
func DefaultTools() map[registry.OperationKind]ToolSpec {
	return map[registry.OperationKind]ToolSpec{
		registry.OpCompile: {
			Command: "python3",
			Args:    []string{"-c", compileSnippet, PlaceholderInput, PlaceholderOutput},
		},
		registry.OpMinifyMarkup: {
			Command: "html-minifier",
			Args: []string{
				"--collapse-whitespace",
				"--remove-comments",
				"--remove-redundant-attributes",
				"-o", PlaceholderOutput,
				PlaceholderInput,
			},
		},
		registry.OpMinifyScript: {
			Command: "terser",
			Args:    []string{PlaceholderInput, "--compress", "--mangle", "-o", PlaceholderOutput},
		},
		registry.OpMinifyStyle: {
			Command: "cleancss",
			Args:    []string{"-o", PlaceholderOutput, PlaceholderInput},
		},
	}
}

// Build constructs the Transformer for an operation from its tool spec.
// OpCopy ignores the tool table entirely.
func Build(op registry.OperationKind, tool ToolSpec, timeout time.Duration) Transformer {
	if op == registry.OpCopy {
		return Copier{}
	}
	return NewExec(string(op), tool.Command, tool.Args, timeout)
}
