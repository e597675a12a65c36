// Package transform holds the per-file operations the pipeline applies:
// bytecode compilation and minification via external tools, and verbatim
// copying. External tools are hidden behind the Transformer interface so
// tests can substitute fakes without invoking real binaries.
package transform

import (
	"context"
	"fmt"
)

// Transformer produces the destination counterpart of a single source file.
// Implementations must be safe for concurrent use; stage workers share one
// instance.
type Transformer interface {
	// Name identifies the transformer in logs and failure reports.
	Name() string
	// Transform reads inputPath and writes outputPath. The destination
	// directory already exists when called. Failures are per-file: they are
	// recorded by the stage runner and never abort the stage.
	Transform(ctx context.Context, inputPath, outputPath string) error
}

// TransformError wraps a per-file transformation failure with the tool that
// produced it. Recorded, never thrown past the stage boundary.
type TransformError struct {
	Tool  string
	Input string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s with %s: %v", e.Input, e.Tool, e.Err)
}
func (e *TransformError) Unwrap() error { return e.Err }
