// Package registry maps file extensions to the transformation applied during
// packaging. The set of operations is a closed enum so the supported file
// types are statically enumerable.
package registry

import "strings"

// OperationKind enumerates the transformations the pipeline can apply.
type OperationKind string

const (
	OpCompile      OperationKind = "compile"
	OpMinifyMarkup OperationKind = "minify_markup"
	OpMinifyScript OperationKind = "minify_script"
	OpMinifyStyle  OperationKind = "minify_style"
	OpRenderDocs   OperationKind = "render_docs"
	OpCopy         OperationKind = "copy"
)

// TransformSpec describes how files of one extension are transformed.
// DestinationExtension is empty when the extension is kept as-is.
type TransformSpec struct {
	MatchExtension       string
	DestinationExtension string
	Operation            OperationKind
}

// Registry resolves file extensions to transform specs. Matching is exact on
// the lowercased extension; mixed-case filenames across platforms would
// otherwise make the stage set ambiguous.
type Registry struct {
	specs map[string]TransformSpec
}

// New builds a registry from the given specs. Later specs for the same
// extension replace earlier ones.
func New(specs ...TransformSpec) *Registry {
	r := &Registry{specs: make(map[string]TransformSpec, len(specs))}
	for _, s := range specs {
		s.MatchExtension = strings.ToLower(s.MatchExtension)
		r.specs[s.MatchExtension] = s
	}
	return r
}

// Default returns the registry for packaging a web-service project tree:
// sources are byte-compiled, markup/script/style minified.
func Default() *Registry {
	return New(
		TransformSpec{MatchExtension: ".py", DestinationExtension: ".pyc", Operation: OpCompile},
		TransformSpec{MatchExtension: ".html", Operation: OpMinifyMarkup},
		TransformSpec{MatchExtension: ".js", Operation: OpMinifyScript},
		TransformSpec{MatchExtension: ".css", Operation: OpMinifyStyle},
	)
}

// Resolve returns the spec registered for ext. A miss means the file is not
// stage-eligible and is skipped, never an error; unrelated files in a mixed
// directory must not abort a build.
func (r *Registry) Resolve(ext string) (TransformSpec, bool) {
	s, ok := r.specs[strings.ToLower(ext)]
	return s, ok
}

// Specs returns all registered specs keyed by match extension.
func (r *Registry) Specs() map[string]TransformSpec {
	out := make(map[string]TransformSpec, len(r.specs))
	for k, v := range r.specs {
		out[k] = v
	}
	return out
}
