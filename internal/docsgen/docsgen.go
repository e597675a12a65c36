// Package docsgen renders bundled Markdown documentation to HTML during
// packaging. It is an optional stage: without a registered .md mapping the
// pipeline skips it entirely.
package docsgen

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
)

const pageTemplate = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
%s</body>
</html>
`

// Renderer converts Markdown files to standalone HTML pages. It satisfies the
// pipeline's transformer contract so it slots in like any external tool, but
// runs in-process.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer returns a Markdown renderer with CommonMark semantics.
func NewRenderer() *Renderer {
	return &Renderer{md: goldmark.New()}
}

func (r *Renderer) Name() string { return "render_docs" }

// Transform reads the Markdown at inputPath and writes a full HTML page to
// outputPath. The page title is the file name without extension.
func (r *Renderer) Transform(_ context.Context, inputPath, outputPath string) error {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read markdown: %w", err)
	}

	var body bytes.Buffer
	if err := r.md.Convert(src, &body); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	page := fmt.Sprintf(pageTemplate, html.EscapeString(title), body.String())
	if err := os.WriteFile(outputPath, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}
