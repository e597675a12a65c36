package transform

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Copier copies files byte-exactly, preserving the source file mode.
type Copier struct{}

func (Copier) Name() string { return "copy" }

func (Copier) Transform(ctx context.Context, inputPath, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return &TransformError{Tool: "copy", Input: inputPath, Err: err}
	}
	if err := CopyFile(inputPath, outputPath); err != nil {
		return &TransformError{Tool: "copy", Input: inputPath, Err: err}
	}
	return nil
}

// CopyFile copies src to dst byte-exactly, carrying over the file mode.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy contents: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	// O_CREATE honors umask; chmod makes the preserved mode explicit when the
	// destination already existed or umask intervened.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod destination: %w", err)
	}
	return nil
}
