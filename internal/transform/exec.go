package transform

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/relpack/internal/logfields"
)

// Placeholders substituted into an ExecTransformer's argv template.
const (
	PlaceholderInput  = "{input}"
	PlaceholderOutput = "{output}"
)

// ExecTransformer runs an external executable resolved via PATH for every
// file. The argv template carries {input}/{output} placeholders so one
// implementation covers compilers and minifiers alike.
type ExecTransformer struct {
	name    string
	command string
	args    []string
	timeout time.Duration
}

// NewExec builds a transformer that invokes command with args after
// placeholder substitution. A non-positive timeout disables the per-file
// deadline.
func NewExec(name, command string, args []string, timeout time.Duration) *ExecTransformer {
	return &ExecTransformer{name: name, command: command, args: args, timeout: timeout}
}

func (t *ExecTransformer) Name() string { return t.name }

// Transform invokes the external tool. Missing binary, non-zero exit and
// timeouts all surface as *TransformError; a timeout aborts only this file.
func (t *ExecTransformer) Transform(ctx context.Context, inputPath, outputPath string) error {
	if _, err := exec.LookPath(t.command); err != nil {
		return &TransformError{Tool: t.name, Input: inputPath, Err: fmt.Errorf("executable %s not found: %w", t.command, err)}
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	args := make([]string, len(t.args))
	for i, a := range t.args {
		a = strings.ReplaceAll(a, PlaceholderInput, inputPath)
		a = strings.ReplaceAll(a, PlaceholderOutput, outputPath)
		args[i] = a
	}

	cmd := exec.CommandContext(ctx, t.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	slog.Debug("External tool finished",
		logfields.Tool(t.name),
		logfields.Source(inputPath),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))

	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if ctx.Err() == context.DeadlineExceeded {
			return &TransformError{Tool: t.name, Input: inputPath, Err: fmt.Errorf("timed out after %s", t.timeout)}
		}
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return &TransformError{Tool: t.name, Input: inputPath, Err: err}
	}
	return nil
}
