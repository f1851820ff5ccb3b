package clients

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandError carries the attempted command line and its diagnostic output.
type CommandError struct {
	Name   string
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	cmdline := strings.TrimSpace(e.Name + " " + strings.Join(e.Args, " "))
	if e.Output == "" {
		return fmt.Sprintf("command '%s' failed: %v", cmdline, e.Err)
	}
	return fmt.Sprintf("command '%s' failed: %v\nstderr: %s", cmdline, e.Err, e.Output)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Runner executes an external binary and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Execute is the default Runner.
func Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Name: name, Args: args, Output: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}
