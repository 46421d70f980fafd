// Package extproc isolates synchronous external-program invocation from the
// numerical pipeline, so the pipeline can be driven by a fake in tests.
package extproc

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/danijoo/adaptiveumbrella/internal/ctxlog"
)

// Command describes one external program invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// ExitError reports a nonzero exit status of an external program.
type ExitError struct {
	Command Command
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Command.Name, e.Code)
}

// Invoker runs an external command to completion. Run blocks until the
// process terminates; there is no retry and no timeout beyond what the
// context carries.
type Invoker interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecInvoker launches commands through os/exec. With Verbose set it logs
// the full command line and the program's combined output.
type ExecInvoker struct {
	Verbose bool
}

func (inv *ExecInvoker) Run(ctx context.Context, cmd Command) error {
	log := ctxlog.FromContext(ctx)
	if inv.Verbose {
		log.Info("running external command", "cmd", cmd.String())
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	out, err := c.CombinedOutput()
	if inv.Verbose && len(out) > 0 {
		log.Info("external command output", "cmd", cmd.Name, "output", string(out))
	}
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: cmd, Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("run %s: %w", cmd.Name, err)
}

// Fake is an Invoker for tests. It records every command and delegates to
// Handler when set; without a handler every invocation succeeds.
type Fake struct {
	Calls   []Command
	Handler func(cmd Command) error
}

func (f *Fake) Run(_ context.Context, cmd Command) error {
	f.Calls = append(f.Calls, cmd)
	if f.Handler != nil {
		return f.Handler(cmd)
	}
	return nil
}
