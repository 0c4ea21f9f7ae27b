// File: internal/process/runner.go
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// defaultWaitDelay bounds how long we wait for pipes to drain after the process
// group has been killed.
const defaultWaitDelay = 5 * time.Second

// Command describes a single subprocess invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result holds the captured output of a finished subprocess.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError is returned when a subprocess ran but exited non-zero. Its message
// carries the exit code and both output streams so it can be surfaced as-is.
type ExitError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d\nstdout: %s\nstderr: %s",
		e.Command, e.ExitCode, e.Stdout, e.Stderr)
}

// Runner executes subprocesses. Implementations must stop the whole process tree
// when ctx is cancelled.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands on the host via os/exec.
type ExecRunner struct {
	logger    *zap.Logger
	waitDelay time.Duration
}

// NewExecRunner creates a runner. A nil logger is replaced by a no-op logger.
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{
		logger:    logger.Named("process"),
		waitDelay: defaultWaitDelay,
	}
}

// Run starts cmd in its own process group and waits for it. On cancellation the
// entire group is killed, so installers cannot leave orphaned children behind.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Name == "" {
		return nil, errors.New("command name cannot be empty")
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = cmd.Env
	}
	c.SysProcAttr = groupAttr()
	c.Cancel = func() error { return killGroup(c) }
	c.WaitDelay = r.waitDelay

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	r.logger.Debug("Running command.", zap.String("command", cmd.String()), zap.String("dir", cmd.Dir))
	start := time.Now()
	err := c.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}
	r.logger.Debug("Command finished.",
		zap.String("command", cmd.Name),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", time.Since(start)))

	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("command %q interrupted: %w", cmd.String(), ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{
			Command:  cmd.String(),
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	return res, fmt.Errorf("failed to run command %q: %w", cmd.String(), err)
}
