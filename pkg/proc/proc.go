// Package proc runs external helper programs (pandoc, osascript,
// powershell, xdotool, wl-paste ...) with a timeout and captured output.
package proc

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"pastemd/pkg/errors"
)

// DefaultTimeout applies when a Cmd does not set one.
const DefaultTimeout = 120 * time.Second

// ExitCodeTimeout is reported for processes killed at their deadline.
const ExitCodeTimeout = 124

type Cmd struct {
	Name    string
	Args    []string
	Dir     string
	Stdin   []byte
	Env     []string
	Timeout time.Duration
	// DiscardOutput leaves stdout and stderr unattached, for programs that
	// fork a background child holding the inherited descriptors.
	DiscardOutput bool
}

func (c Cmd) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Err turns a non-zero exit or a timeout into an error naming the program.
// Timeouts wrap errors.ErrTimeout.
func (r Result) Err(name string) error {
	switch {
	case r.TimedOut:
		return fmt.Errorf("%s: %w", name, errors.ErrTimeout)
	case r.ExitCode != 0:
		msg := strings.TrimSpace(r.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(r.Stdout)
		}
		if msg == "" {
			return fmt.Errorf("%s exited with code %d", name, r.ExitCode)
		}
		return fmt.Errorf("%s exited with code %d: %s", name, r.ExitCode, msg)
	}
	return nil
}

// Runner starts a process and waits for it. The error is non-nil only when
// the process could not be started; exit status lives in Result.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
}

// Exec runs real processes.
type Exec struct{}

var _ Runner = Exec{}

func (Exec) Run(ctx context.Context, c Cmd) (Result, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if strings.TrimSpace(c.Dir) != "" {
		cmd.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}

	var outBuf, errBuf bytes.Buffer
	if !c.DiscardOutput {
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
	}

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("failed to start %s: %w", c.Name, err)
	}

	waitErr := cmd.Wait()
	timedOut := stderrors.Is(ctx.Err(), context.DeadlineExceeded)

	exitCode := 0
	switch {
	case timedOut:
		exitCode = ExitCodeTimeout
	case waitErr != nil:
		var ee *exec.ExitError
		if stderrors.As(waitErr, &ee) && ee.ProcessState != nil {
			exitCode = ee.ProcessState.ExitCode()
		} else {
			exitCode = 1
		}
	case cmd.ProcessState != nil:
		exitCode = cmd.ProcessState.ExitCode()
	}

	return Result{
		ExitCode: exitCode,
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		TimedOut: timedOut,
	}, nil
}

// Output runs cmd and returns stdout, failing on start errors, non-zero
// exits and timeouts.
func Output(ctx context.Context, r Runner, cmd Cmd) (string, error) {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if err := res.Err(cmd.Name); err != nil {
		return res.Stdout, err
	}
	return res.Stdout, nil
}

// Which reports the resolved path of name on PATH.
func Which(name string) (string, bool) {
	p, err := exec.LookPath(name)
	if err == nil && strings.TrimSpace(p) != "" {
		return p, true
	}
	return "", false
}
