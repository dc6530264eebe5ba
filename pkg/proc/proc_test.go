package proc

import (
	"context"
	stderrors "errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"pastemd/pkg/errors"
)

func TestResultErr(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		wantNil  bool
		contains string
		timeout  bool
	}{
		{name: "success", result: Result{}, wantNil: true},
		{name: "stderr message", result: Result{ExitCode: 2, Stderr: "boom\n"}, contains: "code 2: boom"},
		{name: "stdout fallback", result: Result{ExitCode: 1, Stdout: "out"}, contains: "code 1: out"},
		{name: "no output", result: Result{ExitCode: 3}, contains: "exited with code 3"},
		{name: "timed out", result: Result{ExitCode: ExitCodeTimeout, TimedOut: true}, timeout: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Err("tool")
			if tt.wantNil {
				if err != nil {
					t.Errorf("Err() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Err() = nil, want error")
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Err() = %q, want it to contain %q", err, tt.contains)
			}
			if tt.timeout != stderrors.Is(err, errors.ErrTimeout) {
				t.Errorf("errors.Is(err, ErrTimeout) = %v, want %v", !tt.timeout, tt.timeout)
			}
		})
	}
}

func TestExecRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	if _, ok := Which("sh"); !ok {
		t.Skip("sh not available")
	}

	res, err := Exec{}.Run(context.Background(), Cmd{
		Name:  "sh",
		Args:  []string{"-c", "cat; echo err >&2; exit 3"},
		Stdin: []byte("in"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 3 || res.Stdout != "in" || strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("Run() = %+v", res)
	}
}

func TestExecRunTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep")
	}
	if _, ok := Which("sleep"); !ok {
		t.Skip("sleep not available")
	}

	res, err := Exec{}.Run(context.Background(), Cmd{
		Name:    "sleep",
		Args:    []string{"5"},
		Timeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.TimedOut || res.ExitCode != ExitCodeTimeout {
		t.Errorf("Run() = %+v, want timeout", res)
	}
}

func TestExecRunMissingBinary(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), Cmd{Name: "pastemd-definitely-missing-binary"})
	if err == nil {
		t.Fatal("Run() error = nil, want start failure")
	}
}

func TestOutputAndFake(t *testing.T) {
	fake := &Fake{Handler: func(c Cmd) (Result, error) {
		if c.Name == "bad" {
			return Result{ExitCode: 1, Stderr: "nope"}, nil
		}
		return Result{Stdout: "ok"}, nil
	}}

	out, err := Output(context.Background(), fake, Cmd{Name: "good", Args: []string{"-x"}})
	if err != nil || out != "ok" {
		t.Errorf("Output() = %q, %v", out, err)
	}
	if _, err := Output(context.Background(), fake, Cmd{Name: "bad"}); err == nil {
		t.Error("Output() error = nil for failing command")
	}

	calls := fake.Calls()
	if len(calls) != 2 || calls[0].String() != "good -x" {
		t.Errorf("Calls() = %+v", calls)
	}
}
