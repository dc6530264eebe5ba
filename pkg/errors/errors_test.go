package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "basic error without underlying",
			err:      &Error{Code: ExitCodeGeneral, Message: "test error"},
			expected: "test error",
		},
		{
			name:     "error with underlying",
			err:      &Error{Code: ExitCodeClipboard, Message: "clipboard error", Underlying: errors.New("access denied")},
			expected: "clipboard error: access denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			if result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &Error{
		Code:       ExitCodeGeneral,
		Message:    "test error",
		Underlying: underlying,
	}

	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}
}

func TestNewWithError(t *testing.T) {
	underlying := errors.New("pandoc exited 1")
	err := NewWithError(ExitCodeConversion, "conversion failed", underlying)

	if err.Code != ExitCodeConversion {
		t.Errorf("Code = %d, want %d", err.Code, ExitCodeConversion)
	}
	if err.Message != "conversion failed" {
		t.Errorf("Message = %q, want %q", err.Message, "conversion failed")
	}
	if err.Underlying != underlying {
		t.Errorf("Underlying = %v, want %v", err.Underlying, underlying)
	}
}

func TestWrap(t *testing.T) {
	underlying := errors.New("original error")
	err := Wrap(underlying, "wrapped message")

	if err.Error() != "wrapped message: original error" {
		t.Errorf("Error() = %q, want %q", err.Error(), "wrapped message: original error")
	}

	if Wrap(nil, "message") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapKeepsCode(t *testing.T) {
	inner := New(ExitCodeInsertion, "insert failed")
	err := Wrap(inner, "placement")

	if err.Code != ExitCodeInsertion {
		t.Errorf("Code = %d, want %d", err.Code, ExitCodeInsertion)
	}
	if err.Message != "placement: insert failed" {
		t.Errorf("Message = %q, want %q", err.Message, "placement: insert failed")
	}
}

func TestWrapWithCode(t *testing.T) {
	underlying := errors.New("exit status 1")
	err := WrapWithCode(underlying, ExitCodeScriptedAutomation, "osascript")

	if err.Code != ExitCodeScriptedAutomation {
		t.Errorf("Code = %d, want %d", err.Code, ExitCodeScriptedAutomation)
	}
	if !errors.Is(err, underlying) {
		t.Error("WrapWithCode should keep the underlying error in the chain")
	}
}

func TestSentinelsThroughChain(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		code     ExitCode
	}{
		{"clipboard empty", ClipboardEmptyError(), ErrClipboardEmpty, ExitCodeClipboard},
		{"timeout", TimeoutError("osascript"), ErrTimeout, ExitCodeTimeout},
		{"not running", NotRunningError("Word"), ErrNotRunning, ExitCodeInsertion},
		{"wrapped with fmt", fmt.Errorf("pipeline: %w", ClipboardEmptyError()), ErrClipboardEmpty, ExitCodeClipboard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
			if got := CodeOf(tt.err); got != tt.code {
				t.Errorf("CodeOf() = %d, want %d", got, tt.code)
			}
		})
	}
}

func TestIsExitCode(t *testing.T) {
	err := New(ExitCodeUnsupported, "no strategy")

	if !IsExitCode(err, ExitCodeUnsupported) {
		t.Error("IsExitCode() should return true for matching code")
	}

	if IsExitCode(err, ExitCodeConfig) {
		t.Error("IsExitCode() should return false for non-matching code")
	}

	if IsExitCode(nil, ExitCodeGeneral) {
		t.Error("IsExitCode() should return false for nil error")
	}

	if !IsExitCode(errors.New("plain error"), ExitCodeGeneral) {
		t.Error("IsExitCode() should map plain errors to ExitCodeGeneral")
	}
}

func TestHandleQuietReturn(t *testing.T) {
	if got := HandleQuietReturn(nil); got != ExitCodeSuccess {
		t.Errorf("HandleQuietReturn(nil) = %d, want %d", got, ExitCodeSuccess)
	}
	if got := HandleQuietReturn(ConversionError("bad", nil)); got != ExitCodeConversion {
		t.Errorf("HandleQuietReturn() = %d, want %d", got, ExitCodeConversion)
	}
}

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		name  string
		fn    func() *Error
		check func(*Error) bool
	}{
		{
			name:  "ClipboardError",
			fn:    func() *Error { return ClipboardError(ErrMsgClipboardRead, errors.New("no display")) },
			check: func(e *Error) bool { return e.Code == ExitCodeClipboard },
		},
		{
			name:  "ConversionError",
			fn:    func() *Error { return ConversionError(ErrMsgConvertMarkdown, errors.New("pandoc")) },
			check: func(e *Error) bool { return e.Code == ExitCodeConversion && e.Suggestion != "" },
		},
		{
			name:  "InsertionError",
			fn:    func() *Error { return InsertionError("Word", errors.New("rpc")) },
			check: func(e *Error) bool { return e.Code == ExitCodeInsertion },
		},
		{
			name:  "ScriptedAutomationError",
			fn:    func() *Error { return ScriptedAutomationError(ErrMsgScriptFailed, nil) },
			check: func(e *Error) bool { return e.Code == ExitCodeScriptedAutomation },
		},
		{
			name:  "UnsupportedError",
			fn:    func() *Error { return UnsupportedError("linux/word") },
			check: func(e *Error) bool { return e.Code == ExitCodeUnsupported },
		},
		{
			name:  "ConfigError",
			fn:    func() *Error { return ConfigError("invalid yaml") },
			check: func(e *Error) bool { return e.Code == ExitCodeConfig },
		},
		{
			name:  "FileError",
			fn:    func() *Error { return FileError("write", errors.New("disk full")) },
			check: func(e *Error) bool { return e.Code == ExitCodeFileOperation },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if !tt.check(err) {
				t.Errorf("%s() returned error with unexpected code %d", tt.name, err.Code)
			}
		})
	}
}
