package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"pastemd/pkg/logger"

	"github.com/fatih/color"
)

type ExitCode int

const (
	ExitCodeSuccess            ExitCode = 0
	ExitCodeGeneral            ExitCode = 1
	ExitCodeConfig             ExitCode = 2
	ExitCodeClipboard          ExitCode = 3
	ExitCodeConversion         ExitCode = 4
	ExitCodeInsertion          ExitCode = 5
	ExitCodeScriptedAutomation ExitCode = 6
	ExitCodeUnsupported        ExitCode = 7
	ExitCodeFileOperation      ExitCode = 8
	ExitCodeTimeout            ExitCode = 9
	ExitCodeCancellation       ExitCode = 10
)

// Sentinels for errors.Is checks through the *Error chain.
var (
	ErrClipboardEmpty = stderrors.New("clipboard is empty")
	ErrTimeout        = stderrors.New("operation timed out")
	ErrNotRunning     = stderrors.New("target application not running")
)

// Standardized error messages for consistent user-facing errors
const (
	ErrMsgClipboardRead   = "Failed to read clipboard"
	ErrMsgClipboardWrite  = "Failed to write clipboard"
	ErrMsgConvertMarkdown = "Failed to convert Markdown"
	ErrMsgConvertHTML     = "Failed to convert HTML"
	ErrMsgInsertFailed    = "Failed to insert content"
	ErrMsgScriptFailed    = "Automation script failed"
	ErrMsgKeystrokeFailed = "Failed to send paste keystroke"
	ErrMsgHistoryFailed   = "History operation failed"
)

type Error struct {
	Code       ExitCode
	Message    string
	Underlying error
	Suggestion string
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func New(code ExitCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func NewWithError(code ExitCode, message string, err error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
	}
}

func NewWithSuggestion(code ExitCode, message string, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	if wrapped, ok := err.(*Error); ok {
		return &Error{
			Code:       wrapped.Code,
			Message:    message + ": " + wrapped.Message,
			Underlying: wrapped.Underlying,
			Suggestion: wrapped.Suggestion,
		}
	}

	return &Error{
		Code:       ExitCodeGeneral,
		Message:    message,
		Underlying: err,
	}
}

func WrapWithCode(err error, code ExitCode, message string) *Error {
	if err == nil {
		return nil
	}

	if wrapped, ok := err.(*Error); ok {
		return &Error{
			Code:       code,
			Message:    message + ": " + wrapped.Message,
			Underlying: wrapped.Underlying,
			Suggestion: wrapped.Suggestion,
		}
	}

	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
	}
}

// CodeOf returns the exit code carried anywhere in err's chain, or
// ExitCodeGeneral.
func CodeOf(err error) ExitCode {
	if err == nil {
		return ExitCodeSuccess
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ExitCodeGeneral
}

func IsExitCode(err error, code ExitCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// HandleReturn processes an error and returns the appropriate exit code.
// It does not call os.Exit; the caller is responsible for exiting.
func HandleReturn(err error) ExitCode {
	if err == nil {
		return ExitCodeSuccess
	}

	var exitCode ExitCode = ExitCodeGeneral
	var message string
	var suggestion string

	var e *Error
	if stderrors.As(err, &e) {
		exitCode = e.Code
		message = e.Error()
		suggestion = e.Suggestion
		if e.Underlying != nil {
			logger.Error().Err(e.Underlying).Msg(e.Message)
		} else {
			logger.Error().Msg(e.Message)
		}
	} else {
		message = err.Error()
		logger.Error().Msg(message)
	}

	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	fmt.Fprintln(os.Stderr)
	red.Fprint(os.Stderr, "Error: ")
	fmt.Fprintln(os.Stderr, message)

	if suggestion != "" {
		yellow.Fprint(os.Stderr, "Suggestion: ")
		lines := strings.Split(suggestion, "\n")
		for i, line := range lines {
			if i == 0 {
				fmt.Fprintln(os.Stderr, line)
			} else if strings.HasPrefix(line, "  -") {
				cyan.Fprintln(os.Stderr, line)
			} else {
				fmt.Fprintln(os.Stderr, "           "+line)
			}
		}
	}

	fmt.Fprintln(os.Stderr)

	return exitCode
}

// HandleQuietReturn returns the exit code for err without printing anything
// beyond a log line for errors outside the *Error family.
func HandleQuietReturn(err error) ExitCode {
	if err == nil {
		return ExitCodeSuccess
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	logger.Error().Err(err).Msg("operation failed")
	return ExitCodeGeneral
}

func ClipboardError(message string, err error) *Error {
	return &Error{
		Code:       ExitCodeClipboard,
		Message:    message,
		Underlying: err,
	}
}

func ClipboardEmptyError() *Error {
	return &Error{
		Code:       ExitCodeClipboard,
		Message:    "Nothing to paste",
		Underlying: ErrClipboardEmpty,
		Suggestion: "Copy Markdown, HTML or a Markdown table first.",
	}
}

func ConversionError(message string, err error) *Error {
	return &Error{
		Code:       ExitCodeConversion,
		Message:    message,
		Underlying: err,
		Suggestion: "Check that pandoc is installed and pandoc_path points to it.",
	}
}

func InsertionError(app string, err error) *Error {
	return &Error{
		Code:       ExitCodeInsertion,
		Message:    fmt.Sprintf("%s insertion failed", app),
		Underlying: err,
	}
}

func NotRunningError(app string) *Error {
	return &Error{
		Code:       ExitCodeInsertion,
		Message:    fmt.Sprintf("%s was not found", app),
		Underlying: ErrNotRunning,
		Suggestion: fmt.Sprintf("Open %s and place the cursor where the content should go.", app),
	}
}

func ScriptedAutomationError(message string, err error) *Error {
	return &Error{
		Code:       ExitCodeScriptedAutomation,
		Message:    message,
		Underlying: err,
	}
}

func TimeoutError(operation string) *Error {
	return &Error{
		Code:       ExitCodeTimeout,
		Message:    fmt.Sprintf("Operation timed out: %s", operation),
		Underlying: ErrTimeout,
	}
}

func UnsupportedError(message string) *Error {
	return &Error{
		Code:       ExitCodeUnsupported,
		Message:    message,
		Suggestion: "Focus Word, WPS, Excel or a Markdown editor, or set `target` in the config file.",
	}
}

func ConfigError(message string) *Error {
	return &Error{
		Code:       ExitCodeConfig,
		Message:    message,
		Suggestion: "Check your configuration file (pastemd config path) or the PASTEMD_* environment variables.",
	}
}

func FileError(message string, err error) *Error {
	return &Error{
		Code:       ExitCodeFileOperation,
		Message:    message,
		Underlying: err,
	}
}

// CommandError wraps errors from command handlers with consistent formatting.
func CommandError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", operation, err)
}
