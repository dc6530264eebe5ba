package placement

import (
	"fmt"

	"pastemd/pkg/automation"
	"pastemd/pkg/errors"
)

// Target is where content goes: an office application or a generic kind
// of editor.
type Target string

const (
	TargetNone       Target = ""
	TargetWord       Target = "word"
	TargetWPS        Target = "wps"
	TargetExcel      Target = "excel"
	TargetWPSExcel   Target = "wps_excel"
	TargetOneNote    Target = "onenote"
	TargetPowerPoint Target = "powerpoint"
	TargetMarkdown   Target = "md"
	TargetRich       Target = "rich"
	// TargetFile pastes a generated .docx or .xlsx as a file reference.
	TargetFile Target = "file"
)

// ParseTarget maps a configured target name to a Target. "auto" and "none"
// both map to TargetNone; the caller decides whether to detect the focused
// application.
func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case TargetWord, TargetWPS, TargetExcel, TargetWPSExcel, TargetOneNote, TargetPowerPoint,
		TargetMarkdown, TargetRich, TargetFile:
		return t, nil
	case "", "auto", "none":
		return TargetNone, nil
	}
	return TargetNone, errors.ConfigError(fmt.Sprintf("unknown target '%s'", s))
}

// PayloadKind says which converted form a strategy consumes.
type PayloadKind int

const (
	// PayloadDocument is a .docx file inserted by automation.
	PayloadDocument PayloadKind = iota
	// PayloadRichText is HTML with a plain-text fallback, pasted.
	PayloadRichText
	// PayloadSpreadsheet is an HTML table with tab-separated fallback, pasted.
	PayloadSpreadsheet
	// PayloadMarkdown is plain Markdown text, pasted.
	PayloadMarkdown
	// PayloadFile is a saved document, pasted as a file reference.
	PayloadFile
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadRichText:
		return "rich_text"
	case PayloadSpreadsheet:
		return "spreadsheet"
	case PayloadMarkdown:
		return "markdown"
	case PayloadFile:
		return "file"
	}
	return "document"
}

// Strategy is the resolved way to place content into one target.
type Strategy struct {
	Target  Target
	App     automation.App
	Method  Method
	Payload PayloadKind
	// Cleanup enables the one-shot background process cleanup after all
	// insertion attempts failed.
	Cleanup bool
}

// Select maps an operating system and target to a strategy. It has no side
// effects and does not look at the desktop.
func Select(goos string, target Target) (Strategy, error) {
	s := Strategy{Target: target, App: automation.App(target)}

	switch goos {
	case "windows", "darwin", "linux", "freebsd", "openbsd", "netbsd":
	default:
		return Strategy{}, errors.UnsupportedError(fmt.Sprintf("placement is not supported on %s", goos))
	}

	switch target {
	case TargetWord:
		switch goos {
		case "windows":
			s.Method, s.Payload = MethodNative, PayloadDocument
		case "darwin":
			s.Method, s.Payload = MethodScripted, PayloadDocument
		default:
			s.Method, s.Payload = MethodClipboardPaste, PayloadRichText
		}
	case TargetWPS:
		if goos == "windows" {
			s.Method, s.Payload, s.Cleanup = MethodNative, PayloadDocument, true
		} else {
			s.Method, s.Payload = MethodClipboardPaste, PayloadRichText
		}
	case TargetExcel, TargetWPSExcel:
		s.Method, s.Payload = MethodClipboardPaste, PayloadSpreadsheet
	case TargetOneNote, TargetPowerPoint:
		// pandoc's HTML carries MathML, which both convert to editable equations
		s.Method, s.Payload = MethodClipboardPaste, PayloadRichText
	case TargetMarkdown:
		s.App = automation.AppNone
		s.Method, s.Payload = MethodClipboardPaste, PayloadMarkdown
	case TargetRich:
		s.App = automation.AppNone
		s.Method, s.Payload = MethodClipboardPaste, PayloadRichText
	case TargetFile:
		s.App = automation.AppNone
		s.Method, s.Payload = MethodClipboardPaste, PayloadFile
	default:
		return Strategy{}, errors.UnsupportedError(fmt.Sprintf("no placement strategy for target '%s'", target))
	}
	return s, nil
}
