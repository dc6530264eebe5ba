// Package automation drives office applications and the desktop: inserting
// files through Word/WPS automation, running AppleScript, sending the paste
// keystroke and finding out which application has focus.
//
// Everything goes through helper programs (powershell, osascript, xdotool,
// wtype) started by a proc.Runner, so drivers are testable with proc.Fake.
package automation

import (
	"os"
	"runtime"
	"strings"
	"time"

	"pastemd/pkg/proc"
)

// App is a recognised insertion target.
type App string

const (
	AppNone       App = ""
	AppWord       App = "word"
	AppWPS        App = "wps"
	AppExcel      App = "excel"
	AppWPSExcel   App = "wps_excel"
	AppOneNote    App = "onenote"
	AppPowerPoint App = "powerpoint"
)

// DisplayName is the product name used in messages.
func (a App) DisplayName() string {
	switch a {
	case AppWord:
		return "Word"
	case AppWPS:
		return "WPS Writer"
	case AppExcel:
		return "Excel"
	case AppWPSExcel:
		return "WPS Spreadsheets"
	case AppOneNote:
		return "OneNote"
	case AppPowerPoint:
		return "PowerPoint"
	}
	return "application"
}

// ProgIDs lists the automation identities tried, in order, to reach a
// running instance.
func (a App) ProgIDs() []string {
	switch a {
	case AppWord:
		return []string{"Word.Application"}
	case AppWPS:
		return []string{"kwps.Application", "KWPS.Application"}
	}
	return nil
}

// DefaultScriptTimeout bounds osascript and powershell invocations.
const DefaultScriptTimeout = 30 * time.Second

// Driver runs automation helpers for one operating system.
type Driver struct {
	Runner        proc.Runner
	GOOS          string
	ScriptTimeout time.Duration

	getenv   func(string) string
	lookPath func(string) (string, bool)
	readFile func(string) ([]byte, error)
}

func New(runner proc.Runner, scriptTimeout time.Duration) *Driver {
	if runner == nil {
		runner = proc.Exec{}
	}
	if scriptTimeout <= 0 {
		scriptTimeout = DefaultScriptTimeout
	}
	return &Driver{
		Runner:        runner,
		GOOS:          runtime.GOOS,
		ScriptTimeout: scriptTimeout,
		getenv:        os.Getenv,
		lookPath:      proc.Which,
		readFile:      os.ReadFile,
	}
}

func (d *Driver) env(key string) string {
	if d.getenv == nil {
		return os.Getenv(key)
	}
	return d.getenv(key)
}

func (d *Driver) which(name string) (string, bool) {
	if d.lookPath == nil {
		return proc.Which(name)
	}
	return d.lookPath(name)
}

func (d *Driver) powershell(script string) proc.Cmd {
	return proc.Cmd{
		Name:    "powershell",
		Args:    []string{"-NoProfile", "-NonInteractive", "-STA", "-Command", "-"},
		Stdin:   []byte(script),
		Timeout: d.ScriptTimeout,
	}
}

// psQuote renders s as a single-quoted PowerShell literal.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func psBool(b bool) string {
	if b {
		return "$true"
	}
	return "$false"
}
