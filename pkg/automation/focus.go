package automation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"pastemd/pkg/logger"
	"pastemd/pkg/proc"
)

// Window describes the focused window as reported by the platform.
type Window struct {
	Process  string
	BundleID string
	Title    string
}

const frontmostAppleScript = `tell application "System Events"
	set p to first application process whose frontmost is true
	set n to name of p
	set b to ""
	try
		set b to bundle identifier of p
	end try
	set t to ""
	try
		set t to name of front window of p
	end try
end tell
return n & tab & b & tab & t`

const foregroundPowerShell = `Add-Type @"
using System;
using System.Text;
using System.Runtime.InteropServices;
public static class Fg {
  [DllImport("user32.dll")] public static extern IntPtr GetForegroundWindow();
  [DllImport("user32.dll")] public static extern uint GetWindowThreadProcessId(IntPtr h, out uint pid);
  [DllImport("user32.dll", CharSet = CharSet.Unicode)] public static extern int GetWindowText(IntPtr h, StringBuilder s, int n);
}
"@
$h = [Fg]::GetForegroundWindow()
$pid2 = 0
[void][Fg]::GetWindowThreadProcessId($h, [ref]$pid2)
$sb = New-Object System.Text.StringBuilder 512
[void][Fg]::GetWindowText($h, $sb, 512)
$name = ''
try { $name = (Get-Process -Id $pid2).ProcessName } catch {}
Write-Output ($name + [char]9 + [char]9 + $sb.ToString())
`

// FocusedWindow reports the window that currently has keyboard focus.
func (d *Driver) FocusedWindow(ctx context.Context) (Window, error) {
	switch d.GOOS {
	case "darwin":
		out, err := d.RunAppleScript(ctx, frontmostAppleScript)
		if err != nil {
			return Window{}, err
		}
		return parseWindow(out), nil
	case "windows":
		out, err := proc.Output(ctx, d.Runner, d.powershell(foregroundPowerShell))
		if err != nil {
			return Window{}, err
		}
		return parseWindow(out), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return d.x11Window(ctx)
	}
	return Window{}, fmt.Errorf("focus detection is not supported on %s", d.GOOS)
}

func (d *Driver) x11Window(ctx context.Context) (Window, error) {
	xdo := func(args ...string) (string, error) {
		out, err := proc.Output(ctx, d.Runner, proc.Cmd{Name: "xdotool", Args: args, Timeout: d.ScriptTimeout})
		return strings.TrimSpace(out), err
	}

	title, err := xdo("getactivewindow", "getwindowname")
	if err != nil {
		return Window{}, err
	}
	w := Window{Title: title}
	if pid, err := xdo("getactivewindow", "getwindowpid"); err == nil && pid != "" {
		if comm, err := d.readFile(filepath.Join("/proc", pid, "comm")); err == nil {
			w.Process = strings.TrimSpace(string(comm))
		}
	}
	return w, nil
}

func parseWindow(out string) Window {
	parts := strings.SplitN(strings.TrimRight(out, "\r\n"), "\t", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return Window{Process: parts[0], BundleID: parts[1], Title: parts[2]}
}

// FocusedApp classifies the focused window. Detection failures are logged
// and reported as AppNone.
func (d *Driver) FocusedApp(ctx context.Context) App {
	log := logger.Component("automation")

	w, err := d.FocusedWindow(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not detect focused application")
		return AppNone
	}
	app := Classify(w)
	log.Debug().
		Str("process", w.Process).
		Str("bundle_id", w.BundleID).
		Str("title", w.Title).
		Str("app", string(app)).
		Msg("focused application")
	return app
}

// Classify maps a window to an App. Microsoft Office is recognised by bundle
// id or process name; WPS runs every document kind in one process, so its
// window title decides between the writer and the spreadsheet.
func Classify(w Window) App {
	name := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(w.Process), ".exe"))
	bundle := strings.ToLower(w.BundleID)

	switch {
	case bundle == "com.microsoft.word" || name == "word" || name == "microsoft word" || name == "winword":
		return AppWord
	case bundle == "com.microsoft.excel" || name == "excel" || name == "microsoft excel":
		return AppExcel
	case bundle == "com.microsoft.onenote.mac" || name == "onenote" || name == "microsoft onenote":
		return AppOneNote
	case bundle == "com.microsoft.powerpoint" || name == "powerpnt" || name == "microsoft powerpoint":
		return AppPowerPoint
	case name == "et":
		return AppWPSExcel
	case name == "wpp":
		return AppNone
	case strings.Contains(bundle, "kingsoft") || strings.Contains(name, "wps"):
		return ClassifyWPSTitle(w.Title)
	case name == "" && strings.Contains(strings.ToLower(w.Title), "wps"):
		return ClassifyWPSTitle(w.Title)
	}
	return AppNone
}

var (
	wpsSheetExtensions = []string{".et", ".xls", ".xlsx", ".csv"}
	wpsDocExtensions   = []string{".doc", ".docx", ".wps"}
	wpsSheetKeywords   = []string{"wps spreadsheets", "表格", "工作簿", "spreadsheet", "sheet"}
	wpsDocKeywords     = []string{"wps writer", "文字", "文档", "writer", "document"}
)

// ClassifyWPSTitle tells WPS Writer from WPS Spreadsheets by window title:
// file extensions first, then product keywords. Anything unclear is Writer.
func ClassifyWPSTitle(title string) App {
	t := strings.ToLower(title)
	if t == "" {
		return AppWPS
	}
	for _, ext := range wpsSheetExtensions {
		if strings.Contains(t, ext) {
			return AppWPSExcel
		}
	}
	for _, ext := range wpsDocExtensions {
		if strings.Contains(t, ext) {
			return AppWPS
		}
	}
	for _, kw := range wpsSheetKeywords {
		if strings.Contains(t, kw) {
			return AppWPSExcel
		}
	}
	for _, kw := range wpsDocKeywords {
		if strings.Contains(t, kw) {
			return AppWPS
		}
	}
	return AppWPS
}
