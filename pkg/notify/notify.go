// Package notify tells the user how a placement ended.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"pastemd/pkg/logger"
	"pastemd/pkg/proc"

	"github.com/fatih/color"
)

const appName = "PasteMD"

// Notification is a single success or failure message.
type Notification struct {
	Success bool
	Title   string
	Message string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Console prints notifications to a terminal.
type Console struct {
	Out io.Writer
}

func (c Console) Notify(_ context.Context, n Notification) error {
	label := color.New(color.FgGreen, color.Bold)
	mark := "✓"
	if !n.Success {
		label = color.New(color.FgRed, color.Bold)
		mark = "✗"
	}

	if _, err := label.Fprintf(c.Out, "%s %s", mark, n.Title); err != nil {
		return err
	}
	if n.Message != "" {
		_, err := fmt.Fprintf(c.Out, ": %s\n", n.Message)
		return err
	}
	_, err := fmt.Fprintln(c.Out)
	return err
}

// Desktop shows a system notification through notify-send, osascript or a
// PowerShell balloon tip.
type Desktop struct {
	Runner proc.Runner
	GOOS   string
}

func (d Desktop) Command(n Notification) (proc.Cmd, bool) {
	title := appName + ": " + n.Title
	switch d.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleQuote(n.Message), appleQuote(title))
		return proc.Cmd{Name: "osascript", Args: []string{"-e", script}}, true
	case "windows":
		icon := "Info"
		if !n.Success {
			icon = "Error"
		}
		script := fmt.Sprintf(`Add-Type -AssemblyName System.Windows.Forms
$n = New-Object System.Windows.Forms.NotifyIcon
$n.Icon = [System.Drawing.SystemIcons]::Information
$n.Visible = $true
$n.ShowBalloonTip(5000, %s, %s, [System.Windows.Forms.ToolTipIcon]::%s)
Start-Sleep -Seconds 5
$n.Dispose()
`, psQuote(title), psQuote(n.Message), icon)
		return proc.Cmd{Name: "powershell", Args: []string{"-NoProfile", "-NonInteractive", "-Command", "-"}, Stdin: []byte(script)}, true
	case "linux", "freebsd", "openbsd", "netbsd":
		urgency := "normal"
		if !n.Success {
			urgency = "critical"
		}
		return proc.Cmd{Name: "notify-send", Args: []string{"--app-name=" + appName, "--urgency=" + urgency, title, n.Message}}, true
	}
	return proc.Cmd{}, false
}

func (d Desktop) Notify(ctx context.Context, n Notification) error {
	cmd, ok := d.Command(n)
	if !ok {
		return nil
	}
	cmd.Timeout = 10 * time.Second
	_, err := proc.Output(ctx, d.Runner, cmd)
	return err
}

// Multi sends to every notifier. Failures are logged; one broken sink
// does not silence the others.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	log := logger.Component("notify")
	var firstErr error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			log.Warn().Err(err).Msgf("%T failed", nt)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Recorder keeps notifications in memory.
type Recorder struct {
	Sent []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.Sent = append(r.Sent, n)
	return nil
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
