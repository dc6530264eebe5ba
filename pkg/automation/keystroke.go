package automation

import (
	"context"
	"fmt"

	"pastemd/pkg/errors"
	"pastemd/pkg/logger"
	"pastemd/pkg/proc"
)

const pasteAppleScript = `tell application "System Events" to keystroke "v" using command down`

const pastePowerShell = `Add-Type -AssemblyName System.Windows.Forms
[System.Windows.Forms.SendKeys]::SendWait('^v')
`

// PasteCommand returns the command that sends the platform's paste
// keystroke to the focused window.
func (d *Driver) PasteCommand() (proc.Cmd, error) {
	switch d.GOOS {
	case "darwin":
		return proc.Cmd{Name: "osascript", Args: []string{"-e", pasteAppleScript}, Timeout: d.ScriptTimeout}, nil
	case "windows":
		return d.powershell(pastePowerShell), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		if d.env("WAYLAND_DISPLAY") != "" {
			if _, ok := d.which("wtype"); ok {
				return proc.Cmd{Name: "wtype", Args: []string{"-M", "ctrl", "v", "-m", "ctrl"}, Timeout: d.ScriptTimeout}, nil
			}
		}
		if _, ok := d.which("xdotool"); ok {
			return proc.Cmd{Name: "xdotool", Args: []string{"key", "--clearmodifiers", "ctrl+v"}, Timeout: d.ScriptTimeout}, nil
		}
		return proc.Cmd{}, fmt.Errorf("neither wtype nor xdotool is installed")
	}
	return proc.Cmd{}, fmt.Errorf("paste keystroke is not supported on %s", d.GOOS)
}

// Paste sends the paste keystroke.
func (d *Driver) Paste(ctx context.Context) error {
	log := logger.Component("automation")

	cmd, err := d.PasteCommand()
	if err != nil {
		return errors.NewWithError(errors.ExitCodeInsertion, errors.ErrMsgKeystrokeFailed, err)
	}
	if _, err := proc.Output(ctx, d.Runner, cmd); err != nil {
		return errors.NewWithError(errors.ExitCodeInsertion, errors.ErrMsgKeystrokeFailed, err)
	}
	log.Debug().Str("via", cmd.Name).Msg("paste keystroke sent")
	return nil
}
