package automation

import (
	"context"
	"fmt"
	"strings"

	"pastemd/pkg/errors"
	"pastemd/pkg/logger"
	"pastemd/pkg/proc"
)

// notRunningNumber is raised by our scripts when the application is closed.
const notRunningNumber = 1001

// RunAppleScript runs script with osascript, passing args to its run
// handler. Failures and timeouts come back as ScriptedAutomationError.
func (d *Driver) RunAppleScript(ctx context.Context, script string, args ...string) (string, error) {
	log := logger.Component("automation")

	cmd := proc.Cmd{
		Name:    "osascript",
		Args:    append([]string{"-e", script}, args...),
		Timeout: d.ScriptTimeout,
	}
	res, err := d.Runner.Run(ctx, cmd)
	if err != nil {
		return "", errors.ScriptedAutomationError(errors.ErrMsgScriptFailed, err)
	}
	if err := res.Err("osascript"); err != nil {
		log.Debug().Int("exit_code", res.ExitCode).Bool("timed_out", res.TimedOut).Str("stderr", res.Stderr).Msg("applescript failed")
		return "", errors.ScriptedAutomationError(errors.ErrMsgScriptFailed, err)
	}
	return strings.TrimRight(res.Stdout, "\r\n"), nil
}

// wordInsertScript inserts the file named by the first argument into the
// active Word document. With moveToEnd the insertion happens at the end of
// the document and the selection ends up after the inserted content.
func wordInsertScript(moveToEnd bool) string {
	var body string
	if moveToEnd {
		body = `		tell active document
			set endPos to count of characters of content
			set myRange to create range start endPos end endPos
			insert file at myRange file name docPath
			select myRange
			collapse selection direction collapse end
		end tell`
	} else {
		body = `		tell active document
			insert file at selection file name docPath
		end tell`
	}
	return fmt.Sprintf(`on run argv
	set docPath to item 1 of argv
	if application "Microsoft Word" is not running then error "Microsoft Word is not running" number %d
	tell application "Microsoft Word"
		if (count of documents) is 0 then make new document
%s
	end tell
end run`, notRunningNumber, body)
}

// InsertFileScripted inserts path into Word on macOS via AppleScript.
func (d *Driver) InsertFileScripted(ctx context.Context, app App, path string, moveToEnd bool) error {
	if app != AppWord {
		return errors.UnsupportedError(fmt.Sprintf("scripted insertion is not available for %s", app.DisplayName()))
	}
	_, err := d.RunAppleScript(ctx, wordInsertScript(moveToEnd), path)
	if err != nil && strings.Contains(err.Error(), fmt.Sprintf("(%d)", notRunningNumber)) {
		return errors.NotRunningError(app.DisplayName())
	}
	return err
}
