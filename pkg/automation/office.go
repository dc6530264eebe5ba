package automation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"pastemd/pkg/errors"
	"pastemd/pkg/logger"
)

// exitNotRunning is the powershell exit code for "no instance reachable".
const exitNotRunning = 3

// insertFileScript attaches to a running instance (or starts one) through
// the first ProgID that answers, makes sure a document is open and inserts
// path at the cursor. wdCollapseEnd is 0.
func insertFileScript(progIDs []string, path string, moveToEnd bool) string {
	ids := make([]string, len(progIDs))
	for i, id := range progIDs {
		ids[i] = psQuote(id)
	}
	return fmt.Sprintf(`$ErrorActionPreference = 'Stop'
$path = %s
$moveToEnd = %s
$app = $null
foreach ($id in @(%s)) {
  try { $app = [Runtime.InteropServices.Marshal]::GetActiveObject($id); break } catch {}
}
if ($app -eq $null) {
  foreach ($id in @(%[3]s)) {
    try { $app = New-Object -ComObject $id; break } catch {}
  }
}
if ($app -eq $null) { [Console]::Error.WriteLine('no automation server'); exit %d }
try { $app.Visible = $true } catch {}
if ($app.Documents.Count -eq 0) { [void]$app.Documents.Add() }
try { $app.ActiveWindow.View.SeekView = 0 } catch {}
$sel = $app.Selection
if ($moveToEnd) {
  $sel.Collapse(0)
  try { $sel.InsertFile($path) } catch { $sel.Range.InsertFile($path) }
  $app.Selection.Collapse(0)
} else {
  $sel.Range.InsertFile($path)
}
`, psQuote(path), psBool(moveToEnd), strings.Join(ids, ", "), exitNotRunning)
}

// InsertFile inserts the document at path into the running Word or WPS
// instance via COM automation.
func (d *Driver) InsertFile(ctx context.Context, app App, path string, moveToEnd bool) error {
	log := logger.Component("automation")

	progIDs := app.ProgIDs()
	if len(progIDs) == 0 {
		return errors.UnsupportedError(fmt.Sprintf("native insertion is not available for %s", app.DisplayName()))
	}

	res, err := d.Runner.Run(ctx, d.powershell(insertFileScript(progIDs, path, moveToEnd)))
	if err != nil {
		return errors.InsertionError(app.DisplayName(), err)
	}
	if res.ExitCode == exitNotRunning && !res.TimedOut {
		return errors.NotRunningError(app.DisplayName())
	}
	if err := res.Err("powershell"); err != nil {
		return errors.InsertionError(app.DisplayName(), err)
	}

	log.Debug().Str("app", string(app)).Str("file", path).Bool("move_to_end", moveToEnd).Msg("file inserted")
	return nil
}

// Process names of the WPS suite (writer, spreadsheets, presentation).
var wpsProcesses = []string{"wps", "et", "wpp"}

func cleanupScript(names []string) string {
	return fmt.Sprintf(`$procs = @(Get-Process -Name %s -ErrorAction SilentlyContinue | Where-Object { $_.MainWindowHandle -eq 0 })
$procs | Stop-Process -Force -ErrorAction SilentlyContinue
Write-Output $procs.Count
`, strings.Join(names, ","))
}

// CleanupBackground terminates windowless processes left behind by failed
// automation of app and reports how many were stopped. Only WPS on Windows
// is known to leave them; everything else reports zero.
func (d *Driver) CleanupBackground(ctx context.Context, app App) (int, error) {
	log := logger.Component("automation")

	if d.GOOS != "windows" || app != AppWPS {
		return 0, nil
	}

	res, err := d.Runner.Run(ctx, d.powershell(cleanupScript(wpsProcesses)))
	if err != nil {
		return 0, err
	}
	if err := res.Err("powershell"); err != nil {
		return 0, err
	}

	count, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		return 0, fmt.Errorf("unexpected cleanup output %q: %w", strings.TrimSpace(res.Stdout), err)
	}
	log.Info().Int("count", count).Msg("stopped background WPS processes")
	return count, nil
}
