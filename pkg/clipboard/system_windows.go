//go:build windows

package clipboard

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"pastemd/pkg/proc"

	atotto "github.com/atotto/clipboard"
)

const scriptTimeout = 10 * time.Second

// Clipboard format names used by System.Windows.Forms for the canonical
// formats.
var windowsFormats = map[Format]string{
	FormatText:  "UnicodeText",
	FormatHTML:  "HTML Format",
	FormatRTF:   "Rich Text Format",
	FormatFiles: "FileDrop",
}

var windowsTextFormats = map[string]bool{
	"UnicodeText": true, "Text": true, "OEMText": true,
	"HTML Format": true, "Rich Text Format": true, "CSV": true,
}

const psPrelude = "Add-Type -AssemblyName System.Windows.Forms\n"

const psFormats = psPrelude + `$d = [System.Windows.Forms.Clipboard]::GetDataObject()
if ($d) { $d.GetFormats($false) -join "` + "`n" + `" }`

const psRead = psPrelude + `$d = [System.Windows.Forms.Clipboard]::GetDataObject()
if (-not $d) { return }
$v = $d.GetData('%s')
if ($v -is [string]) { [Convert]::ToBase64String([Text.Encoding]::UTF8.GetBytes($v)) }
elseif ($v -is [string[]]) { [Convert]::ToBase64String([Text.Encoding]::UTF8.GetBytes(($v -join "` + "`n" + `"))) }
elseif ($v -is [System.IO.MemoryStream]) { [Convert]::ToBase64String($v.ToArray()) }
elseif ($v -is [byte[]]) { [Convert]::ToBase64String($v) }
else { throw "unsupported clipboard data" }`

const psWrite = psPrelude + `$items = Get-Content -Raw -Encoding UTF8 -LiteralPath '%s' | ConvertFrom-Json
if (-not $items) { [System.Windows.Forms.Clipboard]::Clear(); return }
$obj = New-Object System.Windows.Forms.DataObject
foreach ($it in $items) {
  $bytes = [Convert]::FromBase64String($it.data)
  switch ($it.kind) {
    'text' { $obj.SetData($it.format, [Text.Encoding]::UTF8.GetString($bytes)) }
    'files' {
      $c = New-Object System.Collections.Specialized.StringCollection
      [Text.Encoding]::UTF8.GetString($bytes) -split "` + "`n" + `" | Where-Object { $_ } | ForEach-Object { [void]$c.Add($_) }
      $obj.SetFileDropList($c)
    }
    default { $obj.SetData($it.format, (New-Object System.IO.MemoryStream(,$bytes))) }
  }
}
[System.Windows.Forms.Clipboard]::SetDataObject($obj, $true)`

type windowsBackend struct {
	runner proc.Runner
}

// NewSystem returns the Windows clipboard, driven through PowerShell and
// System.Windows.Forms.
func NewSystem(runner proc.Runner) Backend {
	return &windowsBackend{runner: runner}
}

func (b *windowsBackend) ps(script string) (string, error) {
	return proc.Output(context.Background(), b.runner, proc.Cmd{
		Name:    "powershell",
		Args:    []string{"-NoProfile", "-NonInteractive", "-STA", "-Command", "-"},
		Stdin:   []byte(script),
		Timeout: scriptTimeout,
	})
}

func (b *windowsBackend) Formats() ([]Format, error) {
	out, err := b.ps(psFormats)
	if err != nil {
		return nil, err
	}
	var formats []Format
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			formats = append(formats, Format(line))
		}
	}
	return formats, nil
}

func (b *windowsBackend) Read(format Format) ([]byte, error) {
	out, err := b.ps(fmt.Sprintf(psRead, psQuote(nativeWindowsFormat(format))))
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(out))
}

func (b *windowsBackend) Text() (string, error) {
	formats, err := b.Formats()
	if err != nil {
		return "", err
	}
	if !containsFormat(formats, "UnicodeText", "Text") {
		return "", nil
	}
	return atotto.ReadAll()
}

func (b *windowsBackend) HTML() (string, error) {
	formats, err := b.Formats()
	if err != nil || !containsFormat(formats, "HTML Format") {
		return "", err
	}
	data, err := b.Read(FormatHTML)
	return string(data), err
}

func (b *windowsBackend) Files() ([]string, error) {
	formats, err := b.Formats()
	if err != nil || !containsFormat(formats, "FileDrop") {
		return nil, err
	}
	data, err := b.Read(FormatFiles)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

func (b *windowsBackend) Write(content Content) error {
	return b.WriteFormats(content.Items())
}

type windowsItem struct {
	Format string `json:"format"`
	Kind   string `json:"kind"`
	Data   []byte `json:"data"`
}

func (b *windowsBackend) WriteFormats(items []Item) error {
	native := make([]windowsItem, 0, len(items))
	for _, it := range items {
		format := nativeWindowsFormat(it.Format)
		data := it.Data
		kind := "stream"
		switch {
		case format == "FileDrop":
			kind = "files"
			if it.Format == FormatFiles {
				data = []byte(strings.Join(ParseURIList(string(data)), "\n"))
			}
		case windowsTextFormats[format]:
			kind = "text"
			if format == "HTML Format" && !strings.HasPrefix(string(data), "Version:") {
				data = []byte(BuildCFHTML(string(data)))
			}
		}
		native = append(native, windowsItem{Format: format, Kind: kind, Data: data})
	}

	payload, err := json.Marshal(native)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp("", "pastemd-clipboard-*.json")
	if err != nil {
		return fmt.Errorf("creating clipboard payload: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	_, err = b.ps(fmt.Sprintf(psWrite, psQuote(f.Name())))
	return err
}

func nativeWindowsFormat(f Format) string {
	if name, ok := windowsFormats[f]; ok {
		return name
	}
	return string(f)
}

// psQuote escapes s for a single-quoted PowerShell string.
func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
