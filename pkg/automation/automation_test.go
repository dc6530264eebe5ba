package automation

import (
	"context"
	stderrors "errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"pastemd/pkg/errors"
	"pastemd/pkg/proc"
)

func newTestDriver(goos string, fake *proc.Fake) *Driver {
	d := New(fake, 0)
	d.GOOS = goos
	d.getenv = func(string) string { return "" }
	d.lookPath = func(name string) (string, bool) { return "/usr/bin/" + name, true }
	d.readFile = func(string) ([]byte, error) { return nil, os.ErrNotExist }
	return d
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		window   Window
		expected App
	}{
		{"mac word by bundle", Window{Process: "Microsoft Word", BundleID: "com.microsoft.Word"}, AppWord},
		{"windows word", Window{Process: "WINWORD"}, AppWord},
		{"windows word exe", Window{Process: "winword.exe"}, AppWord},
		{"excel", Window{Process: "EXCEL", Title: "Book1 - Excel"}, AppExcel},
		{"mac excel bundle", Window{Process: "Microsoft Excel", BundleID: "com.microsoft.Excel"}, AppExcel},
		{"wps spreadsheet process", Window{Process: "et"}, AppWPSExcel},
		{"windows onenote", Window{Process: "ONENOTE", Title: "Notes - OneNote"}, AppOneNote},
		{"mac onenote bundle", Window{Process: "Microsoft OneNote", BundleID: "com.microsoft.onenote.mac"}, AppOneNote},
		{"windows powerpoint", Window{Process: "POWERPNT"}, AppPowerPoint},
		{"mac powerpoint bundle", Window{Process: "Microsoft PowerPoint", BundleID: "com.microsoft.Powerpoint"}, AppPowerPoint},
		{"wps presentation", Window{Process: "wpp"}, AppNone},
		{"wps writer by title", Window{Process: "wps", Title: "report.docx - WPS Office"}, AppWPS},
		{"wps sheet by title", Window{Process: "wps", Title: "budget.xlsx - WPS Office"}, AppWPSExcel},
		{"mac wps kingsoft bundle", Window{Process: "WPS Office", BundleID: "com.kingsoft.wpsoffice.mac", Title: "工作簿1"}, AppWPSExcel},
		{"linux title only", Window{Title: "Sheet1 - WPS Spreadsheets"}, AppWPSExcel},
		{"terminal", Window{Process: "Terminal", BundleID: "com.apple.Terminal", Title: "bash"}, AppNone},
		{"nothing", Window{}, AppNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.window); got != tt.expected {
				t.Errorf("Classify(%+v) = %q, want %q", tt.window, got, tt.expected)
			}
		})
	}
}

func TestClassifyWPSTitle(t *testing.T) {
	tests := []struct {
		title    string
		expected App
	}{
		{"", AppWPS},
		{"data.csv", AppWPSExcel},
		{"notes.wps", AppWPS},
		{"WPS Writer", AppWPS},
		{"新建 表格", AppWPSExcel},
		{"文档1", AppWPS},
		{"Untitled", AppWPS},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := ClassifyWPSTitle(tt.title); got != tt.expected {
				t.Errorf("ClassifyWPSTitle(%q) = %q, want %q", tt.title, got, tt.expected)
			}
		})
	}
}

func TestFocusedAppDarwin(t *testing.T) {
	fake := &proc.Fake{Handler: func(cmd proc.Cmd) (proc.Result, error) {
		return proc.Result{Stdout: "Microsoft Word\tcom.microsoft.Word\tDoc1\n"}, nil
	}}
	d := newTestDriver("darwin", fake)

	if got := d.FocusedApp(context.Background()); got != AppWord {
		t.Errorf("FocusedApp() = %q, want word", got)
	}
	if calls := fake.Calls(); len(calls) != 1 || calls[0].Name != "osascript" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestFocusedAppLinux(t *testing.T) {
	fake := &proc.Fake{Handler: func(cmd proc.Cmd) (proc.Result, error) {
		switch cmd.Args[len(cmd.Args)-1] {
		case "getwindowname":
			return proc.Result{Stdout: "budget.et - WPS Office\n"}, nil
		case "getwindowpid":
			return proc.Result{Stdout: "4242\n"}, nil
		}
		return proc.Result{ExitCode: 1}, nil
	}}
	d := newTestDriver("linux", fake)
	var read string
	d.readFile = func(p string) ([]byte, error) {
		read = p
		return []byte("wps\n"), nil
	}

	if got := d.FocusedApp(context.Background()); got != AppWPSExcel {
		t.Errorf("FocusedApp() = %q, want wps_excel", got)
	}
	if read != "/proc/4242/comm" {
		t.Errorf("read %q", read)
	}
}

func TestFocusedAppFailureIsNone(t *testing.T) {
	fake := &proc.Fake{Handler: func(proc.Cmd) (proc.Result, error) {
		return proc.Result{}, stderrors.New("xdotool: not found")
	}}
	d := newTestDriver("linux", fake)

	if got := d.FocusedApp(context.Background()); got != AppNone {
		t.Errorf("FocusedApp() = %q, want none", got)
	}
}

func TestInsertFile(t *testing.T) {
	tests := []struct {
		name     string
		result   proc.Result
		wantErr  bool
		wantCode errors.ExitCode
		notRun   bool
	}{
		{"success", proc.Result{}, false, 0, false},
		{"not running", proc.Result{ExitCode: exitNotRunning}, true, errors.ExitCodeInsertion, true},
		{"com failure", proc.Result{ExitCode: 1, Stderr: "Exception calling InsertFile"}, true, errors.ExitCodeInsertion, false},
		{"timeout", proc.Result{ExitCode: proc.ExitCodeTimeout, TimedOut: true}, true, errors.ExitCodeInsertion, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &proc.Fake{Handler: func(proc.Cmd) (proc.Result, error) { return tt.result, nil }}
			d := newTestDriver("windows", fake)

			err := d.InsertFile(context.Background(), AppWPS, `C:\Temp\it's.docx`, true)
			if (err != nil) != tt.wantErr {
				t.Fatalf("InsertFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.IsExitCode(err, tt.wantCode) {
				t.Errorf("InsertFile() code = %d, want %d", errors.CodeOf(err), tt.wantCode)
			}
			if stderrors.Is(err, errors.ErrNotRunning) != tt.notRun {
				t.Errorf("InsertFile() not-running = %v, want %v", !tt.notRun, tt.notRun)
			}

			script := string(fake.Calls()[0].Stdin)
			if !strings.Contains(script, `$path = 'C:\Temp\it''s.docx'`) {
				t.Errorf("path not quoted:\n%s", script)
			}
			if !strings.Contains(script, `@('kwps.Application', 'KWPS.Application')`) {
				t.Errorf("prog ids missing:\n%s", script)
			}
		})
	}
}

func TestInsertFileScriptCursor(t *testing.T) {
	atEnd := insertFileScript([]string{"Word.Application"}, "a.docx", true)
	if !strings.Contains(atEnd, "$moveToEnd = $true") || !strings.Contains(atEnd, "$sel.Collapse(0)") {
		t.Errorf("move-to-end script:\n%s", atEnd)
	}
	inPlace := insertFileScript([]string{"Word.Application"}, "a.docx", false)
	if !strings.Contains(inPlace, "$moveToEnd = $false") {
		t.Errorf("in-place script:\n%s", inPlace)
	}
}

func TestInsertFileUnsupportedApp(t *testing.T) {
	fake := &proc.Fake{}
	d := newTestDriver("windows", fake)

	err := d.InsertFile(context.Background(), AppExcel, "a.docx", true)
	if !errors.IsExitCode(err, errors.ExitCodeUnsupported) {
		t.Errorf("InsertFile() error = %v, want unsupported", err)
	}
	if len(fake.Calls()) != 0 {
		t.Error("powershell should not run")
	}
}

func TestInsertFileScripted(t *testing.T) {
	tests := []struct {
		name     string
		result   proc.Result
		wantCode errors.ExitCode
		notRun   bool
	}{
		{"success", proc.Result{}, errors.ExitCodeSuccess, false},
		{"word closed", proc.Result{ExitCode: 1, Stderr: "execution error: Microsoft Word is not running (1001)"}, errors.ExitCodeInsertion, true},
		{"script error", proc.Result{ExitCode: 1, Stderr: "syntax error"}, errors.ExitCodeScriptedAutomation, false},
		{"timeout", proc.Result{ExitCode: proc.ExitCodeTimeout, TimedOut: true}, errors.ExitCodeScriptedAutomation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &proc.Fake{Handler: func(proc.Cmd) (proc.Result, error) { return tt.result, nil }}
			d := newTestDriver("darwin", fake)

			err := d.InsertFileScripted(context.Background(), AppWord, "/tmp/x.docx", true)
			if errors.CodeOf(err) != tt.wantCode {
				t.Errorf("InsertFileScripted() = %v, want code %d", err, tt.wantCode)
			}
			if stderrors.Is(err, errors.ErrNotRunning) != tt.notRun {
				t.Errorf("not running = %v, want %v", !tt.notRun, tt.notRun)
			}

			call := fake.Calls()[0]
			if call.Name != "osascript" || call.Args[len(call.Args)-1] != "/tmp/x.docx" {
				t.Errorf("cmd = %+v", call)
			}
		})
	}
}

func TestInsertFileScriptedTimeoutWrapsSentinel(t *testing.T) {
	fake := &proc.Fake{Handler: func(proc.Cmd) (proc.Result, error) {
		return proc.Result{TimedOut: true, ExitCode: proc.ExitCodeTimeout}, nil
	}}
	d := newTestDriver("darwin", fake)
	d.ScriptTimeout = 5

	err := d.InsertFileScripted(context.Background(), AppWord, "/tmp/x.docx", false)
	if !stderrors.Is(err, errors.ErrTimeout) {
		t.Errorf("error = %v, want timeout", err)
	}
	if fake.Calls()[0].Timeout != 5 {
		t.Errorf("timeout not passed: %v", fake.Calls()[0].Timeout)
	}
}

func TestWordInsertScript(t *testing.T) {
	if s := wordInsertScript(true); !strings.Contains(s, "collapse selection direction collapse end") {
		t.Errorf("move-to-end script:\n%s", s)
	}
	if s := wordInsertScript(false); !strings.Contains(s, "insert file at selection") || strings.Contains(s, "collapse") {
		t.Errorf("in-place script:\n%s", s)
	}
}

func TestCleanupBackground(t *testing.T) {
	fake := &proc.Fake{Handler: func(proc.Cmd) (proc.Result, error) {
		return proc.Result{Stdout: "2\r\n"}, nil
	}}
	d := newTestDriver("windows", fake)

	n, err := d.CleanupBackground(context.Background(), AppWPS)
	if err != nil || n != 2 {
		t.Fatalf("CleanupBackground() = %d, %v", n, err)
	}
	if !strings.Contains(string(fake.Calls()[0].Stdin), "Get-Process -Name wps,et,wpp") {
		t.Errorf("script = %s", fake.Calls()[0].Stdin)
	}
}

func TestCleanupBackgroundNoop(t *testing.T) {
	for _, tc := range []struct {
		goos string
		app  App
	}{{"windows", AppWord}, {"darwin", AppWPS}, {"linux", AppWPS}} {
		fake := &proc.Fake{}
		d := newTestDriver(tc.goos, fake)
		n, err := d.CleanupBackground(context.Background(), tc.app)
		if n != 0 || err != nil || len(fake.Calls()) != 0 {
			t.Errorf("%s/%s: CleanupBackground() = %d, %v with %d calls", tc.goos, tc.app, n, err, len(fake.Calls()))
		}
	}
}

func TestPasteCommand(t *testing.T) {
	tests := []struct {
		name     string
		goos     string
		wayland  bool
		have     map[string]bool
		expected []string
		wantErr  bool
	}{
		{"darwin", "darwin", false, nil, []string{"osascript", "-e", pasteAppleScript}, false},
		{"windows", "windows", false, nil, []string{"powershell", "-NoProfile", "-NonInteractive", "-STA", "-Command", "-"}, false},
		{"wayland with wtype", "linux", true, map[string]bool{"wtype": true, "xdotool": true}, []string{"wtype", "-M", "ctrl", "v", "-m", "ctrl"}, false},
		{"wayland without wtype", "linux", true, map[string]bool{"xdotool": true}, []string{"xdotool", "key", "--clearmodifiers", "ctrl+v"}, false},
		{"x11", "linux", false, map[string]bool{"wtype": true, "xdotool": true}, []string{"xdotool", "key", "--clearmodifiers", "ctrl+v"}, false},
		{"no tools", "linux", false, map[string]bool{}, nil, true},
		{"plan9", "plan9", false, nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDriver(tt.goos, &proc.Fake{})
			d.getenv = func(k string) string {
				if k == "WAYLAND_DISPLAY" && tt.wayland {
					return "wayland-0"
				}
				return ""
			}
			d.lookPath = func(name string) (string, bool) { return "/usr/bin/" + name, tt.have[name] }

			cmd, err := d.PasteCommand()
			if (err != nil) != tt.wantErr {
				t.Fatalf("PasteCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got := append([]string{cmd.Name}, cmd.Args...)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("PasteCommand() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPasteFailure(t *testing.T) {
	fake := &proc.Fake{Handler: func(proc.Cmd) (proc.Result, error) {
		return proc.Result{ExitCode: 1, Stderr: "not authorized to send Apple events"}, nil
	}}
	d := newTestDriver("darwin", fake)

	err := d.Paste(context.Background())
	if err == nil || !strings.Contains(err.Error(), errors.ErrMsgKeystrokeFailed) {
		t.Errorf("Paste() error = %v", err)
	}
}

func TestParseWindow(t *testing.T) {
	if w := parseWindow("WINWORD\t\tDoc1 - Word\r\n"); w != (Window{Process: "WINWORD", Title: "Doc1 - Word"}) {
		t.Errorf("parseWindow() = %+v", w)
	}
	if w := parseWindow("Finder"); w != (Window{Process: "Finder"}) {
		t.Errorf("parseWindow() = %+v", w)
	}
}
