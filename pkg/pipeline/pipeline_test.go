package pipeline

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pastemd/pkg/automation"
	"pastemd/pkg/clipboard"
	"pastemd/pkg/config"
	"pastemd/pkg/convert"
	"pastemd/pkg/detect"
	"pastemd/pkg/errors"
	"pastemd/pkg/history"
	"pastemd/pkg/notify"
	"pastemd/pkg/placement"
	"pastemd/pkg/proc"
)

type fakeConverter struct {
	markdown []string
	html     []string
	opts     []convert.Options
	err      error
}

func (f *fakeConverter) MarkdownToDocument(_ context.Context, md string, opts convert.Options) ([]byte, error) {
	f.markdown = append(f.markdown, md)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	if opts.Format == convert.FormatHTML {
		return []byte("<p>converted</p>"), nil
	}
	return []byte("DOCX:" + md), nil
}

func (f *fakeConverter) HTMLToDocument(_ context.Context, html string, opts convert.Options) ([]byte, error) {
	f.html = append(f.html, html)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("DOCX:" + html), nil
}

func (f *fakeConverter) calls() int { return len(f.markdown) + len(f.html) }

type fakeDesktop struct {
	focused    automation.App
	insertErrs []error
	inserted   []string
	pasted     []clipboard.Content
	clipboard  clipboard.Backend
}

func (d *fakeDesktop) FocusedApp(context.Context) automation.App { return d.focused }

func (d *fakeDesktop) InsertFile(_ context.Context, _ automation.App, path string, _ bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	d.inserted = append(d.inserted, string(data))
	if n := len(d.inserted); n <= len(d.insertErrs) {
		return d.insertErrs[n-1]
	}
	return nil
}

func (d *fakeDesktop) InsertFileScripted(ctx context.Context, app automation.App, path string, moveToEnd bool) error {
	return d.InsertFile(ctx, app, path, moveToEnd)
}

func (d *fakeDesktop) CleanupBackground(context.Context, automation.App) (int, error) { return 0, nil }

func (d *fakeDesktop) Paste(context.Context) error {
	var c clipboard.Content
	c.Text, _ = d.clipboard.Text()
	c.HTML, _ = d.clipboard.HTML()
	c.Files, _ = d.clipboard.Files()
	d.pasted = append(d.pasted, c)
	return nil
}

type fakeHistory struct {
	entries []history.Entry
	err     error
}

func (h *fakeHistory) Record(e history.Entry) (history.Entry, error) {
	h.entries = append(h.entries, e)
	return e, h.err
}

type fixture struct {
	p      *Pipeline
	cfg    *config.Config
	clip   *clipboard.Memory
	conv   *fakeConverter
	desk   *fakeDesktop
	notes  *notify.Recorder
	hist   *fakeHistory
	sleeps []time.Duration
	runner *proc.Fake
}

func newFixture(t *testing.T, goos string, content clipboard.Content) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.SaveDir = t.TempDir()
	cfg.RestoreDelay = 0

	f := &fixture{
		cfg:    cfg,
		clip:   clipboard.NewMemory(content.Items()...),
		conv:   &fakeConverter{},
		notes:  &notify.Recorder{},
		hist:   &fakeHistory{},
		runner: &proc.Fake{},
	}
	f.desk = &fakeDesktop{clipboard: f.clip}
	f.p = &Pipeline{
		Config:     cfg,
		Clipboard:  f.clip,
		Converter:  f.conv,
		Automation: f.desk,
		Focus:      f.desk,
		Notifier:   f.notes,
		History:    f.hist,
		Runner:     f.runner,
		GOOS:       goos,
		Now:        func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local) },
		Sleep:      func(_ context.Context, d time.Duration) { f.sleeps = append(f.sleeps, d) },
	}
	return f
}

func (f *fixture) assertOneNotification(t *testing.T, success bool) {
	t.Helper()
	if len(f.notes.Sent) != 1 {
		t.Fatalf("sent %d notifications, want exactly 1", len(f.notes.Sent))
	}
	if f.notes.Sent[0].Success != success {
		t.Errorf("notification success = %v, want %v (%+v)", f.notes.Sent[0].Success, success, f.notes.Sent[0])
	}
}

func TestRunEmptyClipboard(t *testing.T) {
	f := newFixture(t, "windows", clipboard.Content{})
	f.desk.focused = automation.AppWord

	out := f.p.Run(context.Background())

	if !stderrors.Is(out.Err, errors.ErrClipboardEmpty) || !errors.IsExitCode(out.Err, errors.ExitCodeClipboard) {
		t.Errorf("Run() error = %v, want clipboard empty", out.Err)
	}
	if out.ContentType != detect.Empty {
		t.Errorf("content type = %v", out.ContentType)
	}
	if f.conv.calls() != 0 {
		t.Errorf("converter called %d times", f.conv.calls())
	}
	f.assertOneNotification(t, false)
	if len(f.hist.entries) != 1 || f.hist.entries[0].Success {
		t.Errorf("history = %+v", f.hist.entries)
	}
}

func TestRunNonMarkdownFilesCountAsEmpty(t *testing.T) {
	f := newFixture(t, "windows", clipboard.Content{Files: []string{"/tmp/photo.png"}})
	out := f.p.Run(context.Background())
	if !stderrors.Is(out.Err, errors.ErrClipboardEmpty) {
		t.Errorf("Run() error = %v", out.Err)
	}
}

func TestRunMarkdownIntoWordOnWindows(t *testing.T) {
	f := newFixture(t, "windows", clipboard.Content{Text: "# Title\n\nbody"})
	f.desk.focused = automation.AppWord
	f.cfg.ReferenceDocx = "/tpl/ref.docx"

	out := f.p.Run(context.Background())

	if out.Err != nil {
		t.Fatalf("Run() error = %v", out.Err)
	}
	if out.Target != placement.TargetWord || out.Result.Method() != placement.MethodNative {
		t.Errorf("outcome = %+v", out)
	}
	if len(f.desk.inserted) != 1 || f.desk.inserted[0] != "DOCX:# Title\n\nbody" {
		t.Errorf("inserted = %q", f.desk.inserted)
	}
	if f.conv.opts[0].Format != convert.FormatDocx || f.conv.opts[0].ReferenceDoc != "/tpl/ref.docx" {
		t.Errorf("convert options = %+v", f.conv.opts[0])
	}
	f.assertOneNotification(t, true)
	if e := f.hist.entries[0]; e.Method != "native_automation" || e.Target != "word" || e.ContentType != "markdown" || !e.Success {
		t.Errorf("history entry = %+v", e)
	}
}

func TestRunRetriesWithConfiguredPolicy(t *testing.T) {
	f := newFixture(t, "windows", clipboard.Content{Text: "text"})
	f.desk.focused = automation.AppWord
	f.desk.insertErrs = []error{stderrors.New("busy"), stderrors.New("busy")}
	f.cfg.InsertRetryCount = 3
	f.cfg.InsertRetryDelay = config.Duration(200 * time.Millisecond)

	out := f.p.Run(context.Background())

	if out.Err != nil || !out.Result.Success() || out.Result.Method() != placement.MethodNative {
		t.Fatalf("Run() = %+v", out)
	}
	if len(f.sleeps) != 2 || f.sleeps[0] != 200*time.Millisecond {
		t.Errorf("sleeps = %v", f.sleeps)
	}
	f.assertOneNotification(t, true)
}

func TestRunHTMLIntoWordUsesCleanedHTML(t *testing.T) {
	f := newFixture(t, "darwin", clipboard.Content{Text: "T", HTML: `<h1 data-x="1">T</h1><svg></svg>`})
	f.desk.focused = automation.AppWord

	out := f.p.Run(context.Background())

	if out.Err != nil || out.Result.Method() != placement.MethodScripted {
		t.Fatalf("Run() = %+v", out)
	}
	if len(f.conv.html) != 1 || strings.Contains(f.conv.html[0], "svg") || strings.Contains(f.conv.html[0], "data-x") {
		t.Errorf("html sent to converter = %q", f.conv.html)
	}
}

func TestRunTableIntoExcel(t *testing.T) {
	md := "| A | B |\n|---|---|\n| **x** | y |"
	f := newFixture(t, "windows", clipboard.Content{Text: md})
	f.desk.focused = automation.AppExcel

	out := f.p.Run(context.Background())

	if out.Err != nil || out.ContentType != detect.Table || out.Result.Method() != placement.MethodClipboardPaste {
		t.Fatalf("Run() = %+v", out)
	}
	if f.conv.calls() != 0 {
		t.Error("tables are rendered without the converter")
	}
	if len(f.desk.pasted) != 1 {
		t.Fatalf("pasted %d times", len(f.desk.pasted))
	}
	pasted := f.desk.pasted[0]
	if !strings.Contains(pasted.HTML, "<strong>x</strong>") || pasted.Text != "A\tB\nx\ty" {
		t.Errorf("pasted = %+v", pasted)
	}
	if text, _ := f.clip.Text(); text != md {
		t.Errorf("clipboard not restored: %q", text)
	}
}

func TestRunExcelKeepsWorkbook(t *testing.T) {
	for _, keep := range []bool{false, true} {
		f := newFixture(t, "windows", clipboard.Content{Text: "| A | B |\n|---|---|\n| 1 | 2 |"})
		f.desk.focused = automation.AppExcel
		f.cfg.KeepFile = keep

		out := f.p.Run(context.Background())
		if out.Err != nil {
			t.Fatalf("keep=%v: Run() error = %v", keep, out.Err)
		}

		want := filepath.Join(f.cfg.SaveDir, "A_B.xlsx")
		_, statErr := os.Stat(want)
		if keep != (statErr == nil) {
			t.Errorf("keep=%v: workbook exists = %v", keep, statErr == nil)
		}
		if keep && out.Result.Metadata()["file"] != want {
			t.Errorf("result metadata = %v", out.Result.Metadata())
		}
		if f.notes.Sent[0].Title != "Pasted into Excel" {
			t.Errorf("notification = %+v", f.notes.Sent[0])
		}
	}
}

func TestRunFileTarget(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		file      string
		converted bool
	}{
		{"markdown becomes docx", "# Memo\n\nbody", "Memo.docx", true},
		{"table becomes xlsx", "| A | B |\n|---|---|\n| x | y |", "A_B.xlsx", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "linux", clipboard.Content{Text: tt.text})
			f.p.Target = "file"
			f.cfg.KeepFile = true

			out := f.p.Run(context.Background())
			if out.Err != nil {
				t.Fatalf("Run() error = %v", out.Err)
			}

			want := filepath.Join(f.cfg.SaveDir, tt.file)
			if len(f.desk.pasted) != 1 || len(f.desk.pasted[0].Files) != 1 || f.desk.pasted[0].Files[0] != want {
				t.Fatalf("pasted = %+v, want file %s", f.desk.pasted, want)
			}
			if (f.conv.calls() > 0) != tt.converted {
				t.Errorf("converter calls = %d", f.conv.calls())
			}
			if _, err := os.Stat(want); err != nil {
				t.Errorf("file not written: %v", err)
			}
			if out.Result.Metadata()["file"] != want || f.hist.entries[0].Metadata["file"] != want {
				t.Errorf("metadata = %v / %v", out.Result.Metadata(), f.hist.entries[0].Metadata)
			}
			if text, _ := f.clip.Text(); text != tt.text {
				t.Errorf("clipboard not restored: %q", text)
			}
		})
	}
}

func TestRunOneNoteGetsHTML(t *testing.T) {
	f := newFixture(t, "windows", clipboard.Content{Text: "$x^2$"})
	f.desk.focused = automation.AppOneNote

	out := f.p.Run(context.Background())

	if out.Err != nil || out.Result.Method() != placement.MethodClipboardPaste {
		t.Fatalf("Run() = %+v", out)
	}
	if f.conv.opts[0].Format != convert.FormatHTML {
		t.Errorf("format = %q", f.conv.opts[0].Format)
	}
	if p := f.desk.pasted[0]; p.HTML != "<p>converted</p>" {
		t.Errorf("pasted = %+v", p)
	}
	if f.notes.Sent[0].Title != "Pasted into OneNote" {
		t.Errorf("notification = %+v", f.notes.Sent[0])
	}
}

func TestRunSpreadsheetNeedsTable(t *testing.T) {
	f := newFixture(t, "windows", clipboard.Content{Text: "# not a table"})
	f.desk.focused = automation.AppWPSExcel

	out := f.p.Run(context.Background())

	if !errors.IsExitCode(out.Err, errors.ExitCodeUnsupported) {
		t.Errorf("Run() error = %v", out.Err)
	}
	if f.conv.calls() != 0 || len(f.desk.pasted) != 0 {
		t.Error("nothing should be converted or pasted")
	}
	f.assertOneNotification(t, false)
}

func TestRunHTMLIntoMarkdownEditor(t *testing.T) {
	f := newFixture(t, "linux", clipboard.Content{Text: "Title", HTML: "<h1>Title</h1>"})
	f.p.Target = "md"

	out := f.p.Run(context.Background())

	if out.Err != nil {
		t.Fatalf("Run() error = %v", out.Err)
	}
	if len(f.desk.pasted) != 1 || f.desk.pasted[0].Text != "# Title" || f.desk.pasted[0].HTML != "" {
		t.Errorf("pasted = %+v", f.desk.pasted)
	}
}

func TestRunRichPasteOnDarwinWPS(t *testing.T) {
	f := newFixture(t, "darwin", clipboard.Content{Text: "**hi**"})
	f.desk.focused = automation.AppWPS

	out := f.p.Run(context.Background())

	if out.Err != nil || out.Result.Method() != placement.MethodClipboardPaste {
		t.Fatalf("Run() = %+v", out)
	}
	if f.conv.opts[0].Format != convert.FormatHTML {
		t.Errorf("format = %q", f.conv.opts[0].Format)
	}
	if p := f.desk.pasted[0]; p.HTML != "<p>converted</p>" || p.Text != "**hi**" {
		t.Errorf("pasted = %+v", p)
	}
	if text, _ := f.clip.Text(); text != "**hi**" {
		t.Errorf("clipboard after run = %q", text)
	}
}

func TestRunTargetOverrideSkipsFocus(t *testing.T) {
	f := newFixture(t, "windows", clipboard.Content{Text: "x"})
	f.desk.focused = automation.AppExcel
	f.cfg.Target = "word"

	out := f.p.Run(context.Background())
	if out.Target != placement.TargetWord || out.Err != nil {
		t.Errorf("Run() = %+v", out)
	}
}

func TestRunNoApplication(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		wantCode errors.ExitCode
		wantFile bool
		wantOpen bool
	}{
		{"none", "none", errors.ExitCodeUnsupported, false, false},
		{"save", "save", errors.ExitCodeSuccess, true, false},
		{"open", "open", errors.ExitCodeSuccess, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "linux", clipboard.Content{Text: "# Weekly Notes\n\ntext"})
			f.cfg.NoAppAction = tt.action
			f.cfg.KeepFile = true

			out := f.p.Run(context.Background())

			if errors.CodeOf(out.Err) != tt.wantCode {
				t.Fatalf("Run() error = %v, want code %d", out.Err, tt.wantCode)
			}
			f.assertOneNotification(t, tt.wantCode == errors.ExitCodeSuccess)

			if !tt.wantFile {
				if f.conv.calls() != 0 {
					t.Error("converter called without a destination")
				}
				return
			}
			want := filepath.Join(f.cfg.SaveDir, "Weekly Notes.docx")
			if out.Output != want {
				t.Errorf("output = %q, want %q", out.Output, want)
			}
			data, err := os.ReadFile(want)
			if err != nil || string(data) != "DOCX:# Weekly Notes\n\ntext" {
				t.Errorf("saved document = %q, %v", data, err)
			}
			if opened := len(f.runner.Calls()) == 1; opened != tt.wantOpen {
				t.Errorf("opened = %v, want %v", opened, tt.wantOpen)
			}
			if f.hist.entries[0].Metadata["file"] != want {
				t.Errorf("history metadata = %v", f.hist.entries[0].Metadata)
			}
		})
	}
}

func TestRunConversionFailure(t *testing.T) {
	f := newFixture(t, "windows", clipboard.Content{Text: "x"})
	f.desk.focused = automation.AppWPS
	f.conv.err = errors.ConversionError(errors.ErrMsgConvertMarkdown, stderrors.New("pandoc: not found"))

	out := f.p.Run(context.Background())

	if !errors.IsExitCode(out.Err, errors.ExitCodeConversion) {
		t.Errorf("Run() error = %v", out.Err)
	}
	if len(f.desk.inserted) != 0 {
		t.Error("placement attempted after conversion failure")
	}
	f.assertOneNotification(t, false)
}

func TestRunClipboardReadFailure(t *testing.T) {
	f := newFixture(t, "windows", clipboard.Content{Text: "x"})
	f.clip.ReadErr = stderrors.New("locked")

	out := f.p.Run(context.Background())
	if !errors.IsExitCode(out.Err, errors.ExitCodeClipboard) || stderrors.Is(out.Err, errors.ErrClipboardEmpty) {
		t.Errorf("Run() error = %v", out.Err)
	}
	f.assertOneNotification(t, false)
}

func TestRunHistoryFailureDoesNotChangeOutcome(t *testing.T) {
	f := newFixture(t, "windows", clipboard.Content{Text: "x"})
	f.desk.focused = automation.AppWord
	f.hist.err = stderrors.New("disk full")

	if out := f.p.Run(context.Background()); out.Err != nil {
		t.Errorf("Run() error = %v", out.Err)
	}
}

func TestPlanMarkdownFilesSetWorkDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("# From file"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, "windows", clipboard.Content{Files: []string{path}})
	f.desk.focused = automation.AppWord

	out := f.p.Run(context.Background())
	if out.Err != nil {
		t.Fatalf("Run() error = %v", out.Err)
	}
	if f.conv.markdown[0] != "# From file" || f.conv.opts[0].WorkDir != dir {
		t.Errorf("converted %q in %q", f.conv.markdown, f.conv.opts[0].WorkDir)
	}
}
