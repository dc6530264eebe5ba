package placement

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pastemd/pkg/automation"
	"pastemd/pkg/clipboard"
	"pastemd/pkg/errors"
	"pastemd/pkg/logger"

	"github.com/google/uuid"
)

// Payload carries every converted form a strategy might need. Only the
// fields of the strategy's PayloadKind are used.
type Payload struct {
	Document []byte
	HTML     string
	RTF      string
	Text     string
	// File is a document on disk offered as a file reference.
	File string
}

// Options are the per-call placement settings.
type Options struct {
	MoveCursorToEnd bool
	// TempDir receives short-lived document files; empty means os.TempDir.
	TempDir string
}

// Placer delivers a payload. Place never panics and never returns an error
// outside the Result.
type Placer interface {
	Place(ctx context.Context, payload Payload, opts Options) Result
}

// Automation is what the placers need from the desktop.
type Automation interface {
	InsertFile(ctx context.Context, app automation.App, path string, moveToEnd bool) error
	InsertFileScripted(ctx context.Context, app automation.App, path string, moveToEnd bool) error
	CleanupBackground(ctx context.Context, app automation.App) (int, error)
	Paste(ctx context.Context) error
}

var _ Automation = (*automation.Driver)(nil)

// Deps are the collaborators and policy values used to build placers.
type Deps struct {
	Automation Automation
	Clipboard  clipboard.Backend
	Attempts   int
	Delay      time.Duration
	Settle     time.Duration
	Sleep      func(ctx context.Context, d time.Duration)
}

// New builds the placer for a selected strategy.
func New(s Strategy, d Deps) Placer {
	switch s.Method {
	case MethodNative:
		return &NativePlacer{
			App:        s.App,
			Automation: d.Automation,
			Attempts:   d.Attempts,
			Delay:      d.Delay,
			Cleanup:    s.Cleanup,
			Sleep:      d.Sleep,
		}
	case MethodScripted:
		return &ScriptedPlacer{App: s.App, Automation: d.Automation}
	default:
		return &PastePlacer{Clipboard: d.Clipboard, Keys: d.Automation, Settle: d.Settle}
	}
}

// NativePlacer inserts a .docx through the application's automation
// interface, retrying through a RetryingInserter.
type NativePlacer struct {
	App        automation.App
	Automation Automation
	Attempts   int
	Delay      time.Duration
	Cleanup    bool
	Sleep      func(ctx context.Context, d time.Duration)
}

func (p *NativePlacer) Place(ctx context.Context, payload Payload, opts Options) (res Result) {
	defer recoverInto(MethodNative, &res)

	md := map[string]string{"app": string(p.App)}
	path, remove, err := writeTempDocument(opts.TempDir, payload.Document)
	if err != nil {
		return Failed(MethodNative, err, md)
	}
	defer remove()

	ins := &RetryingInserter{Attempts: p.Attempts, Delay: p.Delay, Sleep: p.Sleep}
	if p.Cleanup {
		ins.CleanupBackground = func(ctx context.Context) (int, error) {
			return p.Automation.CleanupBackground(ctx, p.App)
		}
	}
	err = ins.Insert(ctx, func(ctx context.Context) error {
		return p.Automation.InsertFile(ctx, p.App, path, opts.MoveCursorToEnd)
	})
	md["attempts"] = strconv.Itoa(ins.Tries())
	if err != nil {
		return Failed(MethodNative, err, md)
	}
	return Succeeded(MethodNative, md)
}

// ScriptedPlacer inserts a .docx by UI scripting. The temporary file is
// removed on every path.
type ScriptedPlacer struct {
	App        automation.App
	Automation Automation
}

func (p *ScriptedPlacer) Place(ctx context.Context, payload Payload, opts Options) (res Result) {
	defer recoverInto(MethodScripted, &res)

	md := map[string]string{"app": string(p.App)}
	path, remove, err := writeTempDocument(opts.TempDir, payload.Document)
	if err != nil {
		return Failed(MethodScripted, err, md)
	}
	defer remove()

	if err := p.Automation.InsertFileScripted(ctx, p.App, path, opts.MoveCursorToEnd); err != nil {
		return Failed(MethodScripted, err, md)
	}
	return Succeeded(MethodScripted, md)
}

// Keystroker sends the paste keystroke.
type Keystroker interface {
	Paste(ctx context.Context) error
}

// PastePlacer writes the payload to the clipboard, presses paste and puts
// the user's clipboard back after Settle.
type PastePlacer struct {
	Clipboard clipboard.Backend
	Keys      Keystroker
	Settle    time.Duration
}

func (p *PastePlacer) Place(ctx context.Context, payload Payload, _ Options) (res Result) {
	defer recoverInto(MethodClipboardPaste, &res)

	content := clipboard.Content{HTML: payload.HTML, RTF: payload.RTF, Text: payload.Text}
	if payload.File != "" {
		content.Files = []string{payload.File}
	}
	items := content.Items()
	if len(items) == 0 {
		return Failed(MethodClipboardPaste, errors.ClipboardError(errors.ErrMsgClipboardWrite, fmt.Errorf("nothing to paste")), nil)
	}
	md := map[string]string{"formats": formatList(items)}
	if payload.File != "" {
		md["file"] = payload.File
	}

	err := clipboard.Transaction(ctx, p.Clipboard, p.Settle, func(ctx context.Context) error {
		if err := p.Clipboard.Write(content); err != nil {
			return errors.ClipboardError(errors.ErrMsgClipboardWrite, err)
		}
		return p.Keys.Paste(ctx)
	})
	if err != nil {
		return Failed(MethodClipboardPaste, err, md)
	}
	return Succeeded(MethodClipboardPaste, md)
}

func formatList(items []clipboard.Item) string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = string(it.Format)
	}
	return strings.Join(names, ",")
}

func writeTempDocument(dir string, doc []byte) (string, func(), error) {
	if len(doc) == 0 {
		return "", nil, errors.FileError("no document to insert", nil)
	}
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "pastemd-"+uuid.New().String()+".docx")
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		return "", nil, errors.FileError("failed to write temporary document", err)
	}

	remove := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log := logger.Component("placement")
			log.Warn().Err(err).Str("file", path).Msg("temporary document not removed")
		}
	}
	return path, remove, nil
}

func recoverInto(method Method, res *Result) {
	if r := recover(); r != nil {
		*res = Failed(method, fmt.Errorf("%s placement panicked: %v", method, r), nil)
	}
}
