//go:build darwin

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

const scriptTimeout = 5 * time.Second

// Pasteboard type identifiers for the canonical formats.
var darwinTypes = map[Format]string{
	FormatText:  "public.utf8-plain-text",
	FormatHTML:  "public.html",
	FormatRTF:   "public.rtf",
	FormatFiles: "public.file-url",
}

const jxaFormats = `ObjC.import('AppKit');
var types = $.NSPasteboard.generalPasteboard.types;
var out = [];
if (!types.isNil()) {
  for (var i = 0; i < types.count; i++) out.push(ObjC.unwrap(types.objectAtIndex(i)));
}
out.join("\n");`

const jxaRead = `ObjC.import('AppKit');
function run(argv) {
  var d = $.NSPasteboard.generalPasteboard.dataForType(argv[0]);
  if (d.isNil()) return "";
  return ObjC.unwrap(d.base64EncodedStringWithOptions(0));
}`

const jxaFiles = `ObjC.import('AppKit');
var items = $.NSPasteboard.generalPasteboard.pasteboardItems;
var out = [];
if (!items.isNil()) {
  for (var i = 0; i < items.count; i++) {
    var s = items.objectAtIndex(i).stringForType('public.file-url');
    if (!s.isNil()) out.push(ObjC.unwrap(s));
  }
}
out.join("\n");`

const jxaWrite = `ObjC.import('AppKit');
function run(argv) {
  var raw = $.NSString.alloc.initWithDataEncoding($.NSData.dataWithContentsOfFile(argv[0]), $.NSUTF8StringEncoding);
  var items = JSON.parse(ObjC.unwrap(raw));
  var pb = $.NSPasteboard.generalPasteboard;
  pb.clearContents;
  for (var i = 0; i < items.length; i++) {
    var data = $.NSData.alloc.initWithBase64EncodedStringOptions(items[i].data, 0);
    pb.setDataForType(data, items[i].format);
  }
  return "ok";
}`

type darwinBackend struct {
	runner proc.Runner
}

// NewSystem returns the general pasteboard, driven through JavaScript for
// Automation so every pasteboard type can be read and written.
func NewSystem(runner proc.Runner) Backend {
	return &darwinBackend{runner: runner}
}

func (b *darwinBackend) jxa(script string, args ...string) (string, error) {
	return proc.Output(context.Background(), b.runner, proc.Cmd{
		Name:    "osascript",
		Args:    append([]string{"-l", "JavaScript", "-e", script}, args...),
		Timeout: scriptTimeout,
	})
}

func (b *darwinBackend) Formats() ([]Format, error) {
	out, err := b.jxa(jxaFormats)
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

func (b *darwinBackend) Read(format Format) ([]byte, error) {
	native := string(format)
	if t, ok := darwinTypes[format]; ok {
		native = t
	}
	out, err := b.jxa(jxaRead, native)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(out))
}

func (b *darwinBackend) Text() (string, error) {
	return atotto.ReadAll()
}

func (b *darwinBackend) HTML() (string, error) {
	data, err := b.Read(FormatHTML)
	return string(data), err
}

func (b *darwinBackend) Files() ([]string, error) {
	out, err := b.jxa(jxaFiles)
	if err != nil {
		return nil, err
	}
	return ParseURIList(out), nil
}

func (b *darwinBackend) Write(content Content) error {
	return b.WriteFormats(content.Items())
}

func (b *darwinBackend) WriteFormats(items []Item) error {
	native := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Format == FormatFiles {
			// a pasteboard item holds one file URL; extra files are dropped
			paths := ParseURIList(string(it.Data))
			if len(paths) == 0 {
				continue
			}
			it = Item{Format: FormatFiles, Data: []byte(EncodeURIList(paths[:1]))}
		}
		if t, ok := darwinTypes[it.Format]; ok {
			it.Format = Format(t)
		}
		native = append(native, it)
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

	_, err = b.jxa(jxaWrite, f.Name())
	return err
}
