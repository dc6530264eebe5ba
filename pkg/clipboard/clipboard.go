// Package clipboard reads and writes the system clipboard in several formats
// at once and captures/restores its full state around temporary writes.
//
// On Linux/Wayland writes are served by a background clipboard owner (a
// re-exec of this binary via the hidden __clipboard-serve command), so rich
// text and plain text are offered simultaneously.
package clipboard

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Format names a clipboard representation. The canonical formats below are
// translated to the platform's own names by each backend; other values are
// passed through untouched.
type Format string

const (
	FormatText  Format = "text/plain"
	FormatHTML  Format = "text/html"
	FormatRTF   Format = "text/rtf"
	FormatFiles Format = "text/uri-list"
)

// ServeCommand is the hidden subcommand that runs the Wayland owner.
const ServeCommand = "__clipboard-serve"

const readyLine = "ready"

// Item is one format/bytes pair.
type Item struct {
	Format Format `json:"format"`
	Data   []byte `json:"data"`
}

// Content is a convenience view of the common formats. Empty fields are not
// written.
type Content struct {
	Text  string
	HTML  string
	RTF   string
	Files []string
}

// Items lists the non-empty forms in priority order: HTML, RTF, files, text.
func (c Content) Items() []Item {
	var items []Item
	if c.HTML != "" {
		items = append(items, Item{Format: FormatHTML, Data: []byte(c.HTML)})
	}
	if c.RTF != "" {
		items = append(items, Item{Format: FormatRTF, Data: []byte(c.RTF)})
	}
	if len(c.Files) > 0 {
		items = append(items, Item{Format: FormatFiles, Data: []byte(EncodeURIList(c.Files))})
	}
	if c.Text != "" {
		items = append(items, Item{Format: FormatText, Data: []byte(c.Text)})
	}
	return items
}

// Backend is the clipboard primitive set every platform implements.
// Reads of an absent format return an empty value and no error; errors mean
// the clipboard itself could not be accessed.
type Backend interface {
	Text() (string, error)
	HTML() (string, error)
	Files() ([]string, error)
	Formats() ([]Format, error)
	Read(format Format) ([]byte, error)
	Write(content Content) error
	// WriteFormats replaces the whole clipboard with items. No items clears it.
	WriteFormats(items []Item) error
}

// EncodeURIList renders paths as a text/uri-list body.
func EncodeURIList(paths []string) string {
	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(p)}
		lines = append(lines, u.String())
	}
	return strings.Join(lines, "\r\n")
}

// ParseURIList extracts local paths from a text/uri-list or a
// x-special/gnome-copied-files body. Comments, the leading "copy"/"cut"
// verb and non-file URIs are skipped; bare absolute paths are kept.
func ParseURIList(body string) []string {
	var paths []string
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || line == "copy" || line == "cut" {
			continue
		}
		if !strings.Contains(line, "://") {
			if filepath.IsAbs(line) || strings.HasPrefix(line, "/") {
				paths = append(paths, line)
			}
			continue
		}
		u, err := url.Parse(line)
		if err != nil || u.Scheme != "file" {
			continue
		}
		paths = append(paths, filepath.FromSlash(u.Path))
	}
	return paths
}

func containsFormat(formats []Format, want ...Format) bool {
	for _, f := range formats {
		for _, w := range want {
			if f == w {
				return true
			}
		}
	}
	return false
}
