// Package detect classifies the clipboard as a Markdown table, rich HTML,
// Markdown text or nothing at all.
package detect

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pastemd/pkg/clipboard"
	"pastemd/pkg/errors"
	"pastemd/pkg/htmlutil"
	"pastemd/pkg/logger"
	"pastemd/pkg/table"
)

type ContentType int

const (
	Empty ContentType = iota
	Table
	HTML
	Markdown
)

func (c ContentType) String() string {
	switch c {
	case Table:
		return "table"
	case HTML:
		return "html"
	case Markdown:
		return "markdown"
	}
	return "empty"
}

// FileSeparator joins the contents of several Markdown files.
const FileSeparator = "\n\n---\n\n"

// Result is the classification plus the content it was based on.
type Result struct {
	Type ContentType
	// Markdown is the clipboard text, or the merged Markdown files when the
	// clipboard references any.
	Markdown string
	// HTML is the raw clipboard HTML, if any.
	HTML  string
	Table table.Data
	// Files lists the Markdown files that were merged into Markdown.
	Files []string
}

type Detector struct {
	clipboard clipboard.Backend
	readFile  func(string) ([]byte, error)
}

func New(b clipboard.Backend) *Detector {
	return &Detector{clipboard: b, readFile: os.ReadFile}
}

// Detect inspects the clipboard without changing it. The first rule that
// matches wins: nothing present, a Markdown table, non-plain HTML, Markdown.
func (d *Detector) Detect() (Result, error) {
	log := logger.Component("detect")

	text, err := d.clipboard.Text()
	if err != nil {
		return Result{}, errors.ClipboardError(errors.ErrMsgClipboardRead, err)
	}
	html, err := d.clipboard.HTML()
	if err != nil {
		return Result{}, errors.ClipboardError(errors.ErrMsgClipboardRead, err)
	}
	files, err := d.clipboard.Files()
	if err != nil {
		return Result{}, errors.ClipboardError(errors.ErrMsgClipboardRead, err)
	}

	if strings.TrimSpace(text) == "" && strings.TrimSpace(html) == "" && len(files) == 0 {
		return Result{Type: Empty}, nil
	}

	res := Result{Markdown: text, HTML: html}
	if mdFiles := MarkdownFiles(files); len(mdFiles) > 0 {
		merged, used := d.mergeFiles(mdFiles)
		if len(used) > 0 {
			res.Markdown = merged
			res.Files = used
		}
	}

	if strings.TrimSpace(res.Markdown) != "" {
		if data := table.ParseMarkdown(res.Markdown); data.Rows() > 0 {
			res.Type = Table
			res.Table = data
			log.Debug().Int("rows", data.Rows()).Int("columns", data.Columns()).Msg("table detected")
			return res, nil
		}
	}

	if strings.TrimSpace(html) != "" && !htmlutil.IsPlainFragment(html) {
		res.Type = HTML
		log.Debug().Int("bytes", len(html)).Msg("rich html detected")
		return res, nil
	}

	res.Type = Markdown
	log.Debug().Int("files", len(res.Files)).Msg("markdown detected")
	return res, nil
}

// MarkdownFiles keeps .md and .markdown paths, sorted by file name.
func MarkdownFiles(paths []string) []string {
	var out []string
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".md", ".markdown":
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return filepath.Base(out[i]) < filepath.Base(out[j])
	})
	return out
}

// mergeFiles reads each file, skipping unreadable ones, and joins the
// trimmed contents with FileSeparator.
func (d *Detector) mergeFiles(paths []string) (string, []string) {
	log := logger.Component("detect")

	var parts, used []string
	for _, p := range paths {
		data, err := d.readFile(p)
		if err != nil {
			log.Warn().Err(err).Str("file", p).Msg("skipping unreadable markdown file")
			continue
		}
		parts = append(parts, strings.TrimSpace(string(data)))
		used = append(used, p)
	}
	return strings.Join(parts, FileSeparator), used
}
