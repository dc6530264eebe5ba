// Package output names, writes and opens documents that are saved instead
// of placed into an application.
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"pastemd/pkg/errors"
	"pastemd/pkg/htmlutil"
	"pastemd/pkg/logger"
	"pastemd/pkg/proc"
	"pastemd/pkg/table"
)

const (
	// TitleLength limits names derived from content.
	TitleLength = 30
	// NameLength limits any sanitized file name.
	NameLength = 100

	timestampLayout = "20060102_150405"
	fallbackName    = "document"
)

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	underscores  = regexp.MustCompile(`_+`)
	heading      = regexp.MustCompile(`^(#{1,6})\s+(.+?)$`)

	// Inline markup removed from a first sentence, applied in order.
	inlineMarkup = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`\*\*(.+?)\*\*`), "$1"},
		{regexp.MustCompile(`\*(.+?)\*`), "$1"},
		{regexp.MustCompile(`__(.+?)__`), "$1"},
		{regexp.MustCompile(`_(.+?)_`), "$1"},
		{regexp.MustCompile("`(.+?)`"), "$1"},
		{regexp.MustCompile(`\[(.+?)\]\(.+?\)`), "$1"},
	}
)

// Source is the content a document was made from.
type Source struct {
	Markdown string
	HTML     string
	Table    table.Data
}

// SanitizeFilename replaces characters that are invalid in file names,
// squeezes underscores and cuts the result to maxLength runes. An empty
// result becomes "document".
func SanitizeFilename(name string, maxLength int) string {
	cleaned := invalidChars.ReplaceAllString(name, "_")
	cleaned = underscores.ReplaceAllString(cleaned, "_")
	cleaned = strings.Trim(cleaned, "_")

	if r := []rune(cleaned); maxLength > 0 && len(r) > maxLength {
		cleaned = strings.TrimRight(string(r[:maxLength]), "_")
	}
	if cleaned == "" {
		return fallbackName
	}
	return cleaned
}

// TableTitle joins the non-empty cells among the first six header cells.
func TableTitle(data table.Data) string {
	if data.Rows() == 0 {
		return ""
	}
	header := data[0]
	if len(header) > 6 {
		header = header[:6]
	}
	var cells []string
	for _, c := range header {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	if len(cells) == 0 {
		return ""
	}
	return SanitizeFilename(strings.Join(cells, "_"), TitleLength)
}

// MarkdownTitle returns the first H1, else the first H2 and so on down to
// H6, else the first line of prose with its inline markup removed.
func MarkdownTitle(md string) string {
	lines := strings.Split(strings.TrimSpace(md), "\n")

	for level := 1; level <= 6; level++ {
		for _, line := range lines {
			m := heading.FindStringSubmatch(strings.TrimSpace(line))
			if m != nil && len(m[1]) == level {
				return SanitizeFilename(strings.TrimSpace(m[2]), TitleLength)
			}
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isBlockMarker(line) {
			continue
		}
		for _, im := range inlineMarkup {
			line = im.re.ReplaceAllString(line, im.repl)
		}
		if line = strings.TrimSpace(line); line != "" {
			return SanitizeFilename(line, TitleLength)
		}
	}
	return ""
}

// isBlockMarker reports lines that open a table, quote, fence, list item or
// thematic break. Emphasis such as "**Bold**" is prose.
func isBlockMarker(line string) bool {
	if strings.HasPrefix(line, "|") || strings.HasPrefix(line, ">") ||
		strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
		return true
	}
	for _, m := range []string{"-", "*", "+"} {
		if line == m || strings.HasPrefix(line, m+" ") || strings.HasPrefix(line, m+"\t") {
			return true
		}
	}
	return strings.Trim(line, "-*_ ") == ""
}

// Title names a document: table header, then HTML title or heading, then
// Markdown heading or first sentence. "" means nothing usable was found.
func Title(src Source) string {
	if src.Table != nil {
		if t := TableTitle(src.Table); t != "" {
			return t
		}
	}
	if strings.TrimSpace(src.HTML) != "" {
		if t := htmlutil.Title(src.HTML); t != "" {
			return SanitizeFilename(t, TitleLength)
		}
	}
	if strings.TrimSpace(src.Markdown) != "" {
		return MarkdownTitle(src.Markdown)
	}
	return ""
}

// Filename is the title plus extension, or md_paste_<timestamp> when the
// content has no title.
func Filename(src Source, ext string, now time.Time) string {
	name := Title(src)
	if name == "" {
		name = "md_paste_" + now.Format(timestampLayout)
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}

// UniquePath returns path, or path with a timestamp before the extension
// when a file already exists there.
func UniquePath(path string, now time.Time) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + now.Format(timestampLayout) + ext
}

// Save writes data into dir under a name derived from src and returns the
// path written.
func Save(dir string, src Source, ext string, data []byte, now time.Time) (string, error) {
	log := logger.Component("output")

	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.FileError(fmt.Sprintf("failed to create directory %s", dir), err)
	}

	path := UniquePath(filepath.Join(dir, Filename(src, ext, now)), now)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.FileError(fmt.Sprintf("failed to write %s", path), err)
	}
	log.Info().Str("file", path).Int("bytes", len(data)).Msg("document saved")
	return path, nil
}

// OpenCommand returns the command that opens path with the desktop's
// default application.
func OpenCommand(goos, path string) proc.Cmd {
	switch goos {
	case "windows":
		return proc.Cmd{Name: "cmd", Args: []string{"/c", "start", "", path}}
	case "darwin":
		return proc.Cmd{Name: "open", Args: []string{path}}
	}
	return proc.Cmd{Name: "xdg-open", Args: []string{path}}
}

// Open opens path with the default application.
func Open(ctx context.Context, runner proc.Runner, goos, path string) error {
	cmd := OpenCommand(goos, path)
	cmd.Timeout = 15 * time.Second
	if _, err := proc.Output(ctx, runner, cmd); err != nil {
		return errors.FileError(fmt.Sprintf("failed to open %s", path), err)
	}
	return nil
}
