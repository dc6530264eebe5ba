package table

import (
	"regexp"
	"strings"
)

// Data is an ordered list of rows of raw cell strings. Row 0 is the header.
// Rows may have different lengths.
type Data [][]string

var separatorCell = regexp.MustCompile(`^:?-+:?$`)

// Rows returns the number of rows.
func (d Data) Rows() int { return len(d) }

// Columns returns the width of the widest row.
func (d Data) Columns() int {
	width := 0
	for _, row := range d {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Cell returns the raw cell or "" when the row or column does not exist.
func (d Data) Cell(row, col int) string {
	if row < 0 || row >= len(d) || col < 0 || col >= len(d[row]) {
		return ""
	}
	return d[row][col]
}

// ParseMarkdown returns the first pipe table found in text: a header row, a
// separator row such as |---|:--:| and the body rows that follow. It returns
// nil when text holds no table.
func ParseMarkdown(text string) Data {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	for i := 0; i+1 < len(lines); i++ {
		if !strings.Contains(lines[i], "|") {
			continue
		}
		header := splitRow(lines[i])
		if len(header) == 0 || !isSeparator(lines[i+1], len(header)) {
			continue
		}

		data := Data{header}
		for _, line := range lines[i+2:] {
			if strings.TrimSpace(line) == "" || !strings.Contains(line, "|") {
				break
			}
			data = append(data, splitRow(line))
		}
		return data
	}
	return nil
}

// isSeparator needs one alignment cell per header column.
func isSeparator(line string, columns int) bool {
	if !strings.Contains(line, "-") {
		return false
	}
	cells := splitRow(line)
	if len(cells) != columns {
		return false
	}
	for _, cell := range cells {
		if !separatorCell.MatchString(strings.ReplaceAll(cell, " ", "")) {
			return false
		}
	}
	return true
}

// splitRow splits on unescaped pipes. Leading and trailing pipes are
// optional and \| becomes a literal pipe.
func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	line = strings.TrimPrefix(line, "|")
	if strings.HasSuffix(line, "|") && !strings.HasSuffix(line, `\|`) {
		line = line[:len(line)-1]
	}

	var cells []string
	var cell strings.Builder
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '\\' && i+1 < len(line) && line[i+1] == '|':
			cell.WriteByte('|')
			i++
		case ch == '|':
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteByte(ch)
		}
	}
	cells = append(cells, strings.TrimSpace(cell.String()))
	return cells
}
