package table

import (
	"strings"

	"pastemd/pkg/cellformat"

	"golang.org/x/net/html"
)

const (
	tableOpen   = `<table border="1" cellspacing="0" cellpadding="4" style="border-collapse:collapse">`
	headerStyle = "font-weight:bold;background-color:#D9E1F2;text-align:center"
	codeStyle   = "background-color:#F2F2F2;font-family:Consolas,Menlo,monospace"
)

// ToHTML renders data as an HTML table. With keepFormat, row 0 becomes
// header cells and segment styling is kept; without it every cell is plain
// escaped text.
func ToHTML(data Data, keepFormat bool) string {
	columns := data.Columns()

	var sb strings.Builder
	sb.WriteString(tableOpen)
	for r := range data {
		sb.WriteString("<tr>")
		for c := 0; c < columns; c++ {
			cell := cellformat.New(data.Cell(r, c))
			if !keepFormat {
				sb.WriteString("<td>")
				sb.WriteString(escapeText(cell.Plain()))
				sb.WriteString("</td>")
				continue
			}
			writeFormattedCell(&sb, cell, r == 0)
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</table>")
	return sb.String()
}

func writeFormattedCell(sb *strings.Builder, cell *cellformat.Cell, header bool) {
	tag := "td"
	var styles []string
	if header {
		tag = "th"
		styles = append(styles, headerStyle)
	}
	if cell.HasCode() {
		styles = append(styles, codeStyle)
	}

	sb.WriteString("<" + tag)
	if len(styles) > 0 {
		sb.WriteString(` style="` + strings.Join(styles, ";") + `"`)
	}
	sb.WriteString(">")
	for _, seg := range cell.Segments() {
		sb.WriteString(renderSegment(seg))
	}
	sb.WriteString("</" + tag + ">")
}

// renderSegment nests code, strikethrough, italic, bold and link from the
// inside out. The order is fixed so output is byte-stable.
func renderSegment(seg cellformat.Segment) string {
	out := escapeText(seg.Text)
	if seg.Code {
		out = "<code>" + out + "</code>"
	}
	if seg.Strikethrough {
		out = "<del>" + out + "</del>"
	}
	if seg.Italic {
		out = "<em>" + out + "</em>"
	}
	if seg.Bold {
		out = "<strong>" + out + "</strong>"
	}
	if seg.Link != "" {
		out = `<a href="` + html.EscapeString(seg.Link) + `">` + out + "</a>"
	}
	return out
}

func escapeText(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), cellformat.LineBreak, "<br>")
}

// ToDelimitedText renders data as tab separated lines of plain cell text.
// In-cell line breaks and tabs become spaces.
func ToDelimitedText(data Data) string {
	lines := make([]string, 0, len(data))
	for _, row := range data {
		cells := make([]string, len(row))
		for c, raw := range row {
			plain := cellformat.New(raw).Plain()
			plain = strings.ReplaceAll(plain, cellformat.LineBreak, " ")
			cells[c] = strings.ReplaceAll(plain, "\t", " ")
		}
		lines = append(lines, strings.Join(cells, "\t"))
	}
	return strings.Join(lines, "\n")
}
