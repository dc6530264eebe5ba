// Package sheet writes table data as an .xlsx workbook.
package sheet

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"pastemd/pkg/cellformat"
	"pastemd/pkg/errors"
	"pastemd/pkg/table"

	"github.com/xuri/excelize/v2"
)

const (
	// Name of the single worksheet.
	Name = "Sheet1"

	codeFont  = "Consolas"
	linkColor = "0563C1"

	minWidth = 8
	maxWidth = 60
)

// Build returns a workbook holding data on one sheet. With keepFormat the
// header row is bold and shaded, inline styling becomes rich text runs and
// numeric cells are stored as numbers; without it every cell is its plain
// text.
func Build(data table.Data, keepFormat bool) (*excelize.File, error) {
	f := excelize.NewFile()

	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	header := wrap
	if keepFormat {
		header, err = f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		})
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	widths := make([]int, data.Columns())
	for r := 0; r < data.Rows(); r++ {
		for c := 0; c < data.Columns(); c++ {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				f.Close()
				return nil, err
			}
			cell := cellformat.New(data.Cell(r, c))
			if err := writeCell(f, ref, cell, keepFormat, r == 0); err != nil {
				f.Close()
				return nil, fmt.Errorf("cell %s: %w", ref, err)
			}

			style := wrap
			if r == 0 {
				style = header
			}
			if err := f.SetCellStyle(Name, ref, ref, style); err != nil {
				f.Close()
				return nil, err
			}
			widths[c] = max(widths[c], displayWidth(cell.Plain()))
		}
	}

	for c, w := range widths {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetColWidth(Name, col, col, float64(min(max(w+2, minWidth), maxWidth))); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Bytes renders data as .xlsx file contents.
func Bytes(data table.Data, keepFormat bool) ([]byte, error) {
	if data.Rows() == 0 {
		return nil, errors.New(errors.ExitCodeConversion, "No table rows to write")
	}
	f, err := Build(data, keepFormat)
	if err != nil {
		return nil, errors.NewWithError(errors.ExitCodeConversion, "Failed to build spreadsheet", err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.NewWithError(errors.ExitCodeConversion, "Failed to write spreadsheet", err)
	}
	return buf.Bytes(), nil
}

func writeCell(f *excelize.File, ref string, cell *cellformat.Cell, keepFormat, header bool) error {
	plain := cell.Plain()
	if !keepFormat || plain == "" {
		return f.SetCellStr(Name, ref, plain)
	}

	segments := cell.Segments()
	if len(segments) == 1 && segments[0].Plain() && !header {
		if n, ok := number(plain); ok {
			return f.SetCellValue(Name, ref, n)
		}
	}
	if len(segments) == 1 && segments[0].Link != "" {
		if err := f.SetCellHyperLink(Name, ref, segments[0].Link, "External"); err != nil {
			return err
		}
	}
	if allPlain(segments) {
		return f.SetCellStr(Name, ref, plain)
	}

	runs := make([]excelize.RichTextRun, 0, len(segments))
	for _, seg := range segments {
		runs = append(runs, excelize.RichTextRun{Text: seg.Text, Font: font(seg, header)})
	}
	return f.SetCellRichText(Name, ref, runs)
}

func font(seg cellformat.Segment, header bool) *excelize.Font {
	ft := &excelize.Font{
		Bold:   seg.Bold || header,
		Italic: seg.Italic,
		Strike: seg.Strikethrough,
	}
	if seg.Code {
		ft.Family = codeFont
	}
	if seg.Link != "" {
		ft.Color = linkColor
		ft.Underline = "single"
	}
	return ft
}

func allPlain(segments []cellformat.Segment) bool {
	for _, seg := range segments {
		if !seg.Plain() {
			return false
		}
	}
	return true
}

// number parses plain decimal cells. Values with leading zeros stay text
// so identifiers such as "007" survive.
func number(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Trim(s, "0123456789.+-") != "" {
		return 0, false
	}
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func displayWidth(s string) int {
	widest := 0
	for _, line := range strings.Split(s, cellformat.LineBreak) {
		widest = max(widest, utf8.RuneCountInString(line))
	}
	return widest
}
