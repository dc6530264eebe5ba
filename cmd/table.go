package cmd

import (
	"fmt"
	"os"

	"pastemd/pkg/clipboard"
	"pastemd/pkg/config"
	"pastemd/pkg/detect"
	"pastemd/pkg/errors"
	"pastemd/pkg/proc"
	"pastemd/pkg/sheet"
	"pastemd/pkg/table"

	"github.com/spf13/cobra"
)

var (
	tableHTML  bool
	tableTSV   bool
	tablePlain bool
	tableCopy  bool
	tableXLSX  string
)

var tableCmd = NewCommand(
	"table",
	"Render the Markdown table on the clipboard",
	`Parse the first Markdown table on the clipboard and print it as an HTML
table (default) or as tab separated text. With --copy both forms are put on
the clipboard, ready for a manual paste into a spreadsheet. --xlsx writes a
workbook instead.`,
).WithExample(`  # HTML with bold/italic/code styling kept
  pastemd table

  # Tab separated values
  pastemd table --tsv

  # Replace the clipboard with the rendered table
  pastemd table --copy

  # Save as a workbook
  pastemd table --xlsx ~/Documents/table.xlsx`).
	WithConfig(func(cmd *cobra.Command, cfg *config.Config) error {
		cb := clipboard.NewSystem(proc.Exec{})
		det, err := detect.New(cb).Detect()
		if err != nil {
			return err
		}
		if det.Type != detect.Table {
			return errors.NewWithSuggestion(errors.ExitCodeUnsupported,
				"The clipboard does not hold a Markdown table",
				"Copy a pipe table with a header separator row, e.g.\n  - | A | B |\n  - |---|---|")
		}

		keepFormat := cfg.ExcelKeepFormatValue() && !tablePlain
		html := table.ToHTML(det.Table, keepFormat)
		tsv := table.ToDelimitedText(det.Table)

		if tableXLSX != "" {
			data, err := sheet.Bytes(det.Table, keepFormat)
			if err != nil {
				return err
			}
			if err := os.WriteFile(tableXLSX, data, 0o644); err != nil {
				return errors.FileError(fmt.Sprintf("failed to write %s", tableXLSX), err)
			}
			fmt.Printf("✓ Wrote a %dx%d table to %s\n", det.Table.Rows(), det.Table.Columns(), tableXLSX)
			return nil
		}

		if tableCopy {
			if err := cb.Write(clipboard.Content{HTML: html, Text: tsv}); err != nil {
				return errors.ClipboardError(errors.ErrMsgClipboardWrite, err)
			}
			fmt.Printf("✓ Copied a %dx%d table to the clipboard\n", det.Table.Rows(), det.Table.Columns())
			return nil
		}

		if tableTSV && !tableHTML {
			fmt.Println(tsv)
			return nil
		}
		fmt.Println(html)
		return nil
	}).Build()

func init() {
	tableCmd.Flags().BoolVar(&tableHTML, "html", false, "Print the HTML table (default)")
	tableCmd.Flags().BoolVar(&tableTSV, "tsv", false, "Print tab separated values")
	tableCmd.Flags().BoolVar(&tablePlain, "plain", false, "Drop bold/italic/code styling from the HTML or workbook")
	tableCmd.Flags().BoolVar(&tableCopy, "copy", false, "Put HTML and TSV on the clipboard instead of printing")
	tableCmd.Flags().StringVar(&tableXLSX, "xlsx", "", "Write the table to this .xlsx file")
	tableCmd.MarkFlagsMutuallyExclusive("html", "tsv")
	tableCmd.MarkFlagsMutuallyExclusive("copy", "xlsx")
}
