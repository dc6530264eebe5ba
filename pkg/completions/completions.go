// Package completions provides shell completion for pastemd flag values.
package completions

import (
	"strings"

	"github.com/spf13/cobra"
)

var targets = []string{
	"auto\tFocused application",
	"word\tMicrosoft Word",
	"wps\tWPS Writer",
	"excel\tMicrosoft Excel (tables only)",
	"wps_excel\tWPS Spreadsheets (tables only)",
	"onenote\tMicrosoft OneNote, pasted as HTML with MathML",
	"powerpoint\tMicrosoft PowerPoint, pasted as HTML with MathML",
	"md\tMarkdown editor, pasted as plain Markdown",
	"rich\tAny rich-text editor, pasted as HTML",
	"file\tPasted as a .docx or .xlsx file",
	"none\tNo application; use no_app_action",
}

var methods = []string{
	"native_automation\tCOM automation on Windows",
	"scripted_automation\tAppleScript on macOS",
	"clipboard_paste\tClipboard write plus paste keystroke",
	"none\tDocument saved or opened",
}

var formats = []string{
	"table\tHuman readable",
	"json\tJSON",
	"yaml\tYAML",
}

var logLevels = []string{"debug", "info", "warn", "error", "fatal", "panic"}

type Completer struct{}

func NewCompleter() *Completer {
	return &Completer{}
}

func (c *Completer) CompleteTarget(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return c.filterPrefix(targets, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func (c *Completer) CompleteMethod(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return c.filterPrefix(methods, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func (c *Completer) CompleteFormat(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return c.filterPrefix(formats, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func (c *Completer) CompleteLogLevel(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return c.filterPrefix(logLevels, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func (c *Completer) filterPrefix(items []string, prefix string) []string {
	var result []string
	for _, item := range items {
		itemName := strings.Split(item, "\t")[0]
		if strings.HasPrefix(strings.ToLower(itemName), strings.ToLower(prefix)) {
			result = append(result, item)
		}
	}
	return result
}

// RegisterCompletions attaches completion functions to the flags that exist
// on rootCmd and its subcommands; missing commands or flags are skipped.
func RegisterCompletions(rootCmd *cobra.Command) {
	completer := NewCompleter()

	register := func(cmd *cobra.Command, flag string, fn func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective)) {
		if cmd.Flags().Lookup(flag) == nil && cmd.PersistentFlags().Lookup(flag) == nil {
			return
		}
		_ = cmd.RegisterFlagCompletionFunc(flag, fn)
	}

	register(rootCmd, "format", completer.CompleteFormat)
	register(rootCmd, "log-level", completer.CompleteLogLevel)

	for _, path := range [][]string{{"place"}, {"detect"}, {"history"}} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd == rootCmd {
			continue
		}
		register(cmd, "target", completer.CompleteTarget)
		register(cmd, "method", completer.CompleteMethod)
	}
}
