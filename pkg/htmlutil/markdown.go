package htmlutil

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// ToMarkdown converts an HTML fragment to GitHub-flavoured Markdown, keeping
// tables and strikethrough. Escapes the converter adds around brackets and
// underscores are removed so links and identifiers read naturally.
func ToMarkdown(fragment string) (string, error) {
	fragment = ExtractFragment(fragment)
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			strikethrough.NewStrikethroughPlugin(),
			table.NewTablePlugin(),
		),
	)

	markdown, err := conv.ConvertString(fragment)
	if err != nil {
		return "", err
	}

	markdown = strings.ReplaceAll(markdown, `\!\[`, `![`)
	markdown = strings.ReplaceAll(markdown, `\[`, `[`)
	markdown = strings.ReplaceAll(markdown, `\]`, `]`)
	markdown = strings.ReplaceAll(markdown, `\_`, `_`)

	return strings.TrimSpace(markdown), nil
}
