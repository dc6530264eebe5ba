// Package convert turns Markdown or HTML into document bytes with pandoc.
package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pastemd/pkg/errors"
	"pastemd/pkg/logger"
	"pastemd/pkg/proc"
)

type Format string

const (
	FormatDocx Format = "docx"
	FormatHTML Format = "html"
)

type Options struct {
	Format Format
	// ReferenceDoc is a .docx whose styles the output inherits.
	ReferenceDoc string
	// KeepOriginalFormula leaves $...$ math as literal text instead of
	// converting it to equations.
	KeepOriginalFormula bool
	// Filters are pandoc filters; *.lua files are passed as Lua filters.
	Filters []string
	WorkDir string
}

// Converter is the document conversion contract used by the pipeline.
type Converter interface {
	MarkdownToDocument(ctx context.Context, markdown string, opts Options) ([]byte, error)
	HTMLToDocument(ctx context.Context, html string, opts Options) ([]byte, error)
}

// Pandoc runs the pandoc executable.
type Pandoc struct {
	Path    string
	Timeout time.Duration
	Runner  proc.Runner
}

var _ Converter = (*Pandoc)(nil)

func NewPandoc(path string, timeout time.Duration) *Pandoc {
	if path == "" {
		path = "pandoc"
	}
	return &Pandoc{Path: path, Timeout: timeout, Runner: proc.Exec{}}
}

const markdownInput = "markdown+tex_math_dollars+pipe_tables+strikeout+task_lists"

// Without tex_math_dollars pandoc keeps $...$ as text.
const literalMathInput = "markdown-tex_math_dollars-tex_math_single_backslash+pipe_tables+strikeout+task_lists"

func (p *Pandoc) MarkdownToDocument(ctx context.Context, markdown string, opts Options) ([]byte, error) {
	input := markdownInput
	if opts.KeepOriginalFormula {
		input = literalMathInput
	} else {
		markdown = NormalizeMath(markdown)
	}
	out, err := p.run(ctx, input, markdown, opts)
	if err != nil {
		return nil, errors.ConversionError(errors.ErrMsgConvertMarkdown, err)
	}
	return out, nil
}

func (p *Pandoc) HTMLToDocument(ctx context.Context, html string, opts Options) ([]byte, error) {
	out, err := p.run(ctx, "html", html, opts)
	if err != nil {
		return nil, errors.ConversionError(errors.ErrMsgConvertHTML, err)
	}
	return out, nil
}

func (p *Pandoc) run(ctx context.Context, from, input string, opts Options) ([]byte, error) {
	log := logger.Component("convert")

	cmd := proc.Cmd{
		Name:    p.Path,
		Args:    Args(from, opts),
		Dir:     opts.WorkDir,
		Stdin:   []byte(input),
		Timeout: p.Timeout,
	}
	start := time.Now()
	res, err := p.Runner.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if res.TimedOut {
		return nil, errors.TimeoutError("pandoc conversion")
	}
	if err := res.Err("pandoc"); err != nil {
		return nil, err
	}
	if len(res.Stdout) == 0 {
		return nil, fmt.Errorf("pandoc produced no output")
	}

	log.Debug().
		Str("from", from).
		Str("to", string(outputFormat(opts))).
		Int("bytes", len(res.Stdout)).
		Dur("took", time.Since(start)).
		Msg("converted")
	return []byte(res.Stdout), nil
}

// Args builds the pandoc command line. Output always goes to stdout.
func Args(from string, opts Options) []string {
	to := outputFormat(opts)
	args := []string{"-f", from, "-t", string(to), "-o", "-"}
	if to == FormatHTML {
		args = append(args, "--mathml")
	}
	if opts.ReferenceDoc != "" && to == FormatDocx {
		args = append(args, "--reference-doc="+opts.ReferenceDoc)
	}
	if opts.WorkDir != "" {
		args = append(args, "--resource-path="+opts.WorkDir)
	}
	for _, f := range opts.Filters {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if strings.EqualFold(filepath.Ext(f), ".lua") {
			args = append(args, "--lua-filter="+f)
		} else {
			args = append(args, "--filter="+f)
		}
	}
	return args
}

func outputFormat(opts Options) Format {
	if opts.Format == "" {
		return FormatDocx
	}
	return opts.Format
}
