package convert

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"pastemd/pkg/errors"
	"pastemd/pkg/proc"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		opts     Options
		expected []string
	}{
		{
			name:     "defaults to docx",
			from:     "html",
			opts:     Options{},
			expected: []string{"-f", "html", "-t", "docx", "-o", "-"},
		},
		{
			name: "reference doc filters and workdir",
			from: "markdown",
			opts: Options{
				Format:       FormatDocx,
				ReferenceDoc: "/tpl/ref.docx",
				Filters:      []string{"/f/a.lua", " ", "pandoc-crossref"},
				WorkDir:      "/work",
			},
			expected: []string{
				"-f", "markdown", "-t", "docx", "-o", "-",
				"--reference-doc=/tpl/ref.docx",
				"--resource-path=/work",
				"--lua-filter=/f/a.lua",
				"--filter=pandoc-crossref",
			},
		},
		{
			name:     "html output ignores reference doc",
			from:     "markdown",
			opts:     Options{Format: FormatHTML, ReferenceDoc: "/tpl/ref.docx"},
			expected: []string{"-f", "markdown", "-t", "html", "-o", "-", "--mathml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Args(tt.from, tt.opts); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Args() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMarkdownToDocument(t *testing.T) {
	fake := &proc.Fake{Handler: func(proc.Cmd) (proc.Result, error) {
		return proc.Result{Stdout: "PK\x03\x04docx"}, nil
	}}
	p := &Pandoc{Path: "/usr/bin/pandoc", Runner: fake}

	out, err := p.MarkdownToDocument(context.Background(), "a $ x $ b", Options{WorkDir: "/tmp"})
	if err != nil {
		t.Fatalf("MarkdownToDocument() error = %v", err)
	}
	if string(out) != "PK\x03\x04docx" {
		t.Errorf("output = %q", out)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("pandoc ran %d times", len(calls))
	}
	if calls[0].Name != "/usr/bin/pandoc" || calls[0].Dir != "/tmp" {
		t.Errorf("cmd = %+v", calls[0])
	}
	if string(calls[0].Stdin) != "a $x$ b" {
		t.Errorf("stdin = %q, want normalized math", calls[0].Stdin)
	}
	if calls[0].Args[1] != markdownInput {
		t.Errorf("input format = %q", calls[0].Args[1])
	}
}

func TestMarkdownToDocumentKeepFormula(t *testing.T) {
	fake := &proc.Fake{Handler: func(proc.Cmd) (proc.Result, error) {
		return proc.Result{Stdout: "doc"}, nil
	}}
	p := &Pandoc{Path: "pandoc", Runner: fake}

	if _, err := p.MarkdownToDocument(context.Background(), "$ x $", Options{KeepOriginalFormula: true}); err != nil {
		t.Fatal(err)
	}
	call := fake.Calls()[0]
	if string(call.Stdin) != "$ x $" || call.Args[1] != literalMathInput {
		t.Errorf("formula not kept: stdin %q, from %q", call.Stdin, call.Args[1])
	}
}

func TestConversionFailures(t *testing.T) {
	tests := []struct {
		name     string
		result   proc.Result
		wantCode errors.ExitCode
	}{
		{"non-zero exit", proc.Result{ExitCode: 64, Stderr: "Unknown option"}, errors.ExitCodeConversion},
		{"empty output", proc.Result{}, errors.ExitCodeConversion},
		{"timeout", proc.Result{TimedOut: true, ExitCode: proc.ExitCodeTimeout}, errors.ExitCodeConversion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &proc.Fake{Handler: func(proc.Cmd) (proc.Result, error) { return tt.result, nil }}
			p := &Pandoc{Path: "pandoc", Runner: fake}

			_, err := p.HTMLToDocument(context.Background(), "<p>x</p>", Options{})
			if !errors.IsExitCode(err, tt.wantCode) {
				t.Errorf("HTMLToDocument() error = %v, want code %d", err, tt.wantCode)
			}
		})
	}
}

func TestNormalizeMath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"inline padding", "area $  \\pi r^2  $ here", "area $\\pi r^2$ here"},
		{"already tight", "$x$ and $y$", "$x$ and $y$"},
		{"display dollars untouched", "$$ x $$", "$$ x $$"},
		{"single dollar block", "a\n  $\nx = 1\n$\nb", "a\n  $$\nx = 1\n$$\nb"},
		{"code fence skipped", "```\n$\n$ x $\n```\n$ y $", "```\n$\n$ x $\n```\n$y$"},
		{"prices left alone", "costs $5 or $10", "costs $5 or $10"},
		{"text between formulas kept", "$ a $ and $ b $", "$a$ and $b$"},
		{"tight then padded", "$x$ then $ y $", "$x$ then $y$"},
		{"escaped dollar is text", `\$ 5 and $ x $`, `\$ 5 and $x$`},
		{"display then inline", "$$a$$ and $ b $", "$$a$$ and $b$"},
		{"unclosed dollar", "pay $ 5 now", "pay $ 5 now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeMath(tt.input); got != tt.expected {
				t.Errorf("NormalizeMath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewPandocDefaults(t *testing.T) {
	p := NewPandoc("", 0)
	if p.Path != "pandoc" {
		t.Errorf("Path = %q", p.Path)
	}
	if _, ok := p.Runner.(proc.Exec); !ok {
		t.Errorf("Runner = %T", p.Runner)
	}
	if !strings.Contains(markdownInput, "tex_math_dollars") {
		t.Error("markdown input must enable dollar math")
	}
}
