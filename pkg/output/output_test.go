package output

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"pastemd/pkg/errors"
	"pastemd/pkg/proc"
	"pastemd/pkg/table"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"invalid chars", `a<b>c:d"e/f\g|h?i*j`, 100, "a_b_c_d_e_f_g_h_i_j"},
		{"squeeze and trim", "__a___b__", 100, "a_b"},
		{"truncate runes", "报告标题很长很长", 4, "报告标题"},
		{"trim after cut", "abc_def", 4, "abc"},
		{"empty", "???", 100, "document"},
		{"no limit", "abc", 0, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input, tt.max); got != tt.expected {
				t.Errorf("SanitizeFilename(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
			}
		})
	}
}

func TestMarkdownTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"h1", "intro\n## Second\n# First", "First"},
		{"h2 when no h1", "text\n### Three\n## Two", "Two"},
		{"hash without space is prose", "#tag\nPlain words", "#tag"},
		{"first sentence", "| a | b |\n- item\n> quote\n**Bold** and [link](http://x) `c`", "Bold and link c"},
		{"long title cut", "# " + strings.Repeat("x", 40), strings.Repeat("x", 30)},
		{"emphasis opens prose", "* item\n*Em* text", "Em text"},
		{"rules and fences skipped", "---\n***\n```go\n+ plus\nWords here", "Words here"},
		{"inline code first", "`cfg` loads", "cfg loads"},
		{"nothing", "- a\n* b\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarkdownTitle(tt.input); got != tt.expected {
				t.Errorf("MarkdownTitle() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTableTitle(t *testing.T) {
	data := table.Data{{"Name", " ", "Age", "City", "A", "B", "C", "D"}, {"x"}}
	if got := TableTitle(data); got != "Name_Age_City_A_B" {
		t.Errorf("TableTitle() = %q", got)
	}
	if got := TableTitle(table.Data{{" ", ""}}); got != "" {
		t.Errorf("TableTitle(blank header) = %q", got)
	}
	if got := TableTitle(nil); got != "" {
		t.Errorf("TableTitle(nil) = %q", got)
	}
}

func TestFilenamePriority(t *testing.T) {
	tests := []struct {
		name     string
		src      Source
		expected string
	}{
		{"table first", Source{Markdown: "# Doc", HTML: "<h1>Web</h1>", Table: table.Data{{"A", "B"}}}, "A_B.docx"},
		{"html before markdown", Source{Markdown: "# Doc", HTML: "<h1>Web</h1>"}, "Web.docx"},
		{"markdown", Source{Markdown: "# Doc: draft"}, "Doc_ draft.docx"},
		{"timestamp fallback", Source{Markdown: "- only a list"}, "md_paste_20260314_092653.docx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.src, ".docx", fixedNow); got != tt.expected {
				t.Errorf("Filename() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSaveMakesPathUnique(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	src := Source{Markdown: "# Notes"}

	first, err := Save(dir, src, "docx", []byte("one"), fixedNow)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if first != filepath.Join(dir, "Notes.docx") {
		t.Errorf("first path = %q", first)
	}

	second, err := Save(dir, src, "docx", []byte("two"), fixedNow)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if second != filepath.Join(dir, "Notes_20260314_092653.docx") {
		t.Errorf("second path = %q", second)
	}

	data, _ := os.ReadFile(first)
	if string(data) != "one" {
		t.Errorf("first file overwritten: %q", data)
	}
}

func TestSaveFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain-file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Save(file, Source{}, "docx", []byte("x"), fixedNow)
	if !errors.IsExitCode(err, errors.ExitCodeFileOperation) {
		t.Errorf("Save() into a file error = %v", err)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		goos     string
		expected []string
	}{
		{"windows", []string{"cmd", "/c", "start", "", "C:/a.docx"}},
		{"darwin", []string{"open", "C:/a.docx"}},
		{"linux", []string{"xdg-open", "C:/a.docx"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			fake := &proc.Fake{}
			if err := Open(context.Background(), fake, tt.goos, "C:/a.docx"); err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			call := fake.Calls()[0]
			if got := append([]string{call.Name}, call.Args...); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Open() ran %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestOpenFailure(t *testing.T) {
	fake := &proc.Fake{Handler: func(proc.Cmd) (proc.Result, error) {
		return proc.Result{ExitCode: 3, Stderr: "no handler"}, nil
	}}
	if err := Open(context.Background(), fake, "linux", "/tmp/a.docx"); !errors.IsExitCode(err, errors.ExitCodeFileOperation) {
		t.Errorf("Open() error = %v", err)
	}
}
