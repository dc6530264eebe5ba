// Package filter narrows recorded placements down by error text, method or
// target.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"pastemd/pkg/history"
)

type FilterMode int

const (
	FilterModeNone FilterMode = iota
	FilterModeExact
	FilterModeContains
	FilterModeRegex
	FilterModeFuzzy
)

type StringFilter struct {
	Pattern string
	Mode    FilterMode
	regex   *regexp.Regexp
}

func NewStringFilter(pattern string, mode FilterMode) (*StringFilter, error) {
	f := &StringFilter{
		Pattern: pattern,
		Mode:    mode,
	}

	if mode == FilterModeRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern '%s': %w", pattern, err)
		}
		f.regex = re
	}

	return f, nil
}

func (f *StringFilter) Match(s string) bool {
	switch f.Mode {
	case FilterModeExact:
		return strings.EqualFold(s, f.Pattern)
	case FilterModeContains:
		return strings.Contains(strings.ToLower(s), strings.ToLower(f.Pattern))
	case FilterModeRegex:
		return f.regex != nil && f.regex.MatchString(s)
	case FilterModeFuzzy:
		return FuzzyMatch(f.Pattern, s)
	}
	return true
}

// FuzzyMatch reports whether pattern's characters appear in text in order,
// ignoring case.
func FuzzyMatch(pattern, text string) bool {
	if pattern == "" {
		return true
	}
	if text == "" {
		return false
	}

	p := []rune(strings.ToLower(pattern))
	i := 0
	for _, r := range strings.ToLower(text) {
		if r == p[i] {
			i++
			if i == len(p) {
				return true
			}
		}
	}
	return false
}

// EntryFilter matches history entries. Empty fields match everything.
type EntryFilter struct {
	ErrorRegex string
	ErrorFuzzy string
	// Method is compared with the recorded method name, e.g. "clipboard_paste".
	Method string
	// Failed keeps only runs that did not succeed.
	Failed bool
}

func (f *EntryFilter) Matches(e history.Entry) (bool, error) {
	if f.Failed && e.Success {
		return false, nil
	}

	if f.ErrorRegex != "" {
		re, err := regexp.Compile(f.ErrorRegex)
		if err != nil {
			return false, fmt.Errorf("invalid error regex: %w", err)
		}
		if !re.MatchString(e.Error) {
			return false, nil
		}
	}

	if f.ErrorFuzzy != "" && !FuzzyMatch(f.ErrorFuzzy, e.Error) {
		return false, nil
	}

	if f.Method != "" && !strings.EqualFold(e.Method, f.Method) {
		return false, nil
	}

	return true, nil
}

// Apply returns the entries f matches, preserving order.
func (f *EntryFilter) Apply(entries []history.Entry) ([]history.Entry, error) {
	out := make([]history.Entry, 0, len(entries))
	for _, e := range entries {
		ok, err := f.Matches(e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}
