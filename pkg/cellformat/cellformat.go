// Package cellformat parses the inline Markdown used inside table cells
// (bold, italic, strikethrough, code, links and fenced code cells) into
// ordered styled segments.
package cellformat

import (
	"regexp"
	"strings"
	"unicode"
)

// LineBreak marks an in-cell line break inside segment text.
const LineBreak = "\n"

var brTag = regexp.MustCompile(`(?i)<br\s*/?>`)

// Segment is a maximal run of cell text sharing one set of attributes.
type Segment struct {
	Text          string `json:"text"`
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Code          bool   `json:"code,omitempty"`
	Link          string `json:"link,omitempty"`
}

// Plain reports whether the segment carries no styling at all.
func (s Segment) Plain() bool {
	return !s.Bold && !s.Italic && !s.Strikethrough && !s.Code && s.Link == ""
}

func (s Segment) sameStyle(o Segment) bool {
	return s.Bold == o.Bold && s.Italic == o.Italic && s.Strikethrough == o.Strikethrough &&
		s.Code == o.Code && s.Link == o.Link
}

// Cell owns one raw cell string and parses it on first use.
type Cell struct {
	raw       string
	parsed    bool
	plain     string
	segments  []Segment
	codeBlock bool
}

func New(raw string) *Cell {
	return &Cell{raw: raw}
}

func (c *Cell) Raw() string { return c.raw }

// Plain returns the cell text with all markup stripped.
func (c *Cell) Plain() string {
	c.parse()
	return c.plain
}

func (c *Cell) Segments() []Segment {
	c.parse()
	return c.segments
}

// IsCodeBlock is true when the whole cell is one fenced code block.
func (c *Cell) IsCodeBlock() bool {
	c.parse()
	return c.codeBlock
}

// HasCode is true when any segment is code.
func (c *Cell) HasCode() bool {
	for _, seg := range c.Segments() {
		if seg.Code {
			return true
		}
	}
	return false
}

func (c *Cell) parse() {
	if c.parsed {
		return
	}
	c.plain, c.segments, c.codeBlock = Parse(c.raw)
	c.parsed = true
}

// Parse splits raw cell text into its plain-text projection and segments.
// A cell without visible text is empty. The projection drops escapes and
// code delimiters, so feeding it back to Parse can strip markers that were
// literal the first time; Parse(Escape(plain)) always returns plain.
func Parse(raw string) (plain string, segments []Segment, codeBlock bool) {
	text := normalizeBreaks(raw)
	if strings.TrimSpace(text) == "" {
		return "", nil, false
	}

	if body, ok := fencedBody(strings.TrimSpace(text)); ok {
		if strings.TrimSpace(body) == "" {
			return "", nil, false
		}
		return body, []Segment{{Text: body, Code: true}}, true
	}

	segments = parseInline([]rune(text))
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(seg.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", nil, false
	}
	return sb.String(), segments, false
}

// Escape backslash-escapes every markup character of plain so that it
// parses back to itself as unstyled text.
func Escape(plain string) string {
	var sb strings.Builder
	sb.Grow(len(plain))
	for _, ch := range plain {
		if strings.ContainsRune(escapable, ch) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}

// normalizeBreaks turns CRLF and unescaped <br> tags into LineBreak.
func normalizeBreaks(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	locs := brTag.FindAllStringIndex(s, -1)
	if locs == nil {
		return s
	}

	var sb strings.Builder
	last := 0
	for _, loc := range locs {
		slashes := 0
		for k := loc[0] - 1; k >= 0 && s[k] == '\\'; k-- {
			slashes++
		}
		if slashes%2 == 1 {
			continue
		}
		sb.WriteString(s[last:loc[0]])
		sb.WriteString(LineBreak)
		last = loc[1]
	}
	sb.WriteString(s[last:])
	return sb.String()
}

// fencedBody recognises ```...```, ~~~...~~~ and a single `...` span that
// covers the whole trimmed cell.
func fencedBody(s string) (string, bool) {
	for _, fence := range []string{"```", "~~~"} {
		if len(s) < 2*len(fence)+1 || !strings.HasPrefix(s, fence) || !strings.HasSuffix(s, fence) {
			continue
		}
		body := s[len(fence) : len(s)-len(fence)]
		if strings.Contains(body, fence) {
			return "", false
		}
		// with the closing fence on its own line, a single word on the
		// opening line is an info string
		if nl := strings.Index(body, "\n"); nl >= 0 && strings.HasSuffix(body, "\n") &&
			!strings.ContainsAny(body[:nl], " \t") {
			body = body[nl+1:]
		}
		body = strings.TrimSuffix(body, "\n")
		if body == "" {
			return "", false
		}
		return body, true
	}

	if len(s) >= 3 && s[0] == '`' && s[len(s)-1] == '`' {
		body := s[1 : len(s)-1]
		if !strings.Contains(body, "`") {
			return body, true
		}
	}
	return "", false
}

type charInfo struct {
	skip   bool // consumed markup
	opaque bool // never a delimiter candidate (code text, escaped char)
	scope  int  // 0 for the cell, n for the text of the n-th link
	style  Segment
}

type delimiter struct {
	marker string
	apply  func(*Segment)
}

// Pairing order: double markers first so a leftover single marker can
// still pair (e.g. ***x*** is bold and italic).
var delimiters = []delimiter{
	{"**", func(s *Segment) { s.Bold = true }},
	{"__", func(s *Segment) { s.Bold = true }},
	{"~~", func(s *Segment) { s.Strikethrough = true }},
	{"*", func(s *Segment) { s.Italic = true }},
	{"_", func(s *Segment) { s.Italic = true }},
}

const escapable = "\\`*_~[]()|#<"

func parseInline(r []rune) []Segment {
	info := make([]charInfo, len(r))
	scopes := markAtoms(r, info)

	for scope := 0; scope <= scopes; scope++ {
		for _, d := range delimiters {
			pairDelimiters(r, info, scope, d)
		}
	}

	var segments []Segment
	var sb strings.Builder
	var current Segment
	flush := func() {
		if sb.Len() == 0 {
			return
		}
		current.Text = sb.String()
		segments = append(segments, current)
		sb.Reset()
	}
	for i, ch := range r {
		if info[i].skip {
			continue
		}
		if sb.Len() > 0 && !current.sameStyle(info[i].style) {
			flush()
		}
		if sb.Len() == 0 {
			current = info[i].style
		}
		sb.WriteRune(ch)
	}
	flush()
	return segments
}

// markAtoms handles escapes, code spans and links in one left-to-right pass.
// It returns the number of link scopes created.
func markAtoms(r []rune, info []charInfo) int {
	scopes := 0
	textEnd, urlEnd := -1, -1
	link := ""

	for i := 0; i < len(r); {
		if textEnd >= 0 && i == textEnd {
			i = urlEnd + 1
			textEnd, urlEnd, link = -1, -1, ""
			continue
		}
		limit := len(r)
		if textEnd >= 0 {
			limit = textEnd
		}

		switch {
		case r[i] == '\\' && i+1 < limit && strings.ContainsRune(escapable, r[i+1]):
			info[i].skip = true
			info[i+1].opaque = true
			i += 2
		case r[i] == '`':
			closing := indexRune(r[:limit], '`', i+1)
			if closing <= i+1 {
				info[i].opaque = true
				i++
				continue
			}
			info[i].skip = true
			info[closing].skip = true
			for k := i + 1; k < closing; k++ {
				info[k].opaque = true
				info[k].style.Code = true
			}
			i = closing + 1
		case r[i] == '[' && textEnd < 0:
			tEnd, uEnd, url, ok := matchLink(r, i)
			if !ok {
				i++
				continue
			}
			scopes++
			textEnd, urlEnd, link = tEnd, uEnd, url
			info[i].skip = true
			for k := tEnd; k <= uEnd; k++ {
				info[k].skip = true
			}
			for k := i + 1; k < tEnd; k++ {
				info[k].scope = scopes
				info[k].style.Link = link
			}
			i++
		default:
			i++
		}
	}
	return scopes
}

// matchLink matches [text](url) starting at open. textEnd is the index of
// the closing bracket and urlEnd the index of the closing parenthesis.
func matchLink(r []rune, open int) (textEnd, urlEnd int, url string, ok bool) {
	depth := 0
	textEnd = -1
	for k := open; k < len(r); k++ {
		if r[k] == '\\' {
			k++
			continue
		}
		if r[k] == '[' {
			depth++
		} else if r[k] == ']' {
			depth--
			if depth == 0 {
				textEnd = k
				break
			}
		}
	}
	if textEnd <= open+1 || textEnd+1 >= len(r) || r[textEnd+1] != '(' {
		return 0, 0, "", false
	}

	depth = 0
	for k := textEnd + 1; k < len(r); k++ {
		if r[k] == '(' {
			depth++
		} else if r[k] == ')' {
			depth--
			if depth == 0 {
				target := strings.TrimSpace(string(r[textEnd+2 : k]))
				// drop an optional "title"
				if fields := strings.Fields(target); len(fields) > 0 {
					target = strings.Trim(fields[0], "<>")
				}
				if target == "" {
					return 0, 0, "", false
				}
				return textEnd, k, target, true
			}
		}
	}
	return 0, 0, "", false
}

// pairDelimiters pairs one marker type within one scope, first opened with
// first closed. Unpaired markers stay literal.
func pairDelimiters(r []rune, info []charInfo, scope int, d delimiter) {
	width := len(d.marker)
	ch := rune(d.marker[0])
	open := -1

	for i := 0; i+width <= len(r); i++ {
		if !isMarker(r, info, i, width, ch, scope) {
			continue
		}
		if width == 1 && (sameCandidate(r, info, i-1, ch, scope) || sameCandidate(r, info, i+1, ch, scope)) {
			continue
		}

		prev, next := runeAt(r, i-1), runeAt(r, i+width)
		canOpen := next != 0 && !unicode.IsSpace(next)
		canClose := prev != 0 && !unicode.IsSpace(prev)
		if ch == '_' {
			canOpen = canOpen && !isWordRune(prev)
			canClose = canClose && !isWordRune(next)
		}

		if open >= 0 && canClose && i > open+width {
			for k := open; k < open+width; k++ {
				info[k].skip = true
			}
			for k := i; k < i+width; k++ {
				info[k].skip = true
			}
			for k := open + width; k < i; k++ {
				d.apply(&info[k].style)
			}
			open = -1
			i += width - 1
			continue
		}
		if open < 0 && canOpen {
			open = i
			i += width - 1
		}
	}
}

func isMarker(r []rune, info []charInfo, i, width int, ch rune, scope int) bool {
	for k := i; k < i+width; k++ {
		if k >= len(r) || r[k] != ch || info[k].skip || info[k].opaque || info[k].scope != scope {
			return false
		}
	}
	return true
}

func sameCandidate(r []rune, info []charInfo, i int, ch rune, scope int) bool {
	return i >= 0 && i < len(r) && r[i] == ch && !info[i].skip && !info[i].opaque && info[i].scope == scope
}

func runeAt(r []rune, i int) rune {
	if i < 0 || i >= len(r) {
		return 0
	}
	return r[i]
}

func isWordRune(ch rune) bool {
	return ch != 0 && (unicode.IsLetter(ch) || unicode.IsDigit(ch))
}

func indexRune(r []rune, target rune, from int) int {
	for k := from; k < len(r); k++ {
		if r[k] == target {
			return k
		}
	}
	return -1
}
