package convert

import "strings"

// NormalizeMath prepares dollar math for pandoc's tex_math_dollars: padding
// inside inline math is trimmed ("$ x $" -> "$x$") and a line holding only
// "$" opens or closes a display block ("$$"). Fenced code is left alone.
func NormalizeMath(text string) string {
	lines := strings.Split(text, "\n")
	fence := ""
	inBlock := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			switch {
			case fence == "":
				fence = trimmed[:3]
				continue
			case strings.HasPrefix(trimmed, fence):
				fence = ""
				continue
			}
		}
		if fence != "" {
			continue
		}

		if trimmed == "$" {
			lines[i] = line[:strings.Index(line, "$")] + "$$"
			inBlock = !inBlock
			continue
		}
		if !inBlock {
			lines[i] = trimInlineMath(line)
		}
	}
	return strings.Join(lines, "\n")
}

// trimInlineMath pairs single-dollar delimiters left to right and trims
// the padding of spans that have whitespace on both inner sides. "$$"
// spans and escaped dollars are copied as they are; text between pairs is
// never touched.
func trimInlineMath(line string) string {
	var sb strings.Builder
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line):
			sb.WriteString(line[i : i+2])
			i += 2
			continue
		case c != '$':
			sb.WriteByte(c)
			i++
			continue
		}

		if strings.HasPrefix(line[i:], "$$") {
			end := strings.Index(line[i+2:], "$$")
			if end < 0 {
				sb.WriteString(line[i:])
				return sb.String()
			}
			end += i + 4
			sb.WriteString(line[i:end])
			i = end
			continue
		}

		closing := closingDollar(line, i+1)
		if closing < 0 {
			sb.WriteString(line[i:])
			return sb.String()
		}
		span := line[i+1 : closing]
		if inner := strings.TrimSpace(span); inner != "" && isPadded(span) {
			sb.WriteString("$" + inner + "$")
		} else {
			sb.WriteString(line[i : closing+1])
		}
		i = closing + 1
	}
	return sb.String()
}

// closingDollar finds the next single unescaped '$' at or after from.
func closingDollar(line string, from int) int {
	for j := from; j < len(line); j++ {
		switch line[j] {
		case '\\':
			j++
		case '$':
			if j+1 < len(line) && line[j+1] == '$' {
				return -1
			}
			return j
		}
	}
	return -1
}

func isPadded(span string) bool {
	isSpace := func(b byte) bool { return b == ' ' || b == '\t' }
	return isSpace(span[0]) && isSpace(span[len(span)-1])
}
