package emailbody

import "strings"

// DefaultWrapWidth is the column at which message bodies are re-wrapped.
const DefaultWrapWidth = 79

// Wrap word-wraps each line of the message to the given width. Words are
// never broken internally, and a single hyphen is never a break point (so
// hyphenated words stay whole); breaks happen at whitespace or at a run of
// two or more hyphens that follows a word character. Wrapping already
// wrapped text at the same width reproduces the same line breaks.
func Wrap(text string, width int) string {
	if width <= 0 {
		width = DefaultWrapWidth
	}
	lines := strings.Split(text, "\n")
	wrapped := make([]string, 0, len(lines))
	for _, line := range lines {
		wrapped = append(wrapped, wrapLine(line, width)...)
	}
	return strings.Join(wrapped, "\n")
}

func wrapLine(line string, width int) []string {
	chunks := splitChunks(line)
	if len(chunks) == 0 {
		return []string{""}
	}

	var lines []string
	i := 0
	for i < len(chunks) {
		// Continuation lines never start with whitespace.
		if len(lines) > 0 && isSpaceChunk(chunks[i]) {
			i++
			continue
		}

		var cur []string
		curLen := 0
		for i < len(chunks) {
			l := len(chunks[i])
			if curLen+l > width && len(cur) > 0 {
				break
			}
			cur = append(cur, chunks[i])
			curLen += l
			i++
			// An over-long chunk is emitted whole on its own line.
			if curLen > width {
				break
			}
		}

		for len(cur) > 0 && isSpaceChunk(cur[len(cur)-1]) {
			cur = cur[:len(cur)-1]
		}
		lines = append(lines, strings.Join(cur, ""))
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func isSpaceChunk(chunk string) bool {
	return strings.TrimSpace(chunk) == ""
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}

// hyphenBreakAfter reports whether a 2+ hyphen run may break after byte b.
func hyphenBreakAfter(b byte) bool {
	switch b {
	case '!', '"', '\'', '&', '.', ',', '?':
		return true
	}
	return isWordByte(b)
}

// splitChunks cuts a line into whitespace runs, long hyphen runs eligible
// as break points, and the words between them. The concatenation of the
// chunks is the original line.
func splitChunks(line string) []string {
	var chunks []string
	start := 0
	i := 0
	for i < len(line) {
		switch {
		case line[i] == ' ' || line[i] == '\t':
			if i > start {
				chunks = append(chunks, line[start:i])
			}
			j := i
			for j < len(line) && (line[j] == ' ' || line[j] == '\t') {
				j++
			}
			chunks = append(chunks, line[i:j])
			start, i = j, j
		case line[i] == '-' && i+1 < len(line) && line[i+1] == '-' &&
			i > 0 && hyphenBreakAfter(line[i-1]):
			j := i
			for j < len(line) && line[j] == '-' {
				j++
			}
			// Only a break point when a word character follows the run.
			if j < len(line) && isWordByte(line[j]) {
				if i > start {
					chunks = append(chunks, line[start:i])
				}
				chunks = append(chunks, line[i:j])
				start = j
			}
			i = j
		default:
			i++
		}
	}
	if start < len(line) {
		chunks = append(chunks, line[start:])
	}
	return chunks
}
