package emailbody

import "strings"

const (
	// maxConsecutiveQuote is the quoting streak after which the rest of the
	// message is treated as footer.
	maxConsecutiveQuote = 12

	// maxConsecutiveWhitespace is the run of blank lines tolerated in the
	// intro once past the always-kept region.
	maxConsecutiveWhitespace = 3

	// introKeepLines is the number of leading lines always kept in the
	// intro, regardless of content.
	introKeepLines = 15

	// quoteGraceLines is the line count before a quoting streak may switch
	// the scanner into footer mode; top quoting is not penalised as badly.
	quoteGraceLines = 25
)

var footerRuleMarkers = []string{"--", "==", "__", "~~", "- -"}

// Split separates a formatted message into its intro and its footer: the
// trailing quoted material and signature that would otherwise clutter the
// page. The input is the escaped, marked-up, wrapped body, so quote markers
// appear as "&gt;".
//
// The forward scan switches permanently into footer mode at a rule marker,
// or once the quoting streak and line count both pass their thresholds. The
// backward pass then trims trailing blank, quoted, attribution or isolated
// single-word lines off the intro; the trim stops for good at the first
// line that does not qualify. If the result would hide everything but a
// single line of content, the split is undone and the whole text returned
// as intro.
func Split(text string) (intro, footer string) {
	lines := strings.Split(text, "\n")

	var introLines, footerLines []string
	inFooter := false
	consecutiveQuote := 0
	consecutiveWhitespace := 0

	for i, line := range lines {
		lineNo := i + 1
		for _, marker := range footerRuleMarkers {
			if strings.HasPrefix(line, marker) {
				inFooter = true
				break
			}
		}

		switch {
		case inFooter:
			footerLines = append(footerLines, line)
		case consecutiveQuote >= maxConsecutiveQuote && lineNo > quoteGraceLines:
			footerLines = append(footerLines, line)
			inFooter = true
		case lineNo <= introKeepLines:
			introLines = append(introLines, line)
		case len(line) > 3 && line[:4] != "&gt;":
			introLines = append(introLines, line)
		case consecutiveWhitespace <= maxConsecutiveWhitespace:
			introLines = append(introLines, line)
		default:
			footerLines = append(footerLines, line)
			inFooter = true
		}

		if len(line) > 3 && (line[:4] == "&gt;" || strings.Contains(strings.ToLower(line), "wrote:")) {
			consecutiveQuote++
		} else {
			consecutiveQuote = 0
		}

		if strings.TrimSpace(line) == "" {
			consecutiveWhitespace++
		} else {
			consecutiveWhitespace = 0
		}
	}

	// Backtrack through the tentative intro, trimming qualifying lines into
	// the footer. The trim flag is monotonic: once a line is kept, every
	// earlier line is kept too.
	var keptIntro []string
	trim := true
	for idx := len(introLines) - 1; idx >= 0; idx-- {
		line := introLines[idx]
		prevLine := ""
		if idx > 0 {
			prevLine = introLines[idx-1]
		}
		if len(introLines) < 5 {
			trim = false
		}

		var lead string
		if len(line) > 3 {
			lead = line[:4]
		} else if trimmed := strings.TrimSpace(line); trimmed != "" {
			lead = trimmed[:1]
		}

		switch {
		case trim && (lead == "&gt;" || lead == ""):
			footerLines = append([]string{line}, footerLines...)
		case trim && strings.Index(line, "wrote:") > 2:
			footerLines = append([]string{line}, footerLines...)
		case trim && isIsolatedWord(line, prevLine):
			footerLines = append([]string{line}, footerLines...)
		default:
			trim = false
			keptIntro = append([]string{line}, keptIntro...)
		}
	}

	// Do not snip if only a single line of actual content would remain.
	if len(footerLines) == 1 {
		keptIntro = append(keptIntro, footerLines...)
		footerLines = nil
	}

	return strings.TrimSpace(strings.Join(keptIntro, "\n")), strings.Join(footerLines, "\n")
}

// isIsolatedWord reports whether the line holds exactly one word and the
// line before it carries no significant text (blank, or itself one word).
func isIsolatedWord(line, prevLine string) bool {
	if strings.TrimSpace(line) == "" || len(strings.Fields(line)) != 1 {
		return false
	}
	return strings.TrimSpace(prevLine) == "" || len(strings.Fields(prevLine)) == 1
}

// FormatBody runs the full display pipeline short of the split: escape and
// markup, then word-wrap.
func FormatBody(text string, public bool) string {
	if text == "" {
		return ""
	}
	return Wrap(Markup(text, public), DefaultWrapWidth)
}

// IntroAndFooter formats a stored body and splits it for display.
func IntroAndFooter(text string, public bool) (intro, footer string) {
	body := FormatBody(text, public)
	if body == "" {
		return "", ""
	}
	return Split(body)
}
