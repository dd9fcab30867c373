// Package emailbody formats a stored plain-text post body for web display:
// HTML escaping, link/address/media/emphasis markup, word-wrapping, and the
// intro/footer split that hides quoted material and signatures.
//
// The pipeline is stateless and free of side effects. It is not idempotent
// on its own output: re-running it on already-escaped text double-escapes,
// which callers must avoid by contract.
package emailbody

import (
	"regexp"
	"strings"
	"unicode"
)

// WordLimit caps the number of words fed through the markup rules.
// Unbounded per-word regexp substitution is O(n*m), so pathological inputs
// are cut off with a notice.
const WordLimit = 5000

const truncationNotice = "<strong>This email has been automatically truncated to 5000 words.</strong>"

// redactedAddress replaces email addresses in publicly visible groups.
const redactedAddress = "&lt;email obscured&gt;"

var (
	emailMatcher      = regexp.MustCompile(`(?im).*?([A-Z0-9._%+-]+)@([A-Z0-9.-]+\.[A-Z]{2,4}).*?`)
	uriMatcher        = regexp.MustCompile(`(?i)(http://|https://)(.+?)(&lt;|&gt;|\)|\]|\}|"|'|$|\s)`)
	youtubeMatcher    = regexp.MustCompile(`(?i)(http://)(.*)(youtube\.com/watch\?v=)(.*)($|\s)`)
	splashcastMatcher = regexp.MustCompile(`(?i)(http://www\.splashcastmedia\.com/web_watch/\?code=)(.*)($|\s)`)
	boldMatcher       = regexp.MustCompile(`(\*.*\*)`)
)

// escapeWord escapes the HTML metacharacters so markup in the source
// message is never interpreted as markup in the output. Quotes are left
// alone; the URI matcher relies on them as terminators.
var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeWord(word string) string {
	return htmlEscaper.Replace(word)
}

// markupFunc rewrites a single escaped word. substituted reports whether an
// earlier rule already rewrote this word; substitutedWords is the set of
// pre-substitution words rewritten so far, threaded through every stage.
type markupFunc func(word string, public bool, substituted bool, substitutedWords map[string]bool) string

func markupURI(word string, _ bool, substituted bool, _ map[string]bool) string {
	if substituted {
		return word
	}
	// Media-shaped URLs are left for the embed rules further down the
	// chain; anchoring them here would make those rules unreachable.
	if youtubeMatcher.MatchString(word) || splashcastMatcher.MatchString(word) {
		return word
	}
	return uriMatcher.ReplaceAllString(word, `<a href="${1}${2}">${1}${2}</a>${3}`)
}

func markupEmailAddress(word string, public bool, substituted bool, _ map[string]bool) string {
	if substituted || !emailMatcher.MatchString(word) {
		return word
	}
	if public {
		// The group is visible to the anonymous user, so redact any email
		// addresses in the post.
		return emailMatcher.ReplaceAllString(word, redactedAddress)
	}
	return `<a class="email" href="mailto:` + word + `">` + word + `</a>`
}

func markupYoutube(word string, _ bool, substituted bool, substitutedWords map[string]bool) string {
	if substituted || substitutedWords[word] {
		return word
	}
	return youtubeMatcher.ReplaceAllString(word,
		`<div class="markup-youtube"><iframe width="425" height="344" `+
			`src="http://${2}youtube.com/embed/${4}" allowfullscreen></iframe></div>${5}`)
}

func markupSplashcast(word string, _ bool, substituted bool, substitutedWords map[string]bool) string {
	if substituted || substitutedWords[word] {
		return word
	}
	return splashcastMatcher.ReplaceAllString(word,
		`<div class="markup-splashcast"><embed src="http://web.splashcast.net/go/skin/${2}/sz/wide" `+
			`wmode="Transparent" width="380" height="416" allowFullScreen="true" `+
			`type="application/x-shockwave-flash" /></div>${3}`)
}

func markupBold(word string, _ bool, substituted bool, _ map[string]bool) string {
	if substituted {
		return word
	}
	return boldMatcher.ReplaceAllString(word, `<strong>${1}</strong>`)
}

// Rule order: links first, then addresses, media embeds, emphasis. A word
// rewritten by an earlier rule is skipped by the later ones.
var standardMarkupFuncs = []markupFunc{
	markupURI,
	markupEmailAddress,
	markupYoutube,
	markupSplashcast,
	markupBold,
}

func markupWord(word string, public bool, substitutedWords map[string]bool) string {
	word = escapeWord(word)
	substituted := false

	for _, fn := range standardMarkupFuncs {
		next := fn(word, public, substituted, substitutedWords)
		if next != word {
			substituted = true
			substitutedWords[word] = true
		}
		word = next
	}
	return word
}

// Markup escapes and marks up a message body word by word, preserving the
// original whitespace runs verbatim. public controls whether email
// addresses are redacted (anonymously visible group) or turned into mailto
// links (members-only group). After WordLimit processed words the output is
// truncated with a notice.
func Markup(text string, public bool) string {
	if text == "" {
		return ""
	}

	var out strings.Builder
	var word strings.Builder
	substitutedWords := map[string]bool{}
	wordCount := 0
	truncated := false

	flush := func() bool {
		if word.Len() == 0 {
			return true
		}
		if wordCount >= WordLimit {
			out.WriteString(truncationNotice)
			truncated = true
			return false
		}
		out.WriteString(markupWord(word.String(), public, substitutedWords))
		word.Reset()
		wordCount++
		return true
	}

	for _, r := range text {
		if unicode.IsSpace(r) {
			if !flush() {
				break
			}
			out.WriteRune(r)
		} else {
			word.WriteRune(r)
		}
	}
	if !truncated {
		flush()
	}

	return strings.TrimSpace(out.String())
}
