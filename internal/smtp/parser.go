package smtp

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
)

// BounceSuffix marks a list's bounce-report address: mail to
// <local>-bounce@<domain> carries a delivery-status report for the list at
// <local>@<domain>.
const BounceSuffix = "-bounce"

// parseEmailAddress parses an email address into local part and domain
func parseEmailAddress(address string) (localPart, domain string, err error) {
	address = strings.TrimPrefix(address, "<")
	address = strings.TrimSuffix(address, ">")
	address = strings.TrimSpace(address)

	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	localPart = strings.ToLower(parts[0])
	domain = strings.ToLower(parts[1])

	if localPart == "" || domain == "" {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	return localPart, domain, nil
}

// SplitBounceAddress reports whether an address is a bounce-report address
// and returns the posting address of the list it belongs to.
func SplitBounceAddress(address string) (listAddress string, ok bool) {
	localPart, domain, err := parseEmailAddress(address)
	if err != nil {
		return "", false
	}
	base := strings.TrimSuffix(localPart, BounceSuffix)
	if base == localPart || base == "" {
		return "", false
	}
	return base + "@" + domain, true
}

var (
	failedRecipientMatcher = regexp.MustCompile(`(?im)^X-Failed-Recipients:\s*(\S+@\S+)`)
	finalRecipientMatcher  = regexp.MustCompile(`(?im)^Final-Recipient:\s*rfc822;\s*(\S+@\S+)`)
	originalToMatcher      = regexp.MustCompile(`(?im)^Original-Recipient:\s*rfc822;\s*(\S+@\S+)`)
)

// ExtractBouncedAddress digs the failing recipient out of a delivery-status
// report. It checks the X-Failed-Recipients header first, then the
// Final-Recipient and Original-Recipient fields of the DSN body. Returns
// false when the report names no recipient.
func ExtractBouncedAddress(raw []byte) (string, bool) {
	if m := failedRecipientMatcher.FindSubmatch(raw); m != nil {
		return normalizeAddress(string(m[1])), true
	}

	// The per-recipient fields live in a message/delivery-status part, but
	// scanning the decoded envelope text and the raw bytes covers both
	// well-formed and mangled reports.
	if env, err := enmime.ReadEnvelope(bytes.NewReader(raw)); err == nil {
		for _, part := range env.OtherParts {
			if m := finalRecipientMatcher.FindSubmatch(part.Content); m != nil {
				return normalizeAddress(string(m[1])), true
			}
			if m := originalToMatcher.FindSubmatch(part.Content); m != nil {
				return normalizeAddress(string(m[1])), true
			}
		}
	}
	if m := finalRecipientMatcher.FindSubmatch(raw); m != nil {
		return normalizeAddress(string(m[1])), true
	}
	if m := originalToMatcher.FindSubmatch(raw); m != nil {
		return normalizeAddress(string(m[1])), true
	}
	return "", false
}

func normalizeAddress(address string) string {
	address = strings.Trim(address, "<>")
	return strings.ToLower(strings.TrimSpace(address))
}
